package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/loginscraper/internal/api/middleware"
	"github.com/timmy/loginscraper/internal/domain"
)

// ArchiveReader is the read side of the job archive.
type ArchiveReader interface {
	List(ctx context.Context, limit, offset int) ([]domain.JobArchive, int64, error)
	Get(ctx context.Context, jobID string) (*domain.JobArchive, error)
	OpenHTML(ctx context.Context, jobID string) (io.ReadCloser, error)
}

// ArchiveHandler serves archived job history.
type ArchiveHandler struct {
	archive ArchiveReader
}

// NewArchiveHandler creates a new archive handler.
func NewArchiveHandler(archive ArchiveReader) *ArchiveHandler {
	return &ArchiveHandler{archive: archive}
}

// List handles GET /api/archive.
// Query: limit (default 20), offset (default 0).
func (h *ArchiveHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	recs, total, err := h.archive.List(c.Request.Context(), limit, offset)
	if err != nil {
		middleware.GetLogger(c).WithError(err).Error("Failed to list archive")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list archive: " + err.Error()})
		return
	}
	if recs == nil {
		recs = []domain.JobArchive{}
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":   recs,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// Get handles GET /api/archive/:job_id.
func (h *ArchiveHandler) Get(c *gin.Context) {
	rec, err := h.archive.Get(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// HTML handles GET /api/archive/:job_id/html.
func (h *ArchiveHandler) HTML(c *gin.Context) {
	body, err := h.archive.OpenHTML(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	defer body.Close()

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		middleware.GetLogger(c).WithError(err).Warn("Failed to stream archived html")
	}
}
