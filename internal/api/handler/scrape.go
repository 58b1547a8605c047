package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/timmy/loginscraper/internal/api/middleware"
	"github.com/timmy/loginscraper/internal/domain"
)

// JobService is what the scrape endpoints need from the job driver.
type JobService interface {
	Submit(ctx context.Context, req domain.ScrapeRequest) (*domain.ScrapeJob, error)
	GetJob(ctx context.Context, jobID string) (*domain.ScrapeJob, error)
}

// ScrapeHandler handles job submission and lookup.
type ScrapeHandler struct {
	jobs JobService
}

// NewScrapeHandler creates a new scrape handler.
// Parameters:
//   - jobs: job service that owns the registry.
// Returns:
//   - *ScrapeHandler: initialized handler.
func NewScrapeHandler(jobs JobService) *ScrapeHandler {
	return &ScrapeHandler{jobs: jobs}
}

// scrapeAccepted is the body of a 202 answer to POST /api/scrape.
type scrapeAccepted struct {
	JobID   string           `json:"job_id"`
	Status  domain.JobStatus `json:"status"`
	Message string           `json:"message"`
}

// Scrape handles POST /api/scrape.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ScrapeHandler) Scrape(c *gin.Context) {
	var req domain.ScrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}
	if !isHTTPURL(req.URL) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: url must be an absolute http or https URL",
		})
		return
	}

	job, err := h.jobs.Submit(c.Request.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			middleware.GetLogger(c).WithError(err).Error("Failed to submit scrape job")
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, scrapeAccepted{
		JobID:   job.JobID,
		Status:  job.Status,
		Message: "Scraping job started",
	})
}

// GetJob handles GET /api/jobs/:job_id.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes the job record as JSON).
func (h *ScrapeHandler) GetJob(c *gin.Context) {
	job, err := h.jobs.GetJob(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, job)
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// statusFor maps domain errors onto HTTP status codes.
// ErrDuplicateJob means the id generator collided and is a server fault.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrQueueFull), errors.Is(err, domain.ErrShuttingDown):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
