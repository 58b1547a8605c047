package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/timmy/loginscraper/internal/domain"
	"github.com/timmy/loginscraper/internal/logger"
	"github.com/timmy/loginscraper/internal/repository"
	"github.com/timmy/loginscraper/internal/storage"
)

const htmlContentType = "text/html; charset=utf-8"

// ArchiveService writes finished jobs to the database and their HTML to object storage.
// The live registry never reads from it.
type ArchiveService struct {
	repo    *repository.ArchiveRepository
	storage storage.ObjectStorage
	prefix  string
	logger  *logger.Logger
}

// NewArchiveService creates a new archive service.
// Parameters:
//   - repo: archive row repository.
//   - store: object storage for HTML bodies; nil keeps rows only.
//   - prefix: key prefix inside the bucket.
//   - log: base logger.
// Returns:
//   - *ArchiveService: initialized service.
func NewArchiveService(repo *repository.ArchiveRepository, store storage.ObjectStorage, prefix string, log *logger.Logger) *ArchiveService {
	return &ArchiveService{
		repo:    repo,
		storage: store,
		prefix:  strings.Trim(prefix, "/"),
		logger:  log.WithField(logger.FieldComponent, "archive"),
	}
}

// htmlKey returns the object key of a job's HTML.
func (s *ArchiveService) htmlKey(jobID string) string {
	return path.Join(s.prefix, jobID+".html")
}

// Archive stores a terminal job. Non-terminal jobs are rejected.
// Parameters:
//   - ctx: bounds the upload and insert.
//   - job: terminal job record.
// Returns:
//   - error: non-nil if the upload or insert fails.
func (s *ArchiveService) Archive(ctx context.Context, job *domain.ScrapeJob) error {
	if !job.Status.IsTerminal() {
		return fmt.Errorf("%w: cannot archive %s job %s", domain.ErrInvalidTransition, job.Status, job.JobID)
	}

	rec := &domain.JobArchive{
		JobID:       job.JobID,
		Status:      job.Status,
		URL:         job.URL,
		VMURL:       job.VMURL,
		TraceURL:    job.TraceURL,
		Error:       job.Error,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
		CreatedAt:   job.CreatedAt,
		Meta:        domain.ArchiveMeta{},
	}
	if rid := logger.GetRequestID(ctx); rid != "" {
		rec.Meta["request_id"] = rid
	}

	if job.HTMLContent != "" && s.storage != nil {
		key := s.htmlKey(job.JobID)
		body := []byte(job.HTMLContent)
		if err := s.storage.Upload(ctx, key, bytes.NewReader(body), int64(len(body)), htmlContentType); err != nil {
			return fmt.Errorf("upload html for %s: %w", job.JobID, err)
		}
		rec.HTMLKey = key
		rec.HTMLURL = s.storage.GetURL(key)
		rec.HTMLSize = len(body)
	} else if job.HTMLContent != "" {
		rec.HTMLSize = len(job.HTMLContent)
		rec.Meta["html_stored"] = false
	}

	if err := s.repo.Save(ctx, rec); err != nil {
		return fmt.Errorf("save archive row for %s: %w", job.JobID, err)
	}

	logger.With(logger.Fields{logger.FieldJobID: job.JobID}).
		WithStatus(string(job.Status)).
		WithSize(rec.HTMLSize).
		Debug(ctx, "Job archived")
	return nil
}

// List returns a page of archived jobs and the total count.
func (s *ArchiveService) List(ctx context.Context, limit, offset int) ([]domain.JobArchive, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

// Get returns one archived job.
func (s *ArchiveService) Get(ctx context.Context, jobID string) (*domain.JobArchive, error) {
	return s.repo.Get(ctx, jobID)
}

// OpenHTML opens the archived HTML of a job.
// Parameters:
//   - ctx: request context.
//   - jobID: archived job id.
// Returns:
//   - io.ReadCloser: HTML body; the caller closes it.
//   - error: domain.ErrJobNotFound if the job or its HTML is not archived.
func (s *ArchiveService) OpenHTML(ctx context.Context, jobID string) (io.ReadCloser, error) {
	rec, err := s.repo.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if rec.HTMLKey == "" || s.storage == nil {
		return nil, fmt.Errorf("%w: no archived html for %s", domain.ErrJobNotFound, jobID)
	}
	return s.storage.Download(ctx, rec.HTMLKey)
}
