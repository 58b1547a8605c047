package repository

import (
	"fmt"
	"sync"
	"time"

	"github.com/timmy/loginscraper/internal/domain"
)

// JobRegistry is the process-wide, in-memory store of scrape job records.
// Records live until the process exits; nothing is persisted.
type JobRegistry struct {
	mu   sync.RWMutex
	jobs map[string]*domain.ScrapeJob
	now  func() time.Time
}

// NewJobRegistry creates an empty registry.
// Returns:
//   - *JobRegistry: registry ready for concurrent use.
func NewJobRegistry() *JobRegistry {
	return &JobRegistry{
		jobs: make(map[string]*domain.ScrapeJob),
		now:  time.Now,
	}
}

// Create inserts a new pending record for jobID.
// Parameters:
//   - jobID: unique job identifier.
//   - url: target URL, kept on the record for reference.
// Returns:
//   - *domain.ScrapeJob: copy of the stored record.
//   - error: domain.ErrDuplicateJob if jobID is already registered.
func (r *JobRegistry) Create(jobID, url string) (*domain.ScrapeJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[jobID]; exists {
		return nil, fmt.Errorf("create %s: %w", jobID, domain.ErrDuplicateJob)
	}

	job := &domain.ScrapeJob{
		JobID:     jobID,
		Status:    domain.JobStatusPending,
		URL:       url,
		CreatedAt: r.now(),
	}
	r.jobs[jobID] = job
	return job.Clone(), nil
}

// Get returns a copy of the record for jobID.
// Returns:
//   - *domain.ScrapeJob: snapshot of the record.
//   - error: domain.ErrJobNotFound if absent.
func (r *JobRegistry) Get(jobID string) (*domain.ScrapeJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", jobID, domain.ErrJobNotFound)
	}
	return job.Clone(), nil
}

// Len returns the number of registered jobs.
func (r *JobRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// Update applies a status transition and its associated fields atomically.
// The update is validated in full before anything is written.
// Parameters:
//   - jobID: job to mutate.
//   - upd: partial update; nil fields are left untouched.
// Returns:
//   - *domain.ScrapeJob: copy of the record after the update.
//   - error: domain.ErrJobNotFound, domain.ErrInvalidTransition,
//     domain.ErrJobTerminal or domain.ErrFieldImmutable.
func (r *JobRegistry) Update(jobID string, upd domain.JobUpdate) (*domain.ScrapeJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("update %s: %w", jobID, domain.ErrJobNotFound)
	}
	if err := validateUpdate(job, upd); err != nil {
		return nil, err
	}

	if upd.VMURL != nil {
		job.VMURL = *upd.VMURL
	}
	if upd.TraceURL != nil {
		job.TraceURL = *upd.TraceURL
	}
	if upd.Status != nil {
		now := r.now()
		job.Status = *upd.Status
		switch job.Status {
		case domain.JobStatusRunning:
			job.StartedAt = &now
		case domain.JobStatusCompleted:
			job.HTMLContent = *upd.HTMLContent
			job.Error = ""
			job.CompletedAt = &now
		case domain.JobStatusFailed:
			job.Error = *upd.Error
			job.HTMLContent = ""
			job.CompletedAt = &now
		}
	}
	return job.Clone(), nil
}

func validateUpdate(job *domain.ScrapeJob, upd domain.JobUpdate) error {
	if upd.Status == nil {
		if job.Status.IsTerminal() {
			return fmt.Errorf("update %s: %w", job.JobID, domain.ErrJobTerminal)
		}
		if upd.HTMLContent != nil || upd.Error != nil {
			return fmt.Errorf("update %s: result fields require a terminal status: %w",
				job.JobID, domain.ErrInvalidTransition)
		}
	} else {
		next := *upd.Status
		if !job.Status.CanTransition(next) {
			return &domain.TransitionError{JobID: job.JobID, From: job.Status, To: next}
		}
		switch next {
		case domain.JobStatusRunning:
			if upd.HTMLContent != nil || upd.Error != nil {
				return fmt.Errorf("update %s: result fields require a terminal status: %w",
					job.JobID, domain.ErrInvalidTransition)
			}
		case domain.JobStatusCompleted:
			if upd.HTMLContent == nil || *upd.HTMLContent == "" || (upd.Error != nil && *upd.Error != "") {
				return fmt.Errorf("update %s: completed requires html content and no error: %w",
					job.JobID, domain.ErrInvalidTransition)
			}
		case domain.JobStatusFailed:
			if upd.Error == nil || *upd.Error == "" || (upd.HTMLContent != nil && *upd.HTMLContent != "") {
				return fmt.Errorf("update %s: failed requires an error and no html content: %w",
					job.JobID, domain.ErrInvalidTransition)
			}
		}
	}

	if upd.VMURL != nil && job.VMURL != "" && job.VMURL != *upd.VMURL {
		return fmt.Errorf("update %s: vm_url: %w", job.JobID, domain.ErrFieldImmutable)
	}
	if upd.TraceURL != nil && job.TraceURL != "" && job.TraceURL != *upd.TraceURL {
		return fmt.Errorf("update %s: trace_url: %w", job.JobID, domain.ErrFieldImmutable)
	}
	return nil
}
