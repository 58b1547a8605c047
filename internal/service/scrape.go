package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/loginscraper/internal/agent"
	"github.com/timmy/loginscraper/internal/domain"
	"github.com/timmy/loginscraper/internal/extractor"
	"github.com/timmy/loginscraper/internal/logger"
	"github.com/timmy/loginscraper/internal/prompts"
	"github.com/timmy/loginscraper/internal/repository"
)

const (
	maxResponseInError = 500
	archiveTimeout     = 30 * time.Second
)

// Archiver keeps a history of finished jobs.
type Archiver interface {
	Archive(ctx context.Context, job *domain.ScrapeJob) error
}

// ScrapeService accepts scrape requests and drives each job through its lifecycle.
// The driver of a job is the only writer of its record while the job runs.
type ScrapeService struct {
	registry   *repository.JobRegistry
	agent      agent.Agent
	extractor  *extractor.Extractor
	pool       *Pool
	archiver   Archiver
	logger     *logger.Logger
	jobTimeout time.Duration
	newID      func() string
}

// ScrapeConfig holds configuration for the scrape service.
type ScrapeConfig struct {
	JobTimeout time.Duration
}

// NewScrapeService creates a new scrape service.
// Parameters:
//   - registry: job record store shared with the HTTP handlers.
//   - ag: remote agent that performs the login and capture.
//   - pool: worker pool that runs jobs in the background.
//   - archiver: optional history sink; nil disables archiving.
//   - log: base logger.
//   - cfg: timeouts.
// Returns:
//   - *ScrapeService: initialized service.
func NewScrapeService(
	registry *repository.JobRegistry,
	ag agent.Agent,
	pool *Pool,
	archiver Archiver,
	log *logger.Logger,
	cfg *ScrapeConfig,
) *ScrapeService {
	timeout := cfg.JobTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &ScrapeService{
		registry:   registry,
		agent:      ag,
		extractor:  extractor.New(),
		pool:       pool,
		archiver:   archiver,
		logger:     log,
		jobTimeout: timeout,
		newID:      newJobID,
	}
}

func newJobID() string {
	return "job_" + uuid.New().String()
}

// log returns a logger from context if available, otherwise returns the service logger
func (s *ScrapeService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil && l != logger.GetDefault() {
		return l
	}
	return s.logger
}

// Submit registers a pending job and schedules it on the worker pool.
// Parameters:
//   - ctx: request context, used for logging only.
//   - req: target URL and credentials.
// Returns:
//   - *domain.ScrapeJob: the pending record.
//   - error: domain.ErrQueueFull when no worker slot is free or the pool is not running,
//     domain.ErrShuttingDown if the pool stopped after admission,
//     domain.ErrDuplicateJob if the id generator collides.
func (s *ScrapeService) Submit(ctx context.Context, req domain.ScrapeRequest) (*domain.ScrapeJob, error) {
	if !s.pool.TryAcquire() {
		s.log(ctx).WithField(logger.FieldURL, req.URL).Warn("Scrape request rejected: queue full")
		return nil, domain.ErrQueueFull
	}

	jobID := s.newID()
	job, err := s.registry.Create(jobID, req.URL)
	if err != nil {
		s.pool.Release()
		s.log(ctx).WithField(logger.FieldJobID, jobID).WithError(err).Error("Job id collision")
		return nil, err
	}

	s.log(ctx).WithFields(logger.Fields{
		logger.FieldJobID: jobID,
		logger.FieldURL:   req.URL,
	}).Info("Scrape job accepted")

	jobLog := s.log(ctx)
	err = s.pool.Enqueue(func(poolCtx context.Context) {
		s.execute(jobLog.WithContext(poolCtx), jobID, req)
	})
	if err != nil {
		// Stop ran between admission and hand-off; the record already exists.
		s.abandon(ctx, jobID, "job abandoned: "+domain.ErrShuttingDown.Error())
		return nil, fmt.Errorf("%w: %w", domain.ErrShuttingDown, err)
	}
	return job, nil
}

// GetJob returns the current record of a job.
func (s *ScrapeService) GetJob(ctx context.Context, jobID string) (*domain.ScrapeJob, error) {
	return s.registry.Get(jobID)
}

// RunSync registers a job and drives it on the calling goroutine.
// Parameters:
//   - ctx: bounds the job together with the configured timeout.
//   - req: target URL and credentials.
// Returns:
//   - *domain.ScrapeJob: terminal record.
//   - error: non-nil only if the record itself could not be created or read.
func (s *ScrapeService) RunSync(ctx context.Context, req domain.ScrapeRequest) (*domain.ScrapeJob, error) {
	jobID := s.newID()
	if _, err := s.registry.Create(jobID, req.URL); err != nil {
		return nil, err
	}
	s.execute(ctx, jobID, req)
	return s.registry.Get(jobID)
}

// execute is the job driver: pending -> running -> completed|failed.
func (s *ScrapeService) execute(ctx context.Context, jobID string, req domain.ScrapeRequest) {
	ctx = logger.SetJobID(ctx, jobID)
	ctx = logger.SetURL(ctx, req.URL)
	ctx = logger.SetComponent(ctx, "driver")
	start := time.Now()

	if _, err := s.registry.Update(jobID, domain.ToRunning()); err != nil {
		logger.CtxError(ctx, "Cannot start job: %v", err)
		return
	}
	logger.CtxInfo(ctx, "Scrape job running: timeout=%s", s.jobTimeout)

	upd := s.drive(ctx, jobID, req)
	job := s.finish(ctx, jobID, upd)
	if job == nil {
		return
	}

	entry := logger.With(nil).
		WithDuration(time.Since(start).Milliseconds()).
		WithStatus(string(job.Status))
	if job.Status == domain.JobStatusCompleted {
		entry.WithSize(len(job.HTMLContent)).Info(ctx, "Scrape job completed")
	} else {
		entry.Warn(ctx, "Scrape job failed: %s", job.Error)
	}

	s.archive(ctx, job)
}

// drive runs the remote agent under the job timeout and turns its outcome into a terminal update.
func (s *ScrapeService) drive(ctx context.Context, jobID string, req domain.ScrapeRequest) domain.JobUpdate {
	jobCtx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()

	task := agent.Task{JobID: jobID, URL: req.URL, Username: req.Username, Password: req.Password}
	res, err := s.agent.Run(jobCtx, task, &jobObserver{svc: s, ctx: ctx, jobID: jobID})

	// The budget wins over whatever the agent reported.
	if errors.Is(jobCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return domain.ToFailed(fmt.Sprintf("%v after %s", domain.ErrJobTimeout, s.jobTimeout))
	}
	if err != nil {
		return domain.ToFailed(agentFailureMessage(ctx, err))
	}

	html, strategy, err := s.extractor.Extract(res.Output)
	if err != nil {
		logger.CtxWarn(ctx, "HTML extraction failed: response_length=%d", len(res.Output))
		return domain.ToFailed(extractionFailureMessage(res.Output))
	}
	logger.With(logger.Fields{
		logger.FieldStrategy: strategy,
		logger.FieldSize:     len(html),
	}).Info(ctx, "HTML extracted")
	return domain.ToCompleted(html)
}

// finish applies the terminal update. A rejected completion is a driver defect:
// it is logged and the job is forced to failed.
func (s *ScrapeService) finish(ctx context.Context, jobID string, upd domain.JobUpdate) *domain.ScrapeJob {
	job, err := s.registry.Update(jobID, upd)
	if err == nil {
		return job
	}
	logger.CtxError(ctx, "Terminal update rejected: %v", err)
	if !errors.Is(err, domain.ErrInvalidTransition) || *upd.Status == domain.JobStatusFailed {
		return nil
	}
	job, err = s.registry.Update(jobID, domain.ToFailed("internal error: "+err.Error()))
	if err != nil {
		logger.CtxError(ctx, "Cannot force job to failed: %v", err)
		return nil
	}
	return job
}

// abandon fails a job that never reached a worker.
func (s *ScrapeService) abandon(ctx context.Context, jobID, reason string) {
	if _, err := s.registry.Update(jobID, domain.ToRunning()); err != nil {
		s.log(ctx).WithField(logger.FieldJobID, jobID).WithError(err).Error("Cannot abandon job")
		return
	}
	if _, err := s.registry.Update(jobID, domain.ToFailed(reason)); err != nil {
		s.log(ctx).WithField(logger.FieldJobID, jobID).WithError(err).Error("Cannot abandon job")
	}
}

func (s *ScrapeService) archive(ctx context.Context, job *domain.ScrapeJob) {
	if s.archiver == nil {
		return
	}
	archCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()
	if err := s.archiver.Archive(archCtx, job); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to archive job")
	}
}

func agentFailureMessage(ctx context.Context, err error) string {
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return "job abandoned: " + domain.ErrShuttingDown.Error()
	}
	var rae *domain.RemoteAgentError
	if errors.As(err, &rae) {
		return rae.Error()
	}
	return fmt.Sprintf("agent execution failed: %v", err)
}

// extractionFailureMessage reports known login blockers verbatim and
// otherwise quotes the start of the agent's answer.
func extractionFailureMessage(response string) string {
	trimmed := strings.TrimSpace(response)
	if trimmed == "" {
		return "Agent produced no output or failed to extract HTML."
	}
	if prompts.MentionsBlocker(trimmed) {
		return trimmed
	}
	return "Failed to extract HTML. Agent response: " + firstRunes(trimmed, maxResponseInError)
}

// firstRunes returns at most n characters of s.
func firstRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// jobObserver records progress from the agent onto the job while it runs.
type jobObserver struct {
	svc   *ScrapeService
	ctx   context.Context
	jobID string
}

func (o *jobObserver) SessionStarted(vmURL string) {
	if vmURL == "" {
		return
	}
	if _, err := o.svc.registry.Update(o.jobID, domain.WithVMURL(vmURL)); err != nil {
		logger.CtxWarn(o.ctx, "Cannot record vm_url: %v", err)
	}
}

func (o *jobObserver) RunStarted(runID, traceURL string) {
	if traceURL == "" {
		return
	}
	if _, err := o.svc.registry.Update(o.jobID, domain.WithTraceURL(traceURL)); err != nil {
		logger.CtxWarn(o.ctx, "Cannot record trace_url: %v", err)
	}
}
