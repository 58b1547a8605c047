package domain

import "time"

// JobStatus represents the lifecycle status of a scrape job.
// Values include JobStatusPending, JobStatusRunning, JobStatusCompleted, and JobStatusFailed.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal reports whether no further transitions are permitted from s.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransition reports whether moving from s to next follows
// pending -> running -> {completed, failed}.
func (s JobStatus) CanTransition(next JobStatus) bool {
	switch s {
	case JobStatusPending:
		return next == JobStatusRunning
	case JobStatusRunning:
		return next == JobStatusCompleted || next == JobStatusFailed
	default:
		return false
	}
}

// ScrapeJob is the record of one scrape request and its progress.
type ScrapeJob struct {
	JobID       string     `json:"job_id"`
	Status      JobStatus  `json:"status"`
	URL         string     `json:"url,omitempty"`
	VMURL       string     `json:"vm_url,omitempty"`
	HTMLContent string     `json:"html_content,omitempty"`
	Error       string     `json:"error,omitempty"`
	TraceURL    string     `json:"trace_url,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Clone returns a deep copy so callers never share the registry's record.
func (j *ScrapeJob) Clone() *ScrapeJob {
	if j == nil {
		return nil
	}
	cp := *j
	if j.StartedAt != nil {
		t := *j.StartedAt
		cp.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

// JobUpdate describes a partial update applied by the job driver.
// Nil fields are left untouched. Status, when set, must be a valid transition.
type JobUpdate struct {
	Status      *JobStatus
	VMURL       *string
	HTMLContent *string
	Error       *string
	TraceURL    *string
}

// ToRunning builds the update that moves a job out of pending.
func ToRunning() JobUpdate {
	s := JobStatusRunning
	return JobUpdate{Status: &s}
}

// ToCompleted builds the terminal success update.
func ToCompleted(html string) JobUpdate {
	s := JobStatusCompleted
	return JobUpdate{Status: &s, HTMLContent: &html}
}

// ToFailed builds the terminal failure update.
func ToFailed(msg string) JobUpdate {
	s := JobStatusFailed
	return JobUpdate{Status: &s, Error: &msg}
}

// WithVMURL builds an update that records the observer URL of the remote desktop.
func WithVMURL(u string) JobUpdate {
	return JobUpdate{VMURL: &u}
}

// WithTraceURL builds an update that records the trace URL of the agent run.
func WithTraceURL(u string) JobUpdate {
	return JobUpdate{TraceURL: &u}
}

// ScrapeRequest carries the target page and the credentials used to reach it.
type ScrapeRequest struct {
	URL      string `json:"url" binding:"required,url"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}
