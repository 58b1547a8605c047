package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrJobNotFound is returned when a job id is unknown to the registry.
	ErrJobNotFound = errors.New("job not found")

	// ErrDuplicateJob is returned when a job id is already registered.
	ErrDuplicateJob = errors.New("duplicate job id")

	// ErrInvalidTransition is returned when a status change skips or reverses the lifecycle.
	ErrInvalidTransition = errors.New("invalid job status transition")

	// ErrJobTerminal is returned when a field update targets a completed or failed job.
	ErrJobTerminal = errors.New("job is in a terminal state")

	// ErrFieldImmutable is returned when an update rewrites a field that may only be set once.
	ErrFieldImmutable = errors.New("job field already set")

	// ErrExtractionFailed is returned when no HTML document could be recovered from the agent response.
	ErrExtractionFailed = errors.New("no html content found in agent response")

	// ErrQueueFull is returned when the worker pool cannot accept another job.
	ErrQueueFull = errors.New("scrape queue is full")

	// ErrShuttingDown is returned when a job is accepted while the workers are stopping.
	ErrShuttingDown = errors.New("scrape service is shutting down")

	// ErrJobTimeout is returned when a job exceeds its wall-clock budget.
	ErrJobTimeout = errors.New("scrape job timed out")
)

// RemoteAgentError reports a failure from the hosted agent, its model, or the remote desktop.
type RemoteAgentError struct {
	Stage   string // session, run, poll
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *RemoteAgentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("remote agent %s: %s: %v", e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("remote agent %s: %s", e.Stage, e.Message)
}

// Unwrap returns the underlying cause.
func (e *RemoteAgentError) Unwrap() error {
	return e.Cause
}

// TransitionError records the offending statuses of an ErrInvalidTransition.
type TransitionError struct {
	JobID string
	From  JobStatus
	To    JobStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("job %s: %s -> %s: %v", e.JobID, e.From, e.To, ErrInvalidTransition)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
