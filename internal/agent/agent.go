// Package agent talks to the hosted computer-use agent and the remote desktop it drives.
//
// The agent's action loop (look at the screen, click, type, repeat) runs entirely
// on the provider side. This package starts a desktop session, hands the task to
// a model run, polls the run until it reports a final answer, and tears the
// session down again.
package agent

import "context"

// Task is one login-and-capture assignment for the agent.
type Task struct {
	JobID    string
	URL      string
	Username string
	Password string
}

// Result is the final outcome of a successful agent run.
type Result struct {
	Output    string
	RunID     string
	SessionID string
	VMURL     string
	TraceURL  string
}

// Observer receives progress that becomes visible before the run finishes.
type Observer interface {
	// SessionStarted is called once the remote desktop is up.
	SessionStarted(vmURL string)
	// RunStarted is called once the model run exists. traceURL is empty when tracing is off.
	RunStarted(runID, traceURL string)
}

// Agent runs a Task to completion.
type Agent interface {
	Run(ctx context.Context, task Task, obs Observer) (*Result, error)
}

// NopObserver ignores all progress callbacks.
type NopObserver struct{}

func (NopObserver) SessionStarted(string)     {}
func (NopObserver) RunStarted(string, string) {}
