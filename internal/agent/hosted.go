package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/timmy/loginscraper/internal/domain"
	"github.com/timmy/loginscraper/internal/logger"
	"github.com/timmy/loginscraper/internal/prompts"
)

const stopSessionTimeout = 15 * time.Second

// HostedAgent runs tasks on a provider desktop driven by a hosted computer-use model.
type HostedAgent struct {
	desktop      *DesktopClient
	runs         *RunClient
	tracer       *Tracer
	pollInterval time.Duration
}

// NewHostedAgent wires the desktop, run and tracing clients together.
// Parameters:
//   - desktop: remote desktop session client.
//   - runs: model run client.
//   - tracer: trace link builder; may be disabled.
//   - pollInterval: delay between run status checks.
// Returns:
//   - *HostedAgent: agent ready to run tasks.
func NewHostedAgent(desktop *DesktopClient, runs *RunClient, tracer *Tracer, pollInterval time.Duration) *HostedAgent {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &HostedAgent{
		desktop:      desktop,
		runs:         runs,
		tracer:       tracer,
		pollInterval: pollInterval,
	}
}

// Run starts a desktop, hands the task to a model run and waits for the final answer.
// The desktop is always stopped before Run returns.
// Parameters:
//   - ctx: bounds the whole run; cancellation aborts polling.
//   - task: target URL and credentials.
//   - obs: receives the VM and trace URLs as soon as they are known.
// Returns:
//   - *Result: the agent's final textual answer and identifiers.
//   - error: *domain.RemoteAgentError, or the context error on cancellation.
func (a *HostedAgent) Run(ctx context.Context, task Task, obs Observer) (*Result, error) {
	if obs == nil {
		obs = NopObserver{}
	}

	sess, err := a.desktop.Start(ctx)
	if err != nil {
		return nil, err
	}
	ctx = logger.WithField(ctx, logger.FieldSessionID, sess.ID)
	defer a.stopSession(ctx, sess.ID)

	logger.CtxInfo(ctx, "Desktop session started: stream_url=%s", sess.StreamURL)
	obs.SessionStarted(sess.StreamURL)

	run, err := a.runs.Create(ctx, sess.ID,
		prompts.LoginScraperSystemPrompt,
		prompts.LoginScraperUserPrompt(task.URL, task.Username),
		task,
		a.tracer.Metadata(task),
	)
	if err != nil {
		return nil, err
	}
	ctx = logger.WithField(ctx, logger.FieldRunID, run.ID)

	traceURL := a.tracer.RunURL(run.ID)
	logger.CtxInfo(ctx, "Agent run created: model=%s, status=%s, tracing=%v",
		a.runs.GetModel(), run.Status, a.tracer.Enabled())
	obs.RunStarted(run.ID, traceURL)

	final, err := a.await(ctx, run)
	if err != nil {
		return nil, err
	}

	return &Result{
		Output:    final.Output,
		RunID:     final.ID,
		SessionID: sess.ID,
		VMURL:     sess.StreamURL,
		TraceURL:  traceURL,
	}, nil
}

// await polls the run until it is done or ctx ends.
func (a *HostedAgent) await(ctx context.Context, run *Run) (*Run, error) {
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	polls := 0
	for !run.Status.Done() {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for run %s: %w", run.ID, ctx.Err())
		case <-ticker.C:
		}

		next, err := a.runs.Get(ctx, run.ID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("waiting for run %s: %w", run.ID, ctxErr)
			}
			return nil, err
		}
		polls++
		if next.Status != run.Status {
			logger.CtxDebug(ctx, "Agent run status changed: %s -> %s, polls=%d", run.Status, next.Status, polls)
		}
		run = next
	}

	if run.Status != RunStatusCompleted {
		msg := fmt.Sprintf("run ended with status %s", run.Status)
		if run.Error != nil && run.Error.Message != "" {
			msg = fmt.Sprintf("%s: %s", msg, run.Error.Message)
		}
		return nil, &domain.RemoteAgentError{Stage: "run", Message: msg}
	}
	return run, nil
}

func (a *HostedAgent) stopSession(ctx context.Context, sessionID string) {
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopSessionTimeout)
	defer cancel()

	if err := a.desktop.Stop(stopCtx, sessionID); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to stop desktop session")
		return
	}
	logger.CtxDebug(ctx, "Desktop session stopped")
}
