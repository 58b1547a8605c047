package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/loginscraper/internal/config"
	"github.com/timmy/loginscraper/internal/domain"
)

// fakeProvider serves both the desktop and the model run APIs.
type fakeProvider struct {
	mu          sync.Mutex
	finalStatus RunStatus
	output      string
	pollsBefore int32
	polls       atomic.Int32
	stopped     atomic.Int32
	created     createRunRequest
	failStart   bool
	hangPolls   bool
}

func (f *fakeProvider) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /desktop/v1/sessions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sb-key", r.Header.Get("x-api-key"))
		if f.failStart {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusPaymentRequired)
			_, _ = w.Write([]byte(`{"detail":"out of credits"}`))
			return
		}
		writeJSON(w, Session{ID: "sess-1", StreamURL: "https://vm.example/stream/sess-1", Status: "running"})
	})
	mux.HandleFunc("POST /desktop/v1/sessions/{id}/stop", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sess-1", r.PathValue("id"))
		f.stopped.Add(1)
		writeJSON(w, map[string]string{"status": "stopped"})
	})
	mux.HandleFunc("POST /model/runs", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-key", r.Header.Get("Authorization"))
		f.mu.Lock()
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&f.created))
		f.mu.Unlock()
		writeJSON(w, Run{ID: "run-1", Status: RunStatusQueued})
	})
	mux.HandleFunc("GET /model/runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		n := f.polls.Add(1)
		if f.hangPolls || n <= f.pollsBefore {
			writeJSON(w, Run{ID: "run-1", Status: RunStatusInProgress})
			return
		}
		run := Run{ID: "run-1", Status: f.finalStatus, Output: f.output}
		if f.finalStatus == RunStatusFailed {
			run.Error = &struct {
				Message string `json:"message"`
				Type    string `json:"type"`
			}{Message: "site unreachable", Type: "agent_error"}
		}
		writeJSON(w, run)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestAgent(srv *httptest.Server, tracingKey string) *HostedAgent {
	desktop := NewDesktopClient(&DesktopConfig{
		APIKey:       "sb-key",
		BaseURL:      srv.URL + "/desktop",
		InstanceType: "browser",
		SessionTTL:   time.Minute,
	})
	runs := NewRunClient(&RunConfig{
		APIKey:        "sk-key",
		BaseURL:       srv.URL + "/model/",
		Model:         "computer-use-preview",
		Environment:   "browser",
		DisplayWidth:  1024,
		DisplayHeight: 768,
	})
	return NewHostedAgent(desktop, runs, NewTracer(tracingKey, "https://smith.example", "proj"), 5*time.Millisecond)
}

type recordingObserver struct {
	vmURL    string
	runID    string
	traceURL string
}

func (o *recordingObserver) SessionStarted(vmURL string) { o.vmURL = vmURL }
func (o *recordingObserver) RunStarted(runID, traceURL string) {
	o.runID, o.traceURL = runID, traceURL
}

func TestHostedAgent_RunCompleted(t *testing.T) {
	fp := &fakeProvider{finalStatus: RunStatusCompleted, output: "```html\n<html></html>\n```", pollsBefore: 2}
	srv := httptest.NewServer(fp.handler(t))
	defer srv.Close()

	obs := &recordingObserver{}
	task := Task{JobID: "job_1", URL: "https://example.com/login", Username: "alice", Password: "s3cret"}
	res, err := newTestAgent(srv, "ls-key").Run(context.Background(), task, obs)
	require.NoError(t, err)

	assert.Equal(t, fp.output, res.Output)
	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, "https://vm.example/stream/sess-1", res.VMURL)
	assert.Equal(t, "https://smith.example/runs/run-1", res.TraceURL)
	assert.Equal(t, res.VMURL, obs.vmURL)
	assert.Equal(t, res.TraceURL, obs.traceURL)
	assert.EqualValues(t, 1, fp.stopped.Load(), "session must be stopped")
	assert.EqualValues(t, 3, fp.polls.Load())

	fp.mu.Lock()
	defer fp.mu.Unlock()
	assert.Equal(t, "sess-1", fp.created.SessionID)
	assert.Equal(t, "s3cret", fp.created.Credentials.Password)
	require.Len(t, fp.created.Messages, 2)
	assert.NotContains(t, fp.created.Messages[1].Content, "s3cret", "password must not appear in the prompt")
	assert.Contains(t, fp.created.Messages[1].Content, "https://example.com/login")
	assert.Equal(t, "proj", fp.created.Metadata["langsmith_project"])
}

func TestHostedAgent_TracingDisabled(t *testing.T) {
	fp := &fakeProvider{finalStatus: RunStatusCompleted, output: "done"}
	srv := httptest.NewServer(fp.handler(t))
	defer srv.Close()

	obs := &recordingObserver{}
	res, err := newTestAgent(srv, "").Run(context.Background(), Task{JobID: "job_1"}, obs)
	require.NoError(t, err)
	assert.Empty(t, res.TraceURL)
	assert.Equal(t, "run-1", obs.runID)
	assert.Empty(t, obs.traceURL)
}

func TestHostedAgent_RunFailed(t *testing.T) {
	fp := &fakeProvider{finalStatus: RunStatusFailed}
	srv := httptest.NewServer(fp.handler(t))
	defer srv.Close()

	_, err := newTestAgent(srv, "").Run(context.Background(), Task{JobID: "job_1"}, nil)
	require.Error(t, err)

	var rae *domain.RemoteAgentError
	require.True(t, errors.As(err, &rae))
	assert.Equal(t, "run", rae.Stage)
	assert.Contains(t, rae.Message, "site unreachable")
	assert.EqualValues(t, 1, fp.stopped.Load())
}

func TestHostedAgent_SessionStartFails(t *testing.T) {
	fp := &fakeProvider{failStart: true}
	srv := httptest.NewServer(fp.handler(t))
	defer srv.Close()

	_, err := newTestAgent(srv, "").Run(context.Background(), Task{JobID: "job_1"}, nil)
	var rae *domain.RemoteAgentError
	require.True(t, errors.As(err, &rae))
	assert.Equal(t, "session", rae.Stage)
	assert.True(t, strings.Contains(rae.Message, "402") && strings.Contains(rae.Message, "out of credits"), rae.Message)
	assert.Zero(t, fp.stopped.Load())
}

func TestHostedAgent_DeadlineAbortsPolling(t *testing.T) {
	fp := &fakeProvider{hangPolls: true}
	srv := httptest.NewServer(fp.handler(t))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestAgent(srv, "").Run(ctx, Task{JobID: "job_1"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.EqualValues(t, 1, fp.stopped.Load(), "session must be stopped even after the deadline")
}

func TestRunStatus_Done(t *testing.T) {
	assert.False(t, RunStatusQueued.Done())
	assert.False(t, RunStatusInProgress.Done())
	assert.True(t, RunStatusCompleted.Done())
	assert.True(t, RunStatusFailed.Done())
	assert.True(t, RunStatusCancelled.Done())
	assert.True(t, RunStatusExpired.Done())
}

func TestNewFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Agent.APIKey = "sk-key"
	cfg.Agent.PollInterval = 3 * time.Second
	cfg.Desktop.APIKey = "sb-key"
	cfg.Desktop.BaseURL = "https://desktop.example/"

	a := NewFromConfig(cfg)
	assert.Equal(t, 3*time.Second, a.pollInterval)
	assert.Equal(t, "https://desktop.example", a.desktop.baseURL)
	assert.Equal(t, "https://api.openai.com/v1", a.runs.baseURL)
	assert.False(t, a.tracer.Enabled())

	cfg.Tracing.APIKey = "ls-key"
	assert.Equal(t, "https://smith.langchain.com/runs/r1", NewFromConfig(cfg).tracer.RunURL("r1"))
}

func TestDesktopClient_StopEscapesSessionID(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.EscapedPath()
		writeJSON(w, map[string]string{"status": "stopped"})
	}))
	defer srv.Close()

	c := NewDesktopClient(&DesktopConfig{APIKey: "sb-key", BaseURL: srv.URL})
	require.NoError(t, c.Stop(context.Background(), "sess/1?x"))
	assert.Equal(t, "/v1/sessions/sess%2F1%3Fx/stop", path)
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "aa...", truncate("aaé", 3))
	assert.Equal(t, "aaé...", truncate("aaéb", 4))
}
