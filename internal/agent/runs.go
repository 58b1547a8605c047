package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/loginscraper/internal/domain"
)

// RunStatus is the provider-side state of a model run.
type RunStatus string

const (
	RunStatusQueued     RunStatus = "queued"
	RunStatusInProgress RunStatus = "in_progress"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
	RunStatusCancelled  RunStatus = "cancelled"
	RunStatusExpired    RunStatus = "expired"
)

// Done reports whether the run will not change state again.
func (s RunStatus) Done() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled, RunStatusExpired:
		return true
	}
	return false
}

// RunClient creates and inspects computer-use model runs on an OpenAI-compatible endpoint.
type RunClient struct {
	client  *resty.Client
	baseURL string
	model   string
	env     string
	width   int
	height  int
}

// RunConfig holds configuration for the model run client.
type RunConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	Environment   string
	DisplayWidth  int
	DisplayHeight int
	Timeout       time.Duration
}

type runMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type runCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type runTool struct {
	Type          string `json:"type"`
	DisplayWidth  int    `json:"display_width"`
	DisplayHeight int    `json:"display_height"`
	Environment   string `json:"environment"`
}

type createRunRequest struct {
	Model       string            `json:"model"`
	SessionID   string            `json:"session_id"`
	Tools       []runTool         `json:"tools"`
	Messages    []runMessage      `json:"messages"`
	Credentials runCredentials    `json:"credentials"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Run is the provider view of a model run.
type Run struct {
	ID     string    `json:"id"`
	Status RunStatus `json:"status"`
	Output string    `json:"output"`
	Error  *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

type runErrorBody struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (b runErrorBody) text() string {
	if b.Error != nil {
		return b.Error.Message
	}
	return ""
}

// NewRunClient creates a model run client.
// Parameters:
//   - cfg: endpoint, model and display settings.
// Returns:
//   - *RunClient: initialized client.
func NewRunClient(cfg *RunConfig) *RunClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(timeout)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &RunClient{
		client:  client,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   cfg.Model,
		env:     cfg.Environment,
		width:   cfg.DisplayWidth,
		height:  cfg.DisplayHeight,
	}
}

// GetModel returns the model name being used.
func (c *RunClient) GetModel() string {
	return c.model
}

// Create starts a run on the given desktop session.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - sessionID: desktop the agent should operate.
//   - system, user: prompt messages.
//   - task: supplies the login credentials, sent outside the prompt.
//   - metadata: free-form tags (job id, trace project).
// Returns:
//   - *Run: created run.
//   - error: *domain.RemoteAgentError on failure.
func (c *RunClient) Create(ctx context.Context, sessionID, system, user string, task Task, metadata map[string]string) (*Run, error) {
	req := createRunRequest{
		Model:     c.model,
		SessionID: sessionID,
		Tools: []runTool{{
			Type:          "computer_use_preview",
			DisplayWidth:  c.width,
			DisplayHeight: c.height,
			Environment:   c.env,
		}},
		Messages: []runMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Credentials: runCredentials{Username: task.Username, Password: task.Password},
		Metadata:    metadata,
	}

	var run Run
	var ebody runErrorBody
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&run).
		SetError(&ebody).
		Post(c.baseURL + "/runs")
	if err != nil {
		return nil, &domain.RemoteAgentError{Stage: "run", Message: "failed to create run", Cause: err}
	}
	if resp.IsError() {
		return nil, &domain.RemoteAgentError{
			Stage:   "run",
			Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode(), errorText(ebody.text(), resp.Body())),
		}
	}
	if run.ID == "" {
		return nil, &domain.RemoteAgentError{Stage: "run", Message: "provider returned no run id"}
	}
	return &run, nil
}

// Get fetches the current state of a run.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - runID: run to inspect.
// Returns:
//   - *Run: current run state.
//   - error: *domain.RemoteAgentError on failure.
func (c *RunClient) Get(ctx context.Context, runID string) (*Run, error) {
	var run Run
	var ebody runErrorBody
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&run).
		SetError(&ebody).
		SetPathParam("id", runID).
		Get(c.baseURL + "/runs/{id}")
	if err != nil {
		return nil, &domain.RemoteAgentError{Stage: "poll", Message: "failed to fetch run", Cause: err}
	}
	if resp.IsError() {
		return nil, &domain.RemoteAgentError{
			Stage:   "poll",
			Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode(), errorText(ebody.text(), resp.Body())),
		}
	}
	return &run, nil
}
