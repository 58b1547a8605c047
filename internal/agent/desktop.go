package agent

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/loginscraper/internal/domain"
)

// DesktopClient manages sessions on the remote virtual-desktop provider.
type DesktopClient struct {
	client       *resty.Client
	baseURL      string
	instanceType string
	sessionTTL   time.Duration
}

// DesktopConfig holds configuration for the desktop provider client.
type DesktopConfig struct {
	APIKey       string
	BaseURL      string
	InstanceType string
	SessionTTL   time.Duration
	Timeout      time.Duration
}

// Session is a running remote desktop.
type Session struct {
	ID        string `json:"id"`
	StreamURL string `json:"stream_url"`
	Status    string `json:"status"`
}

type startSessionRequest struct {
	InstanceType   string `json:"instance_type"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

type providerError struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
}

func (e providerError) text() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Message
}

// NewDesktopClient creates a desktop provider client.
// Parameters:
//   - cfg: provider endpoint, credentials and session settings.
// Returns:
//   - *DesktopClient: initialized client.
func NewDesktopClient(cfg *DesktopConfig) *DesktopClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client := resty.New()
	client.SetHeader("x-api-key", cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(timeout)

	return &DesktopClient{
		client:       client,
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		instanceType: cfg.InstanceType,
		sessionTTL:   cfg.SessionTTL,
	}
}

// Start boots a new desktop session.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - *Session: session id and observer stream URL.
//   - error: *domain.RemoteAgentError on transport or provider failure.
func (c *DesktopClient) Start(ctx context.Context) (*Session, error) {
	req := startSessionRequest{
		InstanceType:   c.instanceType,
		TimeoutSeconds: int(c.sessionTTL.Seconds()),
	}

	var sess Session
	var perr providerError
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&sess).
		SetError(&perr).
		Post(c.baseURL + "/v1/sessions")
	if err != nil {
		return nil, &domain.RemoteAgentError{Stage: "session", Message: "failed to start desktop", Cause: err}
	}
	if resp.IsError() {
		return nil, &domain.RemoteAgentError{
			Stage:   "session",
			Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode(), errorText(perr.text(), resp.Body())),
		}
	}
	if sess.ID == "" {
		return nil, &domain.RemoteAgentError{Stage: "session", Message: "provider returned no session id"}
	}
	return &sess, nil
}

// Stop shuts a desktop session down. Unknown sessions are not an error.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - sessionID: session to stop.
// Returns:
//   - error: *domain.RemoteAgentError on transport or provider failure.
func (c *DesktopClient) Stop(ctx context.Context, sessionID string) error {
	var perr providerError
	resp, err := c.client.R().
		SetContext(ctx).
		SetError(&perr).
		SetPathParam("id", sessionID).
		Post(c.baseURL + "/v1/sessions/{id}/stop")
	if err != nil {
		return &domain.RemoteAgentError{Stage: "session", Message: "failed to stop desktop", Cause: err}
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil
	}
	if resp.IsError() {
		return &domain.RemoteAgentError{
			Stage:   "session",
			Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode(), errorText(perr.text(), resp.Body())),
		}
	}
	return nil
}

// errorText prefers the decoded provider message and falls back to the raw body.
func errorText(decoded string, body []byte) string {
	if decoded != "" {
		return decoded
	}
	return truncate(strings.TrimSpace(string(body)), 300)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
