package agent

import "github.com/timmy/loginscraper/internal/config"

// NewFromConfig wires the desktop, model and tracing clients from application config.
func NewFromConfig(cfg *config.Config) *HostedAgent {
	desktop := NewDesktopClient(&DesktopConfig{
		APIKey:       cfg.Desktop.APIKey,
		BaseURL:      cfg.Desktop.BaseURL,
		InstanceType: cfg.Desktop.InstanceType,
		SessionTTL:   cfg.Desktop.SessionTTL,
		Timeout:      cfg.Agent.RequestTimeout,
	})
	runs := NewRunClient(&RunConfig{
		APIKey:        cfg.Agent.APIKey,
		BaseURL:       cfg.Agent.BaseURL,
		Model:         cfg.Agent.Model,
		Environment:   cfg.Agent.Environment,
		DisplayWidth:  cfg.Agent.DisplayWidth,
		DisplayHeight: cfg.Agent.DisplayHeight,
		Timeout:       cfg.Agent.RequestTimeout,
	})

	tracer := NewTracer(cfg.Tracing.APIKey, cfg.Tracing.UIURL, cfg.Tracing.Project)
	return NewHostedAgent(desktop, runs, tracer, cfg.Agent.PollInterval)
}
