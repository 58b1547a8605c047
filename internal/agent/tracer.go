package agent

import (
	"fmt"
	"strings"
)

// Tracer builds LangSmith trace links for agent runs.
type Tracer struct {
	apiKey  string
	uiURL   string
	project string
}

// NewTracer creates a Tracer. Without an API key it is disabled and produces no links.
func NewTracer(apiKey, uiURL, project string) *Tracer {
	if uiURL == "" {
		uiURL = "https://smith.langchain.com"
	}
	return &Tracer{
		apiKey:  apiKey,
		uiURL:   strings.TrimSuffix(uiURL, "/"),
		project: project,
	}
}

// Enabled reports whether trace links are produced.
func (t *Tracer) Enabled() bool {
	return t != nil && t.apiKey != ""
}

// RunURL returns the trace link for runID, or "" when tracing is off.
func (t *Tracer) RunURL(runID string) string {
	if !t.Enabled() || runID == "" {
		return ""
	}
	return fmt.Sprintf("%s/runs/%s", t.uiURL, runID)
}

// Metadata returns the run tags that attach a run to the tracing project.
func (t *Tracer) Metadata(task Task) map[string]string {
	md := map[string]string{"job_id": task.JobID}
	if t.Enabled() {
		md["langsmith_project"] = t.project
		md["langsmith_run_name"] = fmt.Sprintf("Job %s - %s", task.JobID, task.URL)
	}
	return md
}
