package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, propagated through the call chain via context.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldJobID is the scrape job ID
	FieldJobID = "job_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldURL is the target page of a scrape job
	FieldURL = "url"

	// FieldRunID is the remote agent run ID
	FieldRunID = "run_id"

	// FieldSessionID is the remote desktop session ID
	FieldSessionID = "session_id"
)

// Metric fields, attached to single entries for aggregation and alerting.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation or job status
	FieldStatus = "status"

	// FieldStrategy is the HTML extraction strategy that matched
	FieldStrategy = "strategy"
)
