package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &out))
	return out
}

func TestContextFieldsPropagate(t *testing.T) {
	var buf bytes.Buffer
	base := New(&Config{Level: "debug", Format: "json", Output: &buf, ServiceName: "test"})

	ctx := base.WithContext(context.Background())
	ctx = SetRequestID(ctx, "req-1")
	ctx = SetJobID(ctx, "job_1")
	ctx = SetURL(ctx, "https://example.com")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Empty(t, GetRequestID(context.Background()))

	CtxInfo(ctx, "hello %s", "world")
	line := decodeLine(t, &buf)
	assert.Equal(t, "hello world", line["message"])
	assert.Equal(t, "job_1", line[FieldJobID])
	assert.Equal(t, "req-1", line[FieldRequestID])
	assert.Equal(t, "https://example.com", line[FieldURL])
	assert.Equal(t, "test", line["service"])
	assert.Equal(t, "info", line["level"])
}

func TestEntryMetricFields(t *testing.T) {
	var buf bytes.Buffer
	base := New(&Config{Level: "info", Format: "json", Output: &buf, ServiceName: "test"})
	ctx := SetComponent(base.WithContext(context.Background()), "driver")

	With(nil).WithDuration(42).WithStatus("completed").WithSize(10).Info(ctx, "done")

	line := decodeLine(t, &buf)
	assert.Equal(t, "driver", line[FieldComponent])
	assert.Equal(t, float64(42), line[FieldDurationMs])
	assert.Equal(t, "completed", line[FieldStatus])
	assert.Equal(t, float64(10), line[FieldSize])
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.Same(t, GetDefault(), FromContext(context.Background()))
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	base := New(&Config{Level: "warn", Format: "text", Output: &buf, ServiceName: "test"})
	ctx := base.WithContext(context.Background())

	CtxInfo(ctx, "suppressed")
	assert.Zero(t, buf.Len())

	CtxWarn(ctx, "kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("APP_ENV", "prod")
	t.Setenv("LOG_FILE_ONLY", "true")
	t.Setenv("LOG_MAX_SIZE", "not-a-number")

	cfg := LoadFromEnv()
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, 100, cfg.Rotation.MaxSizeMB)
	assert.True(t, cfg.rotates())
	assert.False(t, cfg.stdout())

	var file bytes.Buffer
	assert.Len(t, cfg.writers(&file), 1)

	cfg.Environment = "local"
	assert.False(t, cfg.rotates())
	assert.True(t, cfg.stdout())
	assert.Len(t, cfg.writers(nil), 1)
}
