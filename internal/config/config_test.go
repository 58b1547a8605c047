package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("SCRAPERABARA_API_KEY", "sb-test")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "sk-test", cfg.Agent.APIKey)
	assert.Equal(t, "sb-test", cfg.Desktop.APIKey)
	assert.Equal(t, "computer-use-preview", cfg.Agent.Model)
	assert.Equal(t, 2*time.Second, cfg.Agent.PollInterval)
	assert.Equal(t, 10*time.Minute, cfg.Agent.JobTimeout)
	assert.Equal(t, 4, cfg.Workers.Count)
	assert.False(t, cfg.Tracing.Enabled())
	assert.False(t, cfg.Archive.Enabled)
}

func TestLoad_MissingRequiredKeys(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("SCRAPERABARA_API_KEY", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
	assert.Contains(t, err.Error(), "SCRAPERABARA_API_KEY")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("SCRAPERABARA_API_KEY", "sb-test")
	t.Setenv("LANGSMITH_API_KEY", "ls-test")
	t.Setenv("PORT", "9090")
	t.Setenv("JOB_TIMEOUT", "90s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 90*time.Second, cfg.Agent.JobTimeout)
	assert.True(t, cfg.Tracing.Enabled())
}

func TestLoad_ConfigFile(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("SCRAPERABARA_API_KEY", "sb-test")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
workers:
  count: 2
  queue_size: 8
archive:
  enabled: true
  database:
    driver: postgres
    host: db.internal
    user: scraper
    dbname: jobs
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Workers.Count)
	assert.Equal(t, 8, cfg.Workers.QueueSize)
	assert.True(t, cfg.Archive.Enabled)
	assert.Equal(t,
		"host=db.internal port=5432 user=scraper password= dbname=jobs sslmode=disable",
		cfg.Archive.Database.DSN())
}

func TestValidate_Bounds(t *testing.T) {
	cfg := &Config{
		Agent:   AgentConfig{APIKey: "a", PollInterval: time.Second, JobTimeout: time.Minute},
		Desktop: DesktopConfig{APIKey: "b"},
		Workers: WorkerConfig{Count: 0, QueueSize: 1},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers.count")
}
