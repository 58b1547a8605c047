package logger

import (
	"io"
	"os"
	"strconv"
)

// RotationConfig controls the rotated log file written outside local environments.
type RotationConfig struct {
	File       string // path of the active log file
	FileOnly   bool   // skip stdout when a file is written
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// EnvConfig is the process logger configuration read from LOG_* variables.
type EnvConfig struct {
	Config
	Environment string // local, dev, prod
	Rotation    RotationConfig
}

// rotates reports whether log output also goes to a rotated file.
func (e *EnvConfig) rotates() bool {
	return e.Environment != "local" && e.Rotation.File != ""
}

// stdout reports whether log output goes to stdout.
func (e *EnvConfig) stdout() bool {
	return !e.rotates() || !e.Rotation.FileOnly
}

// LoadFromEnv reads logger settings from the environment.
// The scraper binaries log JSON to stdout by default; APP_ENV other than
// "local" adds a rotated file under /var/log/loginscraper.
func LoadFromEnv() *EnvConfig {
	env := envReader(os.Getenv)
	return &EnvConfig{
		Config: Config{
			Level:       env.str("LOG_LEVEL", "info"),
			Format:      env.str("LOG_FORMAT", "json"),
			ServiceName: env.str("SERVICE_NAME", "loginscraper"),
		},
		Environment: env.str("APP_ENV", "local"),
		Rotation: RotationConfig{
			File:       env.str("LOG_FILE", "/var/log/loginscraper/app.log"),
			FileOnly:   env.boolean("LOG_FILE_ONLY", false),
			MaxSizeMB:  env.integer("LOG_MAX_SIZE", 100),
			MaxBackups: env.integer("LOG_MAX_BACKUPS", 7),
			MaxAgeDays: env.integer("LOG_MAX_AGE", 30),
			Compress:   env.boolean("LOG_COMPRESS", true),
		},
	}
}

// envReader looks variables up through a getter so tests can stub the environment.
type envReader func(string) string

func (r envReader) str(key, def string) string {
	if v := r(key); v != "" {
		return v
	}
	return def
}

func (r envReader) boolean(key string, def bool) bool {
	b, err := strconv.ParseBool(r(key))
	if err != nil {
		return def
	}
	return b
}

func (r envReader) integer(key string, def int) int {
	i, err := strconv.Atoi(r(key))
	if err != nil {
		return def
	}
	return i
}

// writers returns the destinations selected by the configuration.
func (e *EnvConfig) writers(file io.Writer) []io.Writer {
	var out []io.Writer
	if e.stdout() {
		out = append(out, os.Stdout)
	}
	if file != nil {
		out = append(out, file)
	}
	return out
}
