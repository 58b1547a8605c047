package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Agent   AgentConfig   `mapstructure:"agent"`
	Desktop DesktopConfig `mapstructure:"desktop"`
	Tracing TracingConfig `mapstructure:"tracing"`
	Workers WorkerConfig  `mapstructure:"workers"`
	Archive ArchiveConfig `mapstructure:"archive"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

// AgentConfig configures the hosted computer-use model that drives the browser.
type AgentConfig struct {
	Model          string        `mapstructure:"model"`
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	Environment    string        `mapstructure:"environment"`
	DisplayWidth   int           `mapstructure:"display_width"`
	DisplayHeight  int           `mapstructure:"display_height"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	JobTimeout     time.Duration `mapstructure:"job_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// DesktopConfig configures the remote virtual-desktop provider.
type DesktopConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	InstanceType string        `mapstructure:"instance_type"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
}

// TracingConfig configures LangSmith run tracing. Tracing is off without an API key.
type TracingConfig struct {
	APIKey  string `mapstructure:"api_key"`
	UIURL   string `mapstructure:"ui_url"`
	Project string `mapstructure:"project"`
}

// Enabled reports whether trace URLs should be produced.
func (c TracingConfig) Enabled() bool {
	return c.APIKey != ""
}

type WorkerConfig struct {
	Count     int `mapstructure:"count"`
	QueueSize int `mapstructure:"queue_size"`
}

// ArchiveConfig configures the optional write-only history of finished jobs.
type ArchiveConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN builds the driver-specific connection string.
// Parameters: none.
// Returns:
//   - string: postgres key/value DSN or sqlite file path.
func (c DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
	}
	return c.Path
}

type StorageConfig struct {
	Type      string `mapstructure:"type"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
	Prefix    string `mapstructure:"prefix"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind the well-known environment variables explicitly
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.mode", "GIN_MODE")
	v.BindEnv("agent.api_key", "OPENAI_API_KEY")
	v.BindEnv("agent.base_url", "OPENAI_BASE_URL")
	v.BindEnv("agent.model", "AGENT_MODEL")
	v.BindEnv("agent.job_timeout", "JOB_TIMEOUT")
	v.BindEnv("desktop.api_key", "SCRAPERABARA_API_KEY")
	v.BindEnv("desktop.base_url", "SCRAPERABARA_BASE_URL")
	v.BindEnv("tracing.api_key", "LANGSMITH_API_KEY")
	v.BindEnv("tracing.project", "LANGSMITH_PROJECT")
	v.BindEnv("workers.count", "SCRAPE_WORKERS")
	v.BindEnv("archive.enabled", "ARCHIVE_ENABLED")
	v.BindEnv("archive.database.driver", "DATABASE_DRIVER")
	v.BindEnv("archive.database.path", "DATABASE_PATH")
	v.BindEnv("archive.database.host", "DATABASE_HOST")
	v.BindEnv("archive.database.user", "DATABASE_USER")
	v.BindEnv("archive.database.password", "DATABASE_PASSWORD")
	v.BindEnv("archive.storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("archive.storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("archive.storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("archive.storage.bucket", "STORAGE_BUCKET")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("agent.model", "computer-use-preview")
	v.SetDefault("agent.api_key", "")
	v.SetDefault("agent.base_url", "https://api.openai.com/v1")
	v.SetDefault("agent.environment", "browser")
	v.SetDefault("agent.display_width", 1024)
	v.SetDefault("agent.display_height", 768)
	v.SetDefault("agent.poll_interval", "2s")
	v.SetDefault("agent.job_timeout", "10m")
	v.SetDefault("agent.request_timeout", "60s")

	v.SetDefault("desktop.api_key", "")
	v.SetDefault("desktop.base_url", "https://api.scrapybara.com")
	v.SetDefault("desktop.instance_type", "browser")
	v.SetDefault("desktop.session_ttl", "15m")

	v.SetDefault("tracing.api_key", "")
	v.SetDefault("tracing.ui_url", "https://smith.langchain.com")
	v.SetDefault("tracing.project", "login_scraper_agent")

	v.SetDefault("workers.count", 4)
	v.SetDefault("workers.queue_size", 64)

	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.database.driver", "sqlite")
	v.SetDefault("archive.database.path", "./data/jobs.db")
	v.SetDefault("archive.database.host", "localhost")
	v.SetDefault("archive.database.port", 5432)
	v.SetDefault("archive.database.user", "")
	v.SetDefault("archive.database.password", "")
	v.SetDefault("archive.database.dbname", "loginscraper")
	v.SetDefault("archive.database.sslmode", "disable")
	v.SetDefault("archive.database.max_idle_conns", 2)
	v.SetDefault("archive.database.max_open_conns", 10)
	v.SetDefault("archive.database.conn_max_lifetime", "30m")
	v.SetDefault("archive.database.auto_migrate", true)
	v.SetDefault("archive.storage.type", "")
	v.SetDefault("archive.storage.endpoint", "localhost:9000")
	v.SetDefault("archive.storage.access_key", "")
	v.SetDefault("archive.storage.secret_key", "")
	v.SetDefault("archive.storage.use_ssl", false)
	v.SetDefault("archive.storage.bucket", "scrapes")
	v.SetDefault("archive.storage.region", "")
	v.SetDefault("archive.storage.public_url", "")
	v.SetDefault("archive.storage.prefix", "jobs")
}

// Validate checks required credentials and numeric bounds.
// Parameters: none.
// Returns:
//   - error: non-nil describing every problem found.
func (c *Config) Validate() error {
	var missing []string
	if c.Agent.APIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.Desktop.APIKey == "" {
		missing = append(missing, "SCRAPERABARA_API_KEY")
	}

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", ")))
	}
	if c.Workers.Count <= 0 {
		errs = append(errs, fmt.Errorf("workers.count must be positive, got %d", c.Workers.Count))
	}
	if c.Workers.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("workers.queue_size must be positive, got %d", c.Workers.QueueSize))
	}
	if c.Agent.JobTimeout <= 0 {
		errs = append(errs, fmt.Errorf("agent.job_timeout must be positive, got %s", c.Agent.JobTimeout))
	}
	if c.Agent.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("agent.poll_interval must be positive, got %s", c.Agent.PollInterval))
	}
	return errors.Join(errs...)
}
