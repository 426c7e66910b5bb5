package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"leadscore/pkg/errors"
)

type Config struct {
	App           AppConfig
	Artifacts     ArtifactConfig
	Pipeline      PipelineConfig
	Batch         BatchConfig
	Metrics       MetricsConfig
	Postgres      PostgresConfig
	ClickHouse    ClickHouseConfig
	ErrorTracking ErrorTrackingConfig
	Workers       WorkerConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"leadscore"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

// ArtifactConfig points at the trained classifier and its paired encoder
// manifest. Both are loaded once at startup and immutable afterwards.
type ArtifactConfig struct {
	ModelPath   string `envconfig:"MODEL_PATH" default:"models/enrollment_classifier.onnx"`
	EncoderPath string `envconfig:"ENCODER_MANIFEST_PATH" default:"models/encoder_manifest.json"`
}

// PipelineConfig locates the versioned normalization config document.
// When Path is empty the embedded default tables are used.
type PipelineConfig struct {
	Path string `envconfig:"NORMALIZATION_CONFIG_PATH"`
}

type BatchConfig struct {
	// InputFile triggers one-shot mode: score this file and exit
	InputFile string `envconfig:"BATCH_INPUT_FILE"`
	InboxDir  string `envconfig:"BATCH_INBOX_DIR" default:"inbox"`
	OutputDir string `envconfig:"BATCH_OUTPUT_DIR" default:"scored"`
}

type MetricsConfig struct {
	Enabled    bool   `envconfig:"METRICS_ENABLED" default:"true"`
	ListenAddr string `envconfig:"METRICS_LISTEN_ADDR" default:":9090"`
}

// PostgresConfig configures the optional batch audit sink.
// The sink is disabled when Host is empty.
type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	Database string `envconfig:"POSTGRES_DB" default:"leadscore"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"10"`
}

func (c PostgresConfig) Enabled() bool {
	return c.Host != ""
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// ClickHouseConfig configures the optional scored-lead history sink.
// The sink is disabled when Host is empty.
type ClickHouseConfig struct {
	Host     string `envconfig:"CLICKHOUSE_HOST"`
	Port     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD"`
	Database string `envconfig:"CLICKHOUSE_DB" default:"leadscore"`
}

func (c ClickHouseConfig) Enabled() bool {
	return c.Host != ""
}

func (c ClickHouseConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	Provider    string `envconfig:"ERROR_TRACKING_PROVIDER" default:"sentry"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// WorkerConfig contains intervals for background workers
type WorkerConfig struct {
	InboxScanInterval time.Duration `envconfig:"WORKER_INBOX_SCAN_INTERVAL" default:"1m"` // Look for new exports every minute
	InboxScanEnabled  bool          `envconfig:"WORKER_INBOX_SCAN_ENABLED" default:"true"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
