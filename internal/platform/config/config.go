package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config is the process configuration, read from environment variables.
type Config struct {
	Port           int    `env:"PORT"            envDefault:"8080"`
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"memory"`
	DatabaseURL    string `env:"DATABASE_URL"`
	SQLitePath     string `env:"SQLITE_PATH"     envDefault:"activities.db"`

	CatalogFile string   `env:"ACTIVITY_CATALOG_FILE"`
	StaticDir   string   `env:"STATIC_DIR"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`

	KafkaBrokers         []string `env:"KAFKA_BROKERS"          envSeparator:","`
	KafkaEnrollmentTopic string   `env:"KAFKA_ENROLLMENT_TOPIC" envDefault:"activity.enrollments"`

	IdempotencyTTL  time.Duration `env:"IDEMPOTENCY_TTL"  envDefault:"24h"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load parses configuration from environ, or from the process environment when environ is nil.
func Load(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))
	cfg.CORSOrigins = trimCSV(cfg.CORSOrigins)
	cfg.KafkaBrokers = trimCSV(cfg.KafkaBrokers)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be in 1..65535, got %d", c.Port))
	}
	switch c.StorageBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORAGE_BACKEND=postgres"))
		}
	case BackendSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required when STORAGE_BACKEND=sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q (want memory|postgres|sqlite)", c.StorageBackend))
	}
	if len(c.KafkaBrokers) > 0 && strings.TrimSpace(c.KafkaEnrollmentTopic) == "" {
		errs = append(errs, errors.New("KAFKA_ENROLLMENT_TOPIC is required when KAFKA_BROKERS is set"))
	}
	if c.IdempotencyTTL <= 0 {
		errs = append(errs, errors.New("IDEMPOTENCY_TTL must be positive"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT must be positive"))
	}
	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func trimCSV(in []string) []string {
	var out []string
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
