// Package config loads application configuration from defaults, an optional
// YAML file and PAGELITE_ environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables read by Load.
// Nested keys are separated by a double underscore: PAGELITE_SERVER__PORT.
const EnvPrefix = "PAGELITE_"

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the root application configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Storage       StorageConfig       `koanf:"storage"`
	Database      DatabaseConfig      `koanf:"database"`
	Log           LogConfig           `koanf:"log"`
	CORS          CORSConfig          `koanf:"cors"`
	Pages         PagesConfig         `koanf:"pages"`
	Security      SecurityConfig      `koanf:"security"`
	Notifications NotificationsConfig `koanf:"notifications"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port"`
	MetricsPort       string        `koanf:"metrics_port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

// StorageConfig selects the page store.
type StorageConfig struct {
	Driver     string `koanf:"driver"`
	SQLitePath string `koanf:"sqlite_path"`
}

// DatabaseConfig contains PostgreSQL settings.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	ConnectAttempts int           `koanf:"connect_attempts"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// CORSConfig contains CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// PagesConfig contains status page settings.
type PagesConfig struct {
	FreeComponentLimit int `koanf:"free_component_limit"`
	// BaseURL is the public address used for links in notifications.
	BaseURL string `koanf:"base_url"`
}

// SecurityConfig contains secrets.
type SecurityConfig struct {
	SecretKey string `koanf:"secret_key"`
}

// NotificationsConfig contains notification delivery settings.
type NotificationsConfig struct {
	Enabled   bool         `koanf:"enabled"`
	QueueSize int          `koanf:"queue_size"`
	RateLimit float64      `koanf:"rate_limit"`
	Worker    WorkerConfig `koanf:"worker"`
	Retry     RetryConfig  `koanf:"retry"`
	Email     EmailConfig  `koanf:"email"`
}

// WorkerConfig contains notification worker settings.
type WorkerConfig struct {
	NumWorkers int `koanf:"num_workers"`
}

// RetryConfig contains delivery retry settings.
type RetryConfig struct {
	MaxAttempts       int           `koanf:"max_attempts"`
	InitialBackoff    time.Duration `koanf:"initial_backoff"`
	MaxBackoff        time.Duration `koanf:"max_backoff"`
	BackoffMultiplier float64       `koanf:"backoff_multiplier"`
}

// EmailConfig contains SMTP settings.
type EmailConfig struct {
	Enabled            bool   `koanf:"enabled"`
	SMTPHost           string `koanf:"smtp_host"`
	SMTPPort           int    `koanf:"smtp_port"`
	SMTPUser           string `koanf:"smtp_user"`
	SMTPPassword       string `koanf:"smtp_password"`
	FromAddress        string `koanf:"from_address"`
	InsecureSkipVerify bool   `koanf:"insecure_skip_verify"`
}

var defaults = map[string]any{
	"server.host":                "0.0.0.0",
	"server.port":                "8080",
	"server.metrics_port":        "9090",
	"server.read_timeout":        15 * time.Second,
	"server.read_header_timeout": 5 * time.Second,
	"server.write_timeout":       15 * time.Second,
	"server.idle_timeout":        60 * time.Second,
	"server.shutdown_timeout":    30 * time.Second,

	"storage.driver":      DriverMemory,
	"storage.sqlite_path": "pagelite.db",

	"database.max_open_conns":    25,
	"database.max_idle_conns":    5,
	"database.conn_max_lifetime": 5 * time.Minute,
	"database.connect_timeout":   30 * time.Second,
	"database.connect_attempts":  5,

	"log.level":  "info",
	"log.format": "json",

	"cors.allowed_origins": []string{},

	"pages.free_component_limit": 5,
	"pages.base_url":             "http://localhost:8080",

	"notifications.enabled":                  false,
	"notifications.queue_size":               1000,
	"notifications.rate_limit":               5.0,
	"notifications.worker.num_workers":       2,
	"notifications.retry.max_attempts":       3,
	"notifications.retry.initial_backoff":    1 * time.Second,
	"notifications.retry.max_backoff":        1 * time.Minute,
	"notifications.retry.backoff_multiplier": 2.0,
	"notifications.email.enabled":            false,
	"notifications.email.smtp_port":          587,
}

// Load reads configuration. path may be empty, in which case only defaults
// and environment variables are used.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("set default %s: %w", key, err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// envKey maps PAGELITE_SERVER__METRICS_PORT to server.metrics_port.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// Validate checks settings that cannot be defaulted.
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			errs = append(errs, errors.New("storage.sqlite_path is required for the sqlite driver"))
		}
	case DriverPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is not supported", c.Storage.Driver))
	}

	if c.Security.SecretKey == "" {
		errs = append(errs, errors.New("security.secret_key is required"))
	}
	if c.Pages.FreeComponentLimit <= 0 {
		errs = append(errs, errors.New("pages.free_component_limit must be positive"))
	}
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}

	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not supported", c.Log.Format))
	}

	if c.Notifications.Enabled && c.Notifications.Email.Enabled {
		if c.Notifications.Email.SMTPHost == "" {
			errs = append(errs, errors.New("notifications.email.smtp_host is required when email is enabled"))
		}
		if c.Notifications.Email.FromAddress == "" {
			errs = append(errs, errors.New("notifications.email.from_address is required when email is enabled"))
		}
	}

	return errors.Join(errs...)
}
