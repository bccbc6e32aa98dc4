package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) *Config {
	t.Helper()

	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Security.SecretKey = "test-secret"
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.MetricsPort)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, 5, cfg.Pages.FreeComponentLimit)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Notifications.Enabled)
	assert.Equal(t, 3, cfg.Notifications.Retry.MaxAttempts)
	assert.Equal(t, time.Minute, cfg.Notifications.Retry.MaxBackoff)
	assert.Equal(t, 587, cfg.Notifications.Email.SMTPPort)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: "3000"
storage:
  driver: sqlite
  sqlite_path: /var/lib/pagelite/pages.db
cors:
  allowed_origins:
    - https://status.example.com
notifications:
  enabled: true
  retry:
    initial_backoff: 250ms
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "/var/lib/pagelite/pages.db", cfg.Storage.SQLitePath)
	assert.Equal(t, []string{"https://status.example.com"}, cfg.CORS.AllowedOrigins)
	assert.True(t, cfg.Notifications.Enabled)
	assert.Equal(t, 250*time.Millisecond, cfg.Notifications.Retry.InitialBackoff)
	assert.Equal(t, "9090", cfg.Server.MetricsPort)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: \"3000\"\n"), 0o600))

	t.Setenv("PAGELITE_SERVER__PORT", "4000")
	t.Setenv("PAGELITE_SECURITY__SECRET_KEY", "from-env")
	t.Setenv("PAGELITE_PAGES__FREE_COMPONENT_LIMIT", "8")
	t.Setenv("PAGELITE_NOTIFICATIONS__EMAIL__SMTP_HOST", "smtp.example.com")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "4000", cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Security.SecretKey)
	assert.Equal(t, 8, cfg.Pages.FreeComponentLimit)
	assert.Equal(t, "smtp.example.com", cfg.Notifications.Email.SMTPHost)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "server.metrics_port", envKey("PAGELITE_SERVER__METRICS_PORT"))
	assert.Equal(t, "notifications.email.smtp_host", envKey("PAGELITE_NOTIFICATIONS__EMAIL__SMTP_HOST"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults with secret",
			modify: func(*Config) {},
		},
		{
			name:    "missing secret key",
			modify:  func(c *Config) { c.Security.SecretKey = "" },
			wantErr: "security.secret_key is required",
		},
		{
			name:    "unknown driver",
			modify:  func(c *Config) { c.Storage.Driver = "redis" },
			wantErr: `storage.driver "redis" is not supported`,
		},
		{
			name:    "postgres without url",
			modify:  func(c *Config) { c.Storage.Driver = DriverPostgres },
			wantErr: "database.url is required",
		},
		{
			name: "postgres with url",
			modify: func(c *Config) {
				c.Storage.Driver = DriverPostgres
				c.Database.URL = "postgres://localhost/pagelite"
			},
		},
		{
			name: "sqlite without path",
			modify: func(c *Config) {
				c.Storage.Driver = DriverSQLite
				c.Storage.SQLitePath = ""
			},
			wantErr: "storage.sqlite_path is required",
		},
		{
			name:    "non-positive component limit",
			modify:  func(c *Config) { c.Pages.FreeComponentLimit = 0 },
			wantErr: "pages.free_component_limit must be positive",
		},
		{
			name:    "unknown log format",
			modify:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: `log.format "xml" is not supported`,
		},
		{
			name: "email enabled without host",
			modify: func(c *Config) {
				c.Notifications.Enabled = true
				c.Notifications.Email.Enabled = true
				c.Notifications.Email.FromAddress = "status@example.com"
			},
			wantErr: "notifications.email.smtp_host is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
