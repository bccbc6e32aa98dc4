package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/bissquit/pagelite/internal/config"
	"github.com/bissquit/pagelite/internal/pages"
	"github.com/bissquit/pagelite/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Security.SecretKey = "test-secret"
	cfg.Log.Level = "error"
	require.NoError(t, cfg.Validate())
	return cfg
}

func startApp(t *testing.T, cfg *config.Config) *testutil.Client {
	t.Helper()

	a, err := New(cfg)
	require.NoError(t, err)

	server := httptest.NewServer(a.Router())
	t.Cleanup(func() {
		server.Close()
		assert.NoError(t, a.Shutdown(context.Background()))
	})

	return testutil.NewClientWithValidation(t, server.URL, "../../api/openapi/openapi.yaml")
}

func TestApp_OpsEndpoints(t *testing.T) {
	client := startApp(t, testConfig(t))

	resp, err := client.GET("/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", testutil.ReadBody(t, resp))

	resp, err = client.GET("/readyz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = client.GET("/version")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, testutil.ReadBody(t, resp), `"version"`)

	resp, err = client.GET("/api/openapi.yaml")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, testutil.ReadBody(t, resp), "openapi: 3.0.3")
}

func TestApp_PageLifecycle(t *testing.T) {
	tests := []struct {
		name   string
		modify func(t *testing.T, cfg *config.Config)
	}{
		{
			name:   "memory",
			modify: func(*testing.T, *config.Config) {},
		},
		{
			name: "sqlite with notifications",
			modify: func(t *testing.T, cfg *config.Config) {
				cfg.Storage.Driver = config.DriverSQLite
				cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "pages.db")
				cfg.Notifications.Enabled = true
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.modify(t, cfg)
			client := startApp(t, cfg)

			resp, err := client.POST("/api/v1/pages", map[string]string{"name": "Acme"})
			require.NoError(t, err)
			require.Equal(t, http.StatusCreated, resp.StatusCode)
			var created pages.CreatedPage
			testutil.DecodeData(t, resp, &created)

			resp, err = client.POST("/api/v1/pages/"+created.Slug+"/subscribers", map[string]string{"email": "ops@example.com"})
			require.NoError(t, err)
			require.Equal(t, http.StatusAccepted, resp.StatusCode)
			_ = resp.Body.Close()

			resp, err = client.POST("/api/v1/edit/"+created.EditToken+"/incidents", map[string]string{
				"title":   "API errors",
				"message": "investigating",
			})
			require.NoError(t, err)
			require.Equal(t, http.StatusCreated, resp.StatusCode)
			_ = resp.Body.Close()

			resp, err = client.GET("/api/v1/pages/" + created.Slug)
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			var view pages.PublicPage
			testutil.DecodeData(t, resp, &view)
			assert.Len(t, view.ActiveIncidents, 1)
		})
	}
}

func TestApp_RejectsUnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = "redis"

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	logger := initLogger(config.LogConfig{Level: "warn", Format: "text"})
	assert.False(t, logger.Enabled(context.Background(), -4))
	assert.True(t, logger.Enabled(context.Background(), 4))
}
