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
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ach-console", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)

	assert.Equal(t, "http://localhost:8000", cfg.Backend.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Backend.Timeout)

	assert.Equal(t, 60*time.Second, cfg.Session.RefreshInterval)
	assert.Equal(t, 300*time.Second, cfg.Session.RefreshThreshold)

	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())

	assert.False(t, cfg.OTel.Enabled)
}

func TestLoadWithPath_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "APP_ENVIRONMENT=production\n" +
		"SERVER_PORT=9090\n" +
		"BACKEND_BASE_URL=https://api.internal:8443\n" +
		"SESSION_REFRESH_INTERVAL=30s\n" +
		"REDIS_ENABLED=true\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	cfg, err := LoadWithPath(envFile)
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "https://api.internal:8443", cfg.Backend.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Session.RefreshInterval)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoadWithPath_MissingFileFails(t *testing.T) {
	_, err := LoadWithPath(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestValidate_Rejections(t *testing.T) {
	base := func() *Config {
		return &Config{
			App:     AppConfig{Name: "ach-console"},
			Server:  ServerConfig{Port: 8080},
			Backend: BackendConfig{BaseURL: "http://localhost:8000"},
			Session: SessionConfig{RefreshInterval: time.Minute, RefreshThreshold: 5 * time.Minute},
		}
	}

	cfg := base()
	cfg.App.Name = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Backend.BaseURL = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Session.RefreshInterval = 0
	assert.Error(t, cfg.Validate())

	assert.NoError(t, base().Validate())
}
