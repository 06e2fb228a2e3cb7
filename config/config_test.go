package config

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	// Load reads .env from the working directory; run from an empty one.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func TestLoadDefaults(t *testing.T) {
	setEnv(t, map[string]string{
		"NOTEBOOK_MODE":   "",
		"STORAGE_BACKEND": "",
		"DATA_DIR":        "/tmp/notebook-test",
		"LOG_LEVEL":       "",
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ModeShared, cfg.Mode)
	assert.Equal(t, BackendMongo, cfg.StorageBackend)
	assert.False(t, cfg.CascadeImageDelete)
	assert.True(t, cfg.NotificationsEnabled)
	assert.Equal(t, time.Second, cfg.ReminderPollInterval)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.False(t, cfg.Authenticated())
}

func TestLoadOverrides(t *testing.T) {
	setEnv(t, map[string]string{
		"NOTEBOOK_MODE":        "AUTH",
		"STORAGE_BACKEND":      "mongo",
		"JWT_SECRET_KEY":       "secret",
		"JWT_EXPIRATION_TIME":  "3600",
		"CASCADE_IMAGE_DELETE": "true",
		"HTTP_ADDR":            "0.0.0.0:9000",
		"PUBLIC_BASE_URL":      "https://notes.example.com/",
		"DATA_DIR":             "/tmp/notebook-test",
		"LOG_LEVEL":            "debug",
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Authenticated())
	assert.Equal(t, time.Hour, cfg.Auth.JWTExpirationTime)
	assert.True(t, cfg.CascadeImageDelete)
	assert.Equal(t, "https://notes.example.com", cfg.PublicBaseURL)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Mode:                 ModeShared,
			StorageBackend:       BackendLocal,
			ReminderPollInterval: time.Second,
			DataDir:              "/tmp/notebook",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"shared local ok", func(*Config) {}, ""},
		{"unknown mode", func(c *Config) { c.Mode = "guest" }, "NOTEBOOK_MODE"},
		{"unknown backend", func(c *Config) { c.StorageBackend = "s3" }, "STORAGE_BACKEND"},
		{"auth needs mongo", func(c *Config) { c.Mode = ModeAuth; c.Auth.JWTSecretKey = "k" }, "requires the mongo"},
		{"auth needs secret", func(c *Config) { c.Mode = ModeAuth; c.StorageBackend = BackendMongo }, "JWT_SECRET_KEY"},
		{"poll interval", func(c *Config) { c.ReminderPollInterval = 0 }, "REMINDER_POLL_INTERVAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
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

func TestLoadRejectsBadLogLevel(t *testing.T) {
	setEnv(t, map[string]string{"LOG_LEVEL": "chatty", "DATA_DIR": "/tmp/notebook-test"})
	_, err := Load()
	require.Error(t, err)
}
