package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "http://localhost:8080", cfg.API.BaseURL)
	assert.Equal(t, "/api/v1/case/{id}/vote", cfg.API.Endpoints.Vote)
	assert.Equal(t, 20, cfg.Search.DefaultPageSize)
	assert.Equal(t, 100, cfg.Search.MaxPageSize)
	assert.Equal(t, 6, cfg.OTP.Length)
	assert.Equal(t, 3, cfg.UI.MaxToasts)
	assert.True(t, cfg.Features.EnableReports)
	assert.True(t, cfg.Features.EnableVoting)
	assert.False(t, cfg.Verification.Remember)
	assert.NoError(t, cfg.Validate())
}

func TestDurationGetters(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 10*time.Second, cfg.GetAPITimeout())
	assert.Equal(t, 300*time.Millisecond, cfg.GetSearchDebounce())
	assert.Equal(t, 60*time.Second, cfg.GetResendCooldown())
	assert.Equal(t, 10*time.Minute, cfg.GetOTPExpiry())
	assert.Equal(t, 5*time.Second, cfg.GetToastDuration())

	cfg.API.Timeout = "not-a-duration"
	cfg.UI.ToastDuration = "-1s"
	assert.Equal(t, 10*time.Second, cfg.GetAPITimeout())
	assert.Equal(t, 5*time.Second, cfg.GetToastDuration())

	cfg.API.Timeout = "2500ms"
	assert.Equal(t, 2500*time.Millisecond, cfg.GetAPITimeout())
}

func TestLoad(t *testing.T) {
	t.Run("missing file returns defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig().API, cfg.API)
	})

	t.Run("partial file keeps other defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := "api:\n  base_url: https://api.unveil.example\nui:\n  max_toasts: 5\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "https://api.unveil.example", cfg.API.BaseURL)
		assert.Equal(t, "/api/v1/search", cfg.API.Endpoints.Search)
		assert.Equal(t, 5, cfg.UI.MaxToasts)
		assert.Equal(t, 20, cfg.Search.DefaultPageSize)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("api: [unclosed"), 0644))

		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("dotenv next to config", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv("UNVEIL_API_URL", "")
		t.Setenv("VITE_API_URL", "")
		require.NoError(t, os.Unsetenv("VITE_API_URL"))
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("VITE_API_URL=http://dotenv:9000\n"), 0644))

		cfg, err := Load(filepath.Join(dir, "config.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "http://dotenv:9000", cfg.API.BaseURL)
	})
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Verification.Remember = true
	cfg.Store.Driver = "sqlite3"

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, loaded.Verification.Remember)
	assert.Equal(t, "sqlite3", loaded.Store.Driver)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("UNVEIL_API_URL wins over VITE_API_URL", func(t *testing.T) {
		t.Setenv("VITE_API_URL", "http://vite:1")
		t.Setenv("UNVEIL_API_URL", "http://unveil:2")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.Equal(t, "http://unveil:2", cfg.API.BaseURL)
	})

	t.Run("legacy VITE_API_URL alone", func(t *testing.T) {
		t.Setenv("VITE_API_URL", "http://vite:1")
		t.Setenv("UNVEIL_API_URL", "")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.Equal(t, "http://vite:1", cfg.API.BaseURL)
	})

	t.Run("timeout data dir and theme", func(t *testing.T) {
		t.Setenv("UNVEIL_TIMEOUT", "3s")
		t.Setenv("UNVEIL_DATA_DIR", "/tmp/unveil-data")
		t.Setenv("UNVEIL_THEME", "light")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.Equal(t, 3*time.Second, cfg.GetAPITimeout())
		assert.Equal(t, "/tmp/unveil-data", cfg.DataDir)
		assert.Equal(t, filepath.Join("/tmp/unveil-data", "unveil.db"), cfg.StorePath())
		assert.Equal(t, "light", cfg.UI.Theme)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative base url", func(c *Config) { c.API.BaseURL = "localhost:8080" }},
		{"ftp base url", func(c *Config) { c.API.BaseURL = "ftp://example.com" }},
		{"vote endpoint without id", func(c *Config) { c.API.Endpoints.Vote = "/api/v1/case/vote" }},
		{"page size above max", func(c *Config) { c.Search.DefaultPageSize = 101 }},
		{"query bounds inverted", func(c *Config) { c.Validation.MinQueryLength = 300 }},
		{"otp too short", func(c *Config) { c.OTP.Length = 2 }},
		{"no toasts", func(c *Config) { c.UI.MaxToasts = 0 }},
		{"unknown theme", func(c *Config) { c.UI.Theme = "neon" }},
		{"unknown driver", func(c *Config) { c.Store.Driver = "postgres" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidationRules(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Validation.MaxQueryLength = 50
	rules := cfg.ValidationRules()
	assert.Equal(t, 50, rules.MaxQueryLength)
	assert.Equal(t, 6, rules.OTPLength)
	assert.Equal(t, 254, rules.EmailMaxLength)
}
