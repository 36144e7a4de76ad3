package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.False(t, cfg.Debug)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 2, cfg.Retry.MaxRetries)
	assert.Equal(t, []int{502, 503, 504}, cfg.Retry.RetryStatuses)
	assert.NoError(t, cfg.Validate())
}

func TestParse(t *testing.T) {
	t.Run("overlays yaml on defaults", func(t *testing.T) {
		cfg, err := Parse([]byte(`
baseURL: https://api.example.com/v1
debug: true
timeout: 5s
engine:
  maxIdleConns: 7
  headers:
    User-Agent: courier-test
retry:
  maxRetries: 4
`))
		require.NoError(t, err)

		assert.Equal(t, "https://api.example.com/v1", cfg.BaseURL)
		assert.True(t, cfg.Debug)
		assert.Equal(t, 5*time.Second, cfg.Timeout)
		assert.Equal(t, 7, cfg.Engine.MaxIdleConns)
		assert.Equal(t, 10, cfg.Engine.MaxIdleConnsPerHost)
		assert.Equal(t, "courier-test", cfg.Engine.Headers["User-Agent"])
		assert.Equal(t, 4, cfg.Retry.MaxRetries)
		assert.Equal(t, 2.0, cfg.Retry.Multiplier)
	})

	t.Run("rejects malformed yaml", func(t *testing.T) {
		_, err := Parse([]byte("debug: [unterminated"))
		assert.Error(t, err)
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		_, err := Parse([]byte("timeout: -1s"))
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"absolute base url", func(c *Config) { c.BaseURL = "http://localhost:8080" }, false},
		{"relative base url", func(c *Config) { c.BaseURL = "/api" }, true},
		{"negative retries", func(c *Config) { c.Retry.MaxRetries = -1 }, true},
		{"multiplier below one", func(c *Config) { c.Retry.Multiplier = 0.5 }, true},
		{"multiplier ignored without retries", func(c *Config) { c.Retry.MaxRetries = 0; c.Retry.Multiplier = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("reads a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "courier.yaml")
		require.NoError(t, os.WriteFile(path, []byte("debug: true\n"), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.True(t, cfg.Debug)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	quiet := NewLogger(&buf, false)
	assert.False(t, quiet.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, quiet.Enabled(context.Background(), slog.LevelInfo))

	verbose := NewLogger(&buf, true)
	assert.True(t, verbose.Enabled(context.Background(), slog.LevelDebug))

	verbose.Debug("hello", "k", "v")
	assert.Contains(t, buf.String(), "hello")
}
