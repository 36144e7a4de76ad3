// Package config holds the client configuration and its YAML loader.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is handed to every interceptor's Init and to the transport engine
type Config struct {
	// BaseURL is prefixed to every method path
	BaseURL string `yaml:"baseURL"`
	// Debug turns on per-request logging
	Debug bool `yaml:"debug"`
	// Timeout bounds one transport attempt; zero disables it
	Timeout time.Duration `yaml:"timeout"`
	// Engine is forwarded to the transport engine verbatim
	Engine EngineOptions `yaml:"engine"`
	// Retry configures the built-in retry interceptor
	Retry RetryOptions `yaml:"retry"`
}

// EngineOptions configures the HTTP transport engine
type EngineOptions struct {
	MaxIdleConns        int               `yaml:"maxIdleConns"`
	MaxIdleConnsPerHost int               `yaml:"maxIdleConnsPerHost"`
	IdleConnTimeout     time.Duration     `yaml:"idleConnTimeout"`
	TLSHandshakeTimeout time.Duration     `yaml:"tlsHandshakeTimeout"`
	DisableKeepAlives   bool              `yaml:"disableKeepAlives"`
	InsecureSkipVerify  bool              `yaml:"insecureSkipVerify"`
	Headers             map[string]string `yaml:"headers"`
}

// RetryOptions configures the built-in retry interceptor
type RetryOptions struct {
	MaxRetries      int           `yaml:"maxRetries"`
	InitialInterval time.Duration `yaml:"initialInterval"`
	MaxInterval     time.Duration `yaml:"maxInterval"`
	Multiplier      float64       `yaml:"multiplier"`
	// RetryStatuses lists response codes that are retried like transport failures
	RetryStatuses []int `yaml:"retryStatuses"`
}

// ErrInvalidConfig is wrapped by every Validate failure
var ErrInvalidConfig = errors.New("invalid config")

// Default returns the configuration used when none is set
func Default() Config {
	return Config{
		Timeout: 30 * time.Second,
		Engine: EngineOptions{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		Retry: RetryOptions{
			MaxRetries:      2,
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     2 * time.Second,
			Multiplier:      2.0,
			RetryStatuses:   []int{502, 503, 504},
		},
	}
}

// Load reads a YAML config file on top of Default
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of Default and validates the result
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges. An empty BaseURL is allowed when every
// method path is absolute.
func (c Config) Validate() error {
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil {
			return fmt.Errorf("%w: baseURL: %v", ErrInvalidConfig, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: baseURL %q must be absolute", ErrInvalidConfig, c.BaseURL)
		}
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must not be negative", ErrInvalidConfig)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("%w: retry.maxRetries must not be negative", ErrInvalidConfig)
	}
	if c.Retry.MaxRetries > 0 && c.Retry.Multiplier < 1 {
		return fmt.Errorf("%w: retry.multiplier must be at least 1", ErrInvalidConfig)
	}
	return nil
}

// NewLogger returns a text logger at Debug level when debug is set and
// Info level otherwise
func NewLogger(w io.Writer, debug bool) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
