// Package api provides the HTTP client for the Startup Idea Validator backend,
// including the retry policy used to wake a cold-started backend instance.
package api

import (
	"os"
	"strings"
	"time"
)

// DefaultBaseURL is the hosted backend used when no override is configured.
const DefaultBaseURL = "https://backend-2-hq3s.onrender.com"

// BaseURLEnv names the environment variable that overrides DefaultBaseURL.
const BaseURLEnv = "STARTUPVAL_API_URL"

// Default client settings.
const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxRetries  = 2
	DefaultWakeDelay   = 3 * time.Second
	DefaultBackoffUnit = 1 * time.Second
)

// Config holds all configuration for the API client and retrier.
type Config struct {
	// BaseURL is the backend root, e.g. https://backend.example.com.
	BaseURL string

	// Timeout bounds each individual attempt.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// WakeDelay is the wait before the first retry.
	WakeDelay time.Duration

	// BackoffUnit scales later retries: retry n waits n*BackoffUnit.
	BackoffUnit time.Duration

	// Debug enables per-request and per-response log entries.
	Debug bool
}

// DefaultConfig returns a Config using BaseURLFromEnv and default settings.
func DefaultConfig() Config {
	return Config{
		BaseURL:     BaseURLFromEnv(),
		Timeout:     DefaultTimeout,
		MaxRetries:  DefaultMaxRetries,
		WakeDelay:   DefaultWakeDelay,
		BackoffUnit: DefaultBackoffUnit,
	}
}

// BaseURLFromEnv returns the STARTUPVAL_API_URL override, else DefaultBaseURL.
func BaseURLFromEnv() string {
	if u := strings.TrimSpace(os.Getenv(BaseURLEnv)); u != "" {
		return u
	}
	return DefaultBaseURL
}

// WithBaseURL returns a copy of the config pointing at baseURL.
func (c Config) WithBaseURL(baseURL string) Config {
	c.BaseURL = baseURL
	return c
}

// WithTimeout returns a copy of the config with the specified timeout.
func (c Config) WithTimeout(timeout time.Duration) Config {
	c.Timeout = timeout
	return c
}

// WithRetries returns a copy of the config with the specified retry settings.
func (c Config) WithRetries(maxRetries int, wakeDelay, backoffUnit time.Duration) Config {
	c.MaxRetries = maxRetries
	c.WakeDelay = wakeDelay
	c.BackoffUnit = backoffUnit
	return c
}

// WithDebug returns a copy of the config with debug logging toggled.
func (c Config) WithDebug(debug bool) Config {
	c.Debug = debug
	return c
}
