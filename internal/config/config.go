// Package config loads startupval's CLI configuration. Sources are applied
// in order: defaults, the YAML config file, environment variables (after
// .env is loaded), then command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/me/startupval/pkg/api"
	"github.com/me/startupval/pkg/storage"
)

// Environment variables read by ApplyEnv.
const (
	EnvServer    = api.BaseURLEnv
	EnvTimeout   = "STARTUPVAL_TIMEOUT"
	EnvDebug     = "STARTUPVAL_DEBUG"
	EnvStorage   = "STARTUPVAL_STORAGE"
	EnvRedisAddr = "STARTUPVAL_REDIS_ADDR"
)

// StorageConfig selects where the session blob lives.
type StorageConfig struct {
	Backend       string `yaml:"backend"` // file, sqlite, redis, memory
	Path          string `yaml:"path"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`
}

// Config holds configuration for the startupval CLI.
type Config struct {
	Server      string        `yaml:"server"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	WakeDelay   time.Duration `yaml:"wake_delay"`
	BackoffUnit time.Duration `yaml:"backoff_unit"`
	Debug       bool          `yaml:"debug"`
	LogLevel    string        `yaml:"log_level"`
	LogFormat   string        `yaml:"log_format"`
	Storage     StorageConfig `yaml:"storage"`
}

// Default returns sensible defaults.
func Default() Config {
	return Config{
		Server:      api.DefaultBaseURL,
		Timeout:     api.DefaultTimeout,
		MaxRetries:  api.DefaultMaxRetries,
		WakeDelay:   api.DefaultWakeDelay,
		BackoffUnit: api.DefaultBackoffUnit,
		LogLevel:    "warn",
		LogFormat:   "text",
		Storage:     StorageConfig{Backend: storage.BackendFile},
	}
}

// DefaultPath returns ~/.startupval/config.yaml.
func DefaultPath() (string, error) {
	dir, err := storage.DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the YAML file at path over the defaults. A missing file is not
// an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// LoadDotEnv loads variables from the given .env files (default ".env") into
// the process environment. Existing variables win; missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg with STARTUPVAL_* environment variables.
func (c *Config) ApplyEnv() error {
	if v := strings.TrimSpace(os.Getenv(EnvServer)); v != "" {
		c.Server = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		c.Timeout = d
	}
	if v := os.Getenv(EnvDebug); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDebug, err)
		}
		c.Debug = b
	}
	if v := os.Getenv(EnvStorage); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		c.Storage.RedisAddr = v
	}
	return c.Validate()
}

// Validate checks values that would otherwise fail later in confusing ways.
func (c *Config) Validate() error {
	if c.Server == "" {
		return errors.New("server URL must not be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative, got %d", c.MaxRetries)
	}
	switch strings.ToLower(c.Storage.Backend) {
	case storage.BackendFile, storage.BackendSQLite, storage.BackendRedis, storage.BackendMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

// API returns the client configuration.
func (c Config) API() api.Config {
	return api.Config{
		BaseURL:     c.Server,
		Timeout:     c.Timeout,
		MaxRetries:  c.MaxRetries,
		WakeDelay:   c.WakeDelay,
		BackoffUnit: c.BackoffUnit,
		Debug:       c.Debug,
	}
}

// StorageOptions returns the options for storage.Open.
func (c Config) StorageOptions() storage.Options {
	return storage.Options{
		Backend:       c.Storage.Backend,
		Path:          c.Storage.Path,
		RedisAddr:     c.Storage.RedisAddr,
		RedisPassword: c.Storage.RedisPassword,
		RedisDB:       c.Storage.RedisDB,
		RedisPrefix:   c.Storage.RedisPrefix,
	}
}
