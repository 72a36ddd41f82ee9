package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the frontend settings. Values come from an optional YAML
// file, then FINDIT_* environment variables, then command-line flags.
type Config struct {
	Addr           string        `yaml:"addr"`
	BackendURL     string        `yaml:"backend_url"`
	DBPath         string        `yaml:"db"`
	LogPath        string        `yaml:"log"`
	BackendTimeout time.Duration `yaml:"backend_timeout"`
	SessionTTL     time.Duration `yaml:"session_ttl"`
	MaxUploadMB    int64         `yaml:"max_upload_mb"`
	Metrics        bool          `yaml:"metrics"`
	SecureCookies  bool          `yaml:"secure_cookies"`
}

// MaxUploadMBLimit bounds MaxUploadMB so the byte count cannot overflow.
const MaxUploadMBLimit = 1024

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Addr:           ":8080",
		BackendURL:     "http://localhost:3000/",
		DBPath:         "findit.sqlite3",
		BackendTimeout: 15 * time.Second,
		SessionTTL:     24 * time.Hour,
		MaxUploadMB:    20,
	}
}

// Load reads the YAML file at path (if non-empty) over the defaults and then
// applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.Addr = getEnv("FINDIT_ADDR", cfg.Addr)
	cfg.BackendURL = getEnv("FINDIT_BACKEND_URL", cfg.BackendURL)
	cfg.DBPath = getEnv("FINDIT_DB", cfg.DBPath)
	cfg.LogPath = getEnv("FINDIT_LOG", cfg.LogPath)

	if v := os.Getenv("FINDIT_BACKEND_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parsing FINDIT_BACKEND_TIMEOUT: %w", err)
		}
		cfg.BackendTimeout = d
	}
	if v := os.Getenv("FINDIT_SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parsing FINDIT_SESSION_TTL: %w", err)
		}
		cfg.SessionTTL = d
	}
	if v := os.Getenv("FINDIT_MAX_UPLOAD_MB"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing FINDIT_MAX_UPLOAD_MB: %w", err)
		}
		cfg.MaxUploadMB = n
	}
	if v := os.Getenv("FINDIT_METRICS"); v != "" {
		cfg.Metrics = v == "true" || v == "1"
	}
	if v := os.Getenv("FINDIT_SECURE_COOKIES"); v != "" {
		cfg.SecureCookies = v == "true" || v == "1"
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("listen address is required")
	}
	if c.DBPath == "" {
		return errors.New("database path is required")
	}
	u, err := url.Parse(c.BackendURL)
	if err != nil {
		return fmt.Errorf("invalid backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend url must be http or https, got %q", c.BackendURL)
	}
	if u.Host == "" {
		return fmt.Errorf("backend url has no host: %q", c.BackendURL)
	}
	if c.BackendTimeout <= 0 {
		return errors.New("backend timeout must be positive")
	}
	if c.SessionTTL < time.Minute {
		return errors.New("session ttl must be at least one minute")
	}
	if c.MaxUploadMB <= 0 {
		return errors.New("max upload size must be positive")
	}
	if c.MaxUploadMB > MaxUploadMBLimit {
		return fmt.Errorf("max upload size must be at most %d MB", MaxUploadMBLimit)
	}
	return nil
}

// MaxUploadBytes returns the request body limit for multipart forms.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// NormalizedBackendURL returns the backend URL with exactly one trailing slash,
// so endpoint paths can be appended the way the backend documents them.
func (c *Config) NormalizedBackendURL() string {
	return strings.TrimRight(c.BackendURL, "/") + "/"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
