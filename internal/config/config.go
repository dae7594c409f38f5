// Package config loads server settings from the environment.
//
// Every setting has an env var and, where it makes sense, a default.
// SESSION_SECRET is the only one that must be provided: it signs the
// browser session cookie and derives the key used to seal the upstream
// API cookie at rest.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// DefaultAPIURL is the public dog adoption API.
const DefaultAPIURL = "https://frontend-take-home-service.fetch.com"

type Config struct {
	Port int `env:"PORT" envDefault:"8080"`

	APIURL       string        `env:"API_URL" envDefault:"https://frontend-take-home-service.fetch.com"`
	APITimeout   time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
	APIRateLimit float64       `env:"API_RATE_LIMIT" envDefault:"10"`

	DBPath        string        `env:"DB_PATH" envDefault:"data/sessions.db"`
	SessionSecret string        `env:"SESSION_SECRET,required"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	SecureCookies bool          `env:"SECURE_COOKIES" envDefault:"false"`
	WorkspaceIdle time.Duration `env:"WORKSPACE_IDLE" envDefault:"30m"`
	PageSize      int           `env:"PAGE_SIZE" envDefault:"20"`
	LocationDelay time.Duration `env:"LOCATION_DEBOUNCE" envDefault:"300ms"`
	StaticDir     string        `env:"STATIC_DIR" envDefault:""`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("reading configuration from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if len(c.SessionSecret) < 16 {
		return fmt.Errorf("SESSION_SECRET must be at least 16 characters")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("PAGE_SIZE must be positive, got %d", c.PageSize)
	}
	if c.APIRateLimit <= 0 {
		return fmt.Errorf("API_RATE_LIMIT must be positive, got %v", c.APIRateLimit)
	}
	if c.WorkspaceIdle <= 0 {
		return fmt.Errorf("WORKSPACE_IDLE must be positive, got %v", c.WorkspaceIdle)
	}
	if c.APIURL == "" {
		return fmt.Errorf("API_URL must not be empty")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// NewLogger builds the process logger described by LOG_LEVEL and LOG_FORMAT.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.LogLevel)
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}
