// Package config loads gotlm settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the settings shared by the CLI and the HTTP server.
type Config struct {
	DBPath       string   `env:"GOTLM_DB_PATH" envDefault:"./data/gotlm.db"`
	SchemaPath   string   `env:"GOTLM_SCHEMA_PATH" envDefault:"./schema.yaml"`
	SourceLocale string   `env:"GOTLM_SOURCE_LOCALE" envDefault:"en"`
	Locales      []string `env:"GOTLM_LOCALES" envSeparator:"," envDefault:"en"`

	// Lookup cache. Without a Redis URL an in-memory cache is used.
	RedisURL    string        `env:"GOTLM_REDIS_URL"`
	CachePrefix string        `env:"GOTLM_CACHE_PREFIX" envDefault:"gotlm:"`
	CacheTTL    time.Duration `env:"GOTLM_CACHE_TTL" envDefault:"24h"`

	// Machine translation
	MTProvider    string `env:"GOTLM_MT_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIModel   string `env:"GOTLM_OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIBaseURL string `env:"GOTLM_OPENAI_BASE_URL"`
	MTBatchSize   int    `env:"GOTLM_MT_BATCH_SIZE" envDefault:"50"`
	MTRPM         int    `env:"GOTLM_MT_RPM" envDefault:"60"`

	ServerHost string `env:"GOTLM_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"GOTLM_SERVER_PORT" envDefault:"8080"`

	LogLevel  string `env:"GOTLM_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"GOTLM_LOG_FORMAT" envDefault:"text"`

	// MissingPolicy is "fallback" or "require".
	MissingPolicy string `env:"GOTLM_MISSING_POLICY" envDefault:"fallback"`
}

// Load reads the given .env files, if they exist, then parses the
// environment. Variables already set win over .env values.
func Load(dotenv ...string) (*Config, error) {
	if len(dotenv) == 0 {
		dotenv = []string{".env"}
	}
	for _, path := range dotenv {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values env.Parse cannot.
func (c *Config) Validate() error {
	if c.SourceLocale == "" {
		return errors.New("GOTLM_SOURCE_LOCALE must not be empty")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("GOTLM_LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("GOTLM_SERVER_PORT out of range: %d", c.ServerPort)
	}
	return nil
}

// ServerAddr returns host:port.
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// TargetLocales returns the configured locales other than the source.
func (c *Config) TargetLocales() []string {
	var out []string
	for _, l := range c.Locales {
		l = strings.TrimSpace(l)
		if l != "" && l != c.SourceLocale && !slices.Contains(out, l) {
			out = append(out, l)
		}
	}
	return out
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("GOTLM_LOG_LEVEL: %w", err)
	}
	return level, nil
}

// NewLogger builds the logger described by LogLevel and LogFormat.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
