package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"CURIO_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"CURIO_DB_MAX_CONNS" default:"8"`

	ListenAddr         string `envconfig:"CURIO_LISTEN_ADDR" default:":8090"`
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`

	// Detection knobs. Zero values fall back to the engine defaults.
	DetectThreshold     float64 `envconfig:"CURIO_DETECT_THRESHOLD" default:"0.45"`
	SuggestionThreshold float64 `envconfig:"CURIO_SUGGESTION_THRESHOLD" default:"0.35"`
	UsePhonetic         bool    `envconfig:"CURIO_USE_PHONETIC" default:"true"`
	UseNGrams           bool    `envconfig:"CURIO_USE_NGRAMS" default:"true"`

	// Corpora at or above this size are scored on the offload worker.
	OffloadMinAssets int `envconfig:"CURIO_OFFLOAD_MIN_ASSETS" default:"5000"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("CURIO_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("CURIO_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("CURIO_DB_MIN_CONNS (%d) cannot exceed CURIO_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if strings.TrimSpace(c.ListenAddr) == "" {
		return fmt.Errorf("CURIO_LISTEN_ADDR is required")
	}
	if c.DetectThreshold < 0 || c.DetectThreshold > 1 {
		return fmt.Errorf("CURIO_DETECT_THRESHOLD must be within [0, 1]")
	}
	if c.SuggestionThreshold < 0 || c.SuggestionThreshold > 1 {
		return fmt.Errorf("CURIO_SUGGESTION_THRESHOLD must be within [0, 1]")
	}
	if c.SuggestionThreshold > c.DetectThreshold {
		return fmt.Errorf("CURIO_SUGGESTION_THRESHOLD (%g) cannot exceed CURIO_DETECT_THRESHOLD (%g)", c.SuggestionThreshold, c.DetectThreshold)
	}
	if c.OffloadMinAssets < 0 {
		return fmt.Errorf("CURIO_OFFLOAD_MIN_ASSETS must be >= 0")
	}
	return nil
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, exists := seen[origin]; exists {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}
