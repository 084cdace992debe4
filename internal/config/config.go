package config

import (
	"encoding/base64"
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	ServerAddr     string   `env:"PARLEY_ADDR" envDefault:"localhost:8000"`
	DatabaseDSN    string   `env:"PARLEY_DATABASE_DSN"`
	SigningSecret  string   `env:"PARLEY_SIGNING_SECRET"`
	AllowedOrigins []string `env:"PARLEY_ALLOWED_ORIGINS" envSeparator:","`
	HistoryLimit   int      `env:"PARLEY_HISTORY_LIMIT" envDefault:"50"`

	SigningKey []byte `env:"-"`
}

// NewConfig reads configuration from the environment and validates it.
// An empty DatabaseDSN selects the in-memory repository.
func NewConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.ServerAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if cfg.SigningSecret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}
	if cfg.HistoryLimit <= 0 {
		return nil, fmt.Errorf("history limit must be positive")
	}

	signingKey, err := base64.StdEncoding.DecodeString(cfg.SigningSecret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}
	cfg.SigningKey = signingKey

	return &cfg, nil
}
