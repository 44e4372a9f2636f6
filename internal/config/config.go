package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	// Word generator
	AnthropicKey     string `env:"ANTHROPIC_API_KEY"`
	AnthropicBaseURL string `env:"ANTHROPIC_BASE_URL"`
	WordModel        string `env:"WORD_MODEL" envDefault:"claude-haiku-4-5-20251001"`

	// Shared secret required to create a game with a custom word category.
	CategoryPasscode string `env:"CATEGORY_PASSCODE"`

	// Inactivity reaper
	ReapInterval time.Duration `env:"REAP_INTERVAL" envDefault:"60s"`
	ReapTimeout  time.Duration `env:"REAP_TIMEOUT" envDefault:"5m"`

	// Round results export
	ExportEnabled bool   `env:"EXPORT_ENABLED" envDefault:"false"`
	ExportFile    string `env:"EXPORT_FILE" envDefault:"./round-results.txt"`
}

func FromEnv() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, err
	}
	return c, nil
}
