// /internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DiscordToken       string        `env:"DISCORD_TOKEN,required"`
	DBConnectionString string        `env:"DB_CONNECTION_STRING" envDefault:"file://data/disharmony.json"`
	CommandPrefix      string        `env:"COMMAND_PREFIX" envDefault:"!"`
	DeveloperID        string        `env:"DEVELOPER_ID"`
	HeartbeatURL       string        `env:"HEARTBEAT_URL"`
	HeartbeatInterval  time.Duration `env:"HEARTBEAT_INTERVAL" envDefault:"60s"`
	DebugLogPath       string        `env:"DEBUG_LOG_PATH" envDefault:"logs/debug.log"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads an optional .env file, then parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[INFO] No .env file found, falling back to system environment variables")
	}
	return Parse()
}

// Parse builds a Config from the current environment only.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.DiscordToken = SanitizeToken(cfg.DiscordToken)
	if cfg.DiscordToken == "" {
		return nil, errors.New("DISCORD_TOKEN is empty")
	}
	if strings.TrimSpace(cfg.CommandPrefix) == "" {
		return nil, errors.New("COMMAND_PREFIX cannot be blank")
	}
	if cfg.HeartbeatURL != "" && cfg.HeartbeatInterval <= 0 {
		return nil, fmt.Errorf("HEARTBEAT_INTERVAL must be positive, got %s", cfg.HeartbeatInterval)
	}
	return &cfg, nil
}

// SanitizeToken strips leading and trailing line breaks that editors and
// copy-paste tend to leave around a token.
func SanitizeToken(token string) string {
	return strings.Trim(token, "\r\n")
}

// IsDeveloper reports whether a user ID matches the configured developer.
func IsDeveloper(cfg *Config, userID string) bool {
	return cfg != nil && cfg.DeveloperID != "" && cfg.DeveloperID == userID
}
