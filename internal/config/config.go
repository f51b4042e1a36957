// Package config loads the server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/mmynk/tableside/internal/auth"
)

// Config is the server configuration.
type Config struct {
	Port   int    `env:"PORT" envDefault:"8080"`
	DBPath string `env:"DB_PATH" envDefault:"./data/tableside.db"`

	// NATSURL is the broker for notifications. Empty logs notifications instead.
	NATSURL string `env:"NATS_URL"`

	JWTSecret     string        `env:"JWT_SECRET"`
	StaffTokenTTL time.Duration `env:"STAFF_TOKEN_TTL" envDefault:"12h"`
	// StaffPINs lists staff accounts as id:role:bcrypthash, comma separated.
	StaffPINs []string `env:"STAFF_PINS"`

	GuestTTL           time.Duration `env:"GUEST_TTL" envDefault:"2h"`
	GuestSweepInterval time.Duration `env:"GUEST_SWEEP_INTERVAL" envDefault:"1m"`

	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"*"`
	LogLevel    string   `env:"LOG_LEVEL" envDefault:"info"`

	// Staff is parsed from StaffPINs.
	Staff []auth.StaffAccount `env:"-"`
}

// Load reads an optional .env file (or the given files) and parses the environment.
// Variables already set in the environment win over the file.
func Load(files ...string) (*Config, error) {
	// Non-fatal if missing
	_ = godotenv.Load(files...)

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	for _, entry := range cfg.StaffPINs {
		acc, err := auth.ParseStaffAccount(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid STAFF_PINS entry: %w", err)
		}
		cfg.Staff = append(cfg.Staff, acc)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT %d is out of range", c.Port)
	}
	if len(c.Staff) > 0 && c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required when STAFF_PINS is set")
	}
	if c.StaffTokenTTL <= 0 {
		return errors.New("STAFF_TOKEN_TTL must be positive")
	}
	if c.GuestTTL < 0 || c.GuestSweepInterval < 0 {
		return errors.New("GUEST_TTL and GUEST_SWEEP_INTERVAL must not be negative")
	}
	return nil
}
