package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is centralized process configuration. Keep infra values here and
// pass typed config into builders.
type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"quorum"`
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`

	// StoreDriver selects the storage adapter: memory, sqlite, or postgres.
	StoreDriver string `env:"STORE_DRIVER" envDefault:"sqlite"`
	PostgresDSN string `env:"POSTGRES_DSN"`
	SQLiteDSN   string `env:"SQLITE_DSN" envDefault:":memory:"`

	// CandidatesFile points at a JSON seed for the candidate catalog; when
	// empty the built-in default pair is used.
	CandidatesFile string `env:"CANDIDATES_FILE"`

	// AdminTokens lists identity tokens that resolve to the admin role.
	AdminTokens []string `env:"ADMIN_TOKENS" envSeparator:","`

	// BroadcastBuffer is the per-observer event buffer before drop-on-slow
	// kicks in.
	BroadcastBuffer int `env:"BROADCAST_BUFFER" envDefault:"16"`
}

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func Load() (Config, error) {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	switch cfg.StoreDriver {
	case DriverMemory, DriverSQLite, DriverPostgres:
	default:
		return Config{}, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}

	tokens := make([]string, 0, len(cfg.AdminTokens))
	for _, token := range cfg.AdminTokens {
		if token = strings.TrimSpace(token); token != "" {
			tokens = append(tokens, token)
		}
	}
	cfg.AdminTokens = tokens
	return cfg, nil
}
