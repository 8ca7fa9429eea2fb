package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	votecoordinator "quorum/contexts/election-session/vote-coordinator"
	postgresadapter "quorum/contexts/election-session/vote-coordinator/adapters/postgres"
	sqliteadapter "quorum/contexts/election-session/vote-coordinator/adapters/sqlite"
	"quorum/contexts/election-session/vote-coordinator/domain/entities"
	"quorum/internal/platform/config"
	"quorum/internal/platform/db"
	"quorum/internal/platform/httpserver"
	"quorum/internal/platform/messaging"
)

// APIApp owns the wired process: storage, module, broadcast bus, http server.
type APIApp struct {
	Server *httpserver.Server
	Logger *slog.Logger

	closers []func() error
}

func (a *APIApp) Run() error {
	return a.Server.Start()
}

func (a *APIApp) Close() error {
	var firstErr error
	for _, closer := range a.closers {
		if err := closer(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// BuildAPI assembles the process from environment config: picks the storage
// driver, migrates and seeds it, wires the coordinator module onto the
// broadcast bus, and hangs the http server off the module.
func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := slog.Default().With(
		"service", cfg.ServiceName,
		"process", "api",
	)

	broadcast := messaging.NewBroadcast(cfg.BroadcastBuffer, logger)

	candidates, err := loadCandidates(cfg.CandidatesFile)
	if err != nil {
		return nil, err
	}

	app := &APIApp{Logger: logger}

	var module votecoordinator.Module
	switch cfg.StoreDriver {
	case config.DriverMemory:
		module = votecoordinator.NewInMemoryModule(candidates, broadcast, cfg.AdminTokens, logger)

	case config.DriverSQLite:
		sqlDB, err := db.OpenSQLite(cfg.SQLiteDSN)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, sqlDB.Close)

		repo := sqliteadapter.NewRepository(sqlDB, logger)
		if err := repo.Migrate(context.Background()); err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("migrate sqlite schema: %w", err)
		}
		if err := repo.SeedCandidates(context.Background(), candidates); err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("seed candidates: %w", err)
		}
		module = votecoordinator.NewModule(votecoordinator.Dependencies{
			Voters:      repo,
			Candidates:  repo,
			Votes:       repo,
			Tally:       repo,
			Publisher:   broadcast,
			Clock:       postgresadapter.SystemClock{},
			IDGen:       postgresadapter.UUIDGenerator{},
			AdminTokens: cfg.AdminTokens,
			Logger:      logger,
		})

	case config.DriverPostgres:
		pg, err := db.Connect(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, pg.Close)

		repo := postgresadapter.NewRepository(pg.DB, logger)
		if err := repo.Migrate(context.Background()); err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("migrate postgres schema: %w", err)
		}
		if err := repo.SeedCandidates(context.Background(), candidates); err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("seed candidates: %w", err)
		}
		module = votecoordinator.NewModule(votecoordinator.Dependencies{
			Voters:      repo,
			Candidates:  repo,
			Votes:       repo,
			Tally:       repo,
			Publisher:   broadcast,
			Clock:       postgresadapter.SystemClock{},
			IDGen:       postgresadapter.UUIDGenerator{},
			AdminTokens: cfg.AdminTokens,
			Logger:      logger,
		})

	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}

	logger.Info("storage ready",
		"event", "bootstrap_storage_ready",
		"module", "internal/app/bootstrap",
		"layer", "bootstrap",
		"driver", cfg.StoreDriver,
		"candidates", len(candidates),
	)

	app.Server = httpserver.New(module, broadcast, logger, normalizeAddr(cfg.HTTPPort))
	return app, nil
}

// loadCandidates reads the catalog seed file, falling back to the built-in
// two-candidate ballot when none is configured.
func loadCandidates(path string) ([]entities.Candidate, error) {
	if path == "" {
		return defaultCandidates(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read candidates file: %w", err)
	}
	var candidates []entities.Candidate
	if err := json.Unmarshal(data, &candidates); err != nil {
		return nil, fmt.Errorf("parse candidates file: %w", err)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("candidates file %s holds no candidates", path)
	}
	return candidates, nil
}

func defaultCandidates() []entities.Candidate {
	return []entities.Candidate{
		{
			Name:  "Jane Smith",
			Party: "Progressive Party",
			Image: "https://images.unsplash.com/photo-1573496359142-b8d87734a5a2",
		},
		{
			Name:  "John Davis",
			Party: "Conservative Party",
			Image: "https://images.unsplash.com/photo-1560250097-0b93528c311a",
		},
	}
}

func normalizeAddr(port string) string {
	port = strings.TrimSpace(port)
	if port == "" {
		return ":8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}
