package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bissquit/pagelite/internal/config"
	"github.com/bissquit/pagelite/internal/pages"
	"github.com/bissquit/pagelite/internal/pages/memory"
	pagespostgres "github.com/bissquit/pagelite/internal/pages/postgres"
	"github.com/bissquit/pagelite/internal/pages/sqlite"
	"github.com/bissquit/pagelite/internal/pkg/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is an opened page repository together with its resources.
type Store struct {
	pages.Repository

	// Pool is set for the postgres driver only.
	Pool  *pgxpool.Pool
	close func()
}

// Close releases the store resources.
func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}

// OpenStore opens the page repository selected by storage.driver.
func OpenStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	slog.Info("opening page store", "driver", cfg.Storage.Driver)

	switch cfg.Storage.Driver {
	case config.DriverMemory:
		slog.Warn("memory store selected: pages are lost on restart")
		return &Store{Repository: memory.NewRepository()}, nil

	case config.DriverSQLite:
		repo, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &Store{
			Repository: repo,
			close: func() {
				if err := repo.Close(); err != nil {
					slog.Error("failed to close sqlite store", "error", err)
				}
			},
		}, nil

	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		return &Store{
			Repository: pagespostgres.NewRepository(pool),
			Pool:       pool,
			close:      pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}
