// Package repository selects and opens the configured storage backend.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/simaogato/wealthflow-recurring/internal/adapter/repository/memory"
	"github.com/simaogato/wealthflow-recurring/internal/adapter/repository/postgres"
	"github.com/simaogato/wealthflow-recurring/internal/adapter/repository/sqlite"
	"github.com/simaogato/wealthflow-recurring/internal/config"
	"github.com/simaogato/wealthflow-recurring/internal/domain"
)

// Stores bundles the rule registry and the ledger of one backend
type Stores struct {
	Rules        domain.RuleStore
	Transactions domain.TransactionStore

	close func() error
}

// Close releases the backend's resources
func (s *Stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Open connects to the backend named by cfg.StoreDriver and applies its migrations
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Stores, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		logger.Warn().Msg("Using in-memory store, data is lost on restart")
		store := memory.NewStore()
		return &Stores{Rules: store, Transactions: store, close: store.Close}, nil

	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store at %s: %w", cfg.SQLitePath, err)
		}
		logger.Info().Str("path", cfg.SQLitePath).Msg("Opened SQLite store")
		return &Stores{Rules: store, Transactions: store, close: store.Close}, nil

	case config.DriverPostgres, config.DriverPgx:
		if cfg.DBStartupDelay > 0 {
			logger.Info().Dur("delay", cfg.DBStartupDelay).Msg("Waiting for database to be ready")
			select {
			case <-time.After(cfg.DBStartupDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		db, err := postgres.NewDB(ctx, cfg.StoreDriver, cfg.DSN())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		logger.Info().Str("driver", cfg.StoreDriver).Msg("Connected to PostgreSQL")
		return &Stores{
			Rules:        postgres.NewRuleRepository(db),
			Transactions: postgres.NewTransactionRepository(db),
			close:        db.Close,
		}, nil
	}

	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
