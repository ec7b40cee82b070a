// Package backend opens the Ledger selected by DATA_BACKEND.
package backend

import (
	"context"
	"fmt"

	"nuxo/internal/log"
	"nuxo/internal/storage"
	"nuxo/internal/storage/memory"
	"nuxo/internal/storage/postgres"
	"nuxo/internal/storage/sqlite"
)

// Open creates the ledger described by config. The caller closes it.
func Open(ctx context.Context, config Config, logger *log.Logger) (storage.Ledger, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	logger = logger.WithComponent(log.ComponentStorage)

	switch config.Type {
	case SQLiteBackend:
		l, err := sqlite.NewLedger(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite ledger: %w", err)
		}
		logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return l, nil
	case PostgresBackend:
		l, err := postgres.NewLedger(ctx, config.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres ledger: %w", err)
		}
		logger.Info("Initialized Postgres backend")
		return l, nil
	case MemoryBackend:
		logger.Warn("Using in-memory backend, data is lost on restart")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
