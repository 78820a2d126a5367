// Package store persists operator preferences and the run history. Preferences
// are opaque JSON values under well-known keys; the automation never blocks on
// a missing or unreadable entry.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/repairfill/internal/config"
)

// ErrNotFound is returned by Get for an absent key.
var ErrNotFound = errors.New("preference not found")

// RunRecord is one workflow run as kept in the history.
type RunRecord struct {
	ID         string
	Kind       string
	OK         bool
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
	Report     []byte
}

// Store is a key-value preference store with a run history.
type Store interface {
	// Get returns the raw value under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Keys lists every stored key in sorted order.
	Keys(ctx context.Context) ([]string, error)

	RecordRun(ctx context.Context, run RunRecord) error
	// Runs returns up to limit runs, newest first.
	Runs(ctx context.Context, limit int) ([]RunRecord, error)

	Close() error
}

// Open creates the backend selected by cfg.
func Open(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemory(), nil
	case config.BackendSQLite:
		return OpenSQLite(cfg.DSN, logger)
	case config.BackendMySQL:
		return OpenMySQL(cfg.DSN, logger)
	case config.BackendPostgres:
		return OpenPostgres(ctx, cfg.DSN, logger)
	case config.BackendRedis:
		return OpenRedis(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
