package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"index-early-alerts/internal/config"
	"index-early-alerts/internal/model"
)

var (
	// ErrNotConfigured indicates the storage backend was not initialised.
	ErrNotConfigured = errors.New("storage: not configured")
	// ErrSnapshotNotFound is returned when no snapshot exists for a (date, exchange) key.
	ErrSnapshotNotFound = errors.New("storage: snapshot not found")
)

// SnapshotStore persists one immutable snapshot per (date, exchange).
type SnapshotStore interface {
	// SaveSnapshot inserts the snapshot unless one already exists for the key.
	// It reports whether a new document was written.
	SaveSnapshot(ctx context.Context, date, exchange string, prices map[string]model.PriceInfo) (bool, error)
	// GetSnapshot returns ErrSnapshotNotFound when the key is absent.
	GetSnapshot(ctx context.Context, date, exchange string) (model.Snapshot, error)
	ListSnapshots(ctx context.Context, limit int) ([]model.SnapshotSummary, error)
	Close() error
}

// Open builds the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.DatabaseConfig) (SnapshotStore, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "postgres", "postgresql":
		if cfg.DSN == "" {
			return nil, ErrNotConfigured
		}
		pool, err := NewPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		store := NewStore(pool)
		if cfg.AutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				store.Close()
				return nil, err
			}
		}
		return store, nil
	case "sqlite":
		if cfg.SQLitePath == "" {
			return nil, ErrNotConfigured
		}
		return NewSQLiteStore(ctx, cfg.SQLitePath)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("storage: unsupported driver %q", cfg.Driver)
	}
}

// NewPool configures a PostgreSQL connection pool from runtime settings.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	return pool, nil
}
