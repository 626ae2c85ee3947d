package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"index-early-alerts/internal/model"
)

const (
	sqliteCreateSQL = `CREATE TABLE IF NOT EXISTS daily_snapshots (
		snapshot_date   TEXT    NOT NULL,
		exchange        TEXT    NOT NULL,
		total_contracts INTEGER NOT NULL,
		contracts       TEXT    NOT NULL,
		created_at      TEXT    NOT NULL,
		PRIMARY KEY (snapshot_date, exchange)
	)`

	sqliteInsertSQL = `INSERT OR IGNORE INTO daily_snapshots
		(snapshot_date, exchange, total_contracts, contracts, created_at)
		VALUES (?,?,?,?,?)`

	sqliteGetSQL = `SELECT snapshot_date, exchange, total_contracts, contracts, created_at
		FROM daily_snapshots WHERE snapshot_date = ? AND exchange = ?`

	sqliteListSQL = `SELECT snapshot_date, exchange, total_contracts, created_at
		FROM daily_snapshots ORDER BY snapshot_date DESC, exchange LIMIT ?`
)

// SQLiteStore keeps daily snapshots in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the database and its schema.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteCreateSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create daily_snapshots: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// SaveSnapshot inserts a snapshot unless the key already exists.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, date, exchange string, prices map[string]model.PriceInfo) (bool, error) {
	snap := model.NewSnapshot(date, exchange, prices, time.Now())
	contracts, err := json.Marshal(snap.Contracts)
	if err != nil {
		return false, fmt.Errorf("marshal contracts: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, sqliteInsertSQL,
		snap.Date, snap.Exchange, snap.TotalContracts, string(contracts),
		snap.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return false, fmt.Errorf("insert snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert snapshot: %w", err)
	}
	return n == 1, nil
}

// GetSnapshot loads the snapshot stored for date and exchange.
func (s *SQLiteStore) GetSnapshot(ctx context.Context, date, exchange string) (model.Snapshot, error) {
	var (
		snap      model.Snapshot
		contracts string
		created   string
	)
	err := s.db.QueryRowContext(ctx, sqliteGetSQL, date, exchange).Scan(
		&snap.Date, &snap.Exchange, &snap.TotalContracts, &contracts, &created,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Snapshot{}, ErrSnapshotNotFound
	}
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("get snapshot: %w", err)
	}

	if err := json.Unmarshal([]byte(contracts), &snap.Contracts); err != nil {
		return model.Snapshot{}, fmt.Errorf("decode contracts: %w", err)
	}
	if snap.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return model.Snapshot{}, fmt.Errorf("parse created_at: %w", err)
	}
	return snap, nil
}

// ListSnapshots lists the most recent snapshot headers.
func (s *SQLiteStore) ListSnapshots(ctx context.Context, limit int) ([]model.SnapshotSummary, error) {
	rows, err := s.db.QueryContext(ctx, sqliteListSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []model.SnapshotSummary
	for rows.Next() {
		var (
			sum     model.SnapshotSummary
			created string
		)
		if err := rows.Scan(&sum.Date, &sum.Exchange, &sum.TotalContracts, &created); err != nil {
			return nil, err
		}
		if sum.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ SnapshotStore = (*SQLiteStore)(nil)
