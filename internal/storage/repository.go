package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"index-early-alerts/internal/model"
)

const (
	createSnapshotsSQL = `CREATE TABLE IF NOT EXISTS daily_snapshots (
        snapshot_date   DATE        NOT NULL,
        exchange        TEXT        NOT NULL,
        total_contracts INTEGER     NOT NULL,
        contracts       JSONB       NOT NULL,
        created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
        PRIMARY KEY (snapshot_date, exchange)
    );`

	insertSnapshotSQL = `INSERT INTO daily_snapshots (
        snapshot_date,
        exchange,
        total_contracts,
        contracts,
        created_at
    ) VALUES (
        $1::date,$2,$3,$4::jsonb,$5
    )
    ON CONFLICT (snapshot_date, exchange) DO NOTHING;`

	getSnapshotSQL = `SELECT
        to_char(snapshot_date, 'YYYY-MM-DD'),
        exchange,
        total_contracts,
        contracts,
        created_at
    FROM daily_snapshots
    WHERE snapshot_date = $1::date
      AND exchange = $2;`

	listSnapshotsSQL = `SELECT
        to_char(snapshot_date, 'YYYY-MM-DD'),
        exchange,
        total_contracts,
        created_at
    FROM daily_snapshots
    ORDER BY snapshot_date DESC, exchange
    LIMIT $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// AdvisoryLocker lets several processes share one store without running a job twice.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store keeps daily snapshots in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

// TryAdvisoryLock holds a session level lock on a dedicated connection until unlock is called.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// EnsureSchema creates the snapshot table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, createSnapshotsSQL); err != nil {
		return fmt.Errorf("create daily_snapshots: %w", err)
	}
	return nil
}

// SaveSnapshot inserts a snapshot; an existing (date, exchange) row is left untouched.
func (s *Store) SaveSnapshot(ctx context.Context, date, exchange string, prices map[string]model.PriceInfo) (bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return false, err
	}

	snap := model.NewSnapshot(date, exchange, prices, time.Now())
	contracts, err := json.Marshal(snap.Contracts)
	if err != nil {
		return false, fmt.Errorf("marshal contracts: %w", err)
	}

	tag, execErr := pool.Exec(ctx, insertSnapshotSQL,
		snap.Date,
		snap.Exchange,
		snap.TotalContracts,
		string(contracts),
		snap.CreatedAt,
	)
	if execErr != nil {
		return false, fmt.Errorf("insert snapshot: %w", execErr)
	}
	return tag.RowsAffected() == 1, nil
}

// GetSnapshot loads the snapshot stored for date and exchange.
func (s *Store) GetSnapshot(ctx context.Context, date, exchange string) (model.Snapshot, error) {
	pool, err := s.getPool()
	if err != nil {
		return model.Snapshot{}, err
	}

	var (
		snap      model.Snapshot
		contracts []byte
	)
	scanErr := pool.QueryRow(ctx, getSnapshotSQL, date, exchange).Scan(
		&snap.Date,
		&snap.Exchange,
		&snap.TotalContracts,
		&contracts,
		&snap.CreatedAt,
	)
	if errors.Is(scanErr, pgx.ErrNoRows) {
		return model.Snapshot{}, ErrSnapshotNotFound
	}
	if scanErr != nil {
		return model.Snapshot{}, fmt.Errorf("get snapshot: %w", scanErr)
	}

	if err := json.Unmarshal(contracts, &snap.Contracts); err != nil {
		return model.Snapshot{}, fmt.Errorf("decode contracts: %w", err)
	}
	return snap, nil
}

// ListSnapshots lists the most recent snapshot headers.
func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]model.SnapshotSummary, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSnapshotsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list snapshots: %w", queryErr)
	}
	defer rows.Close()

	out := make([]model.SnapshotSummary, 0, limit)
	for rows.Next() {
		var sum model.SnapshotSummary
		if err := rows.Scan(&sum.Date, &sum.Exchange, &sum.TotalContracts, &sum.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

var (
	_ SnapshotStore  = (*Store)(nil)
	_ AdvisoryLocker = (*Store)(nil)
)
