package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"index-early-alerts/internal/config"
	"index-early-alerts/internal/model"
)

func samplePrices() map[string]model.PriceInfo {
	return map[string]model.PriceInfo{
		"NIFTY26102025250PE": {LTP: 98.5, Volume: 1200, OpenInterest: 5000, OIDayChange: -150, OIDayChangePct: -2.9, LastTradeTime: 1760600000},
		"NIFTY26102025250CE": {LTP: 120.25, Volume: 3400, OpenInterest: 8000, OIDayChange: 400, OIDayChangePct: 5.26, LastTradeTime: 1760600001},
	}
}

func exerciseStore(t *testing.T, store SnapshotStore) {
	t.Helper()
	ctx := context.Background()

	if _, err := store.GetSnapshot(ctx, "2026-10-14", "NSE"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Fatalf("missing key should return ErrSnapshotNotFound, got %v", err)
	}

	saved, err := store.SaveSnapshot(ctx, "2026-10-14", "NSE", samplePrices())
	if err != nil || !saved {
		t.Fatalf("first save should write: saved=%v err=%v", saved, err)
	}

	saved, err = store.SaveSnapshot(ctx, "2026-10-14", "NSE", map[string]model.PriceInfo{"X": {LTP: 1}})
	if err != nil {
		t.Fatalf("duplicate save must not fail: %v", err)
	}
	if saved {
		t.Fatal("duplicate save must be a no-op")
	}

	snap, err := store.GetSnapshot(ctx, "2026-10-14", "NSE")
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	if snap.TotalContracts != 2 || len(snap.Contracts) != 2 {
		t.Fatalf("original document must survive, got %+v", snap)
	}
	ce := snap.Contracts[0]
	if ce.Symbol != "NIFTY26102025250CE" || ce.LTP != 120.25 || ce.OI != 8000 || ce.OIChangePct != 5.26 || ce.Timestamp != 1760600001 {
		t.Fatalf("unexpected record %+v", ce)
	}
	if snap.CreatedAt.IsZero() {
		t.Fatal("created_at should be set")
	}

	if _, err := store.SaveSnapshot(ctx, "2026-10-14", "BSE", samplePrices()); err != nil {
		t.Fatalf("different exchange must save: %v", err)
	}
	if _, err := store.SaveSnapshot(ctx, "2026-10-15", "NSE", samplePrices()); err != nil {
		t.Fatalf("different date must save: %v", err)
	}

	list, err := store.ListSnapshots(ctx, 10)
	if err != nil {
		t.Fatalf("list snapshots: %v", err)
	}
	if len(list) != 3 || list[0].Date != "2026-10-15" || list[1].Exchange != "BSE" {
		t.Fatalf("unexpected listing %+v", list)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "db", "snapshots.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer store.Close()
	exerciseStore(t, store)
}

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()
	if _, err := Open(ctx, config.DatabaseConfig{Driver: "postgres"}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("postgres without dsn should be ErrNotConfigured, got %v", err)
	}
	if _, err := Open(ctx, config.DatabaseConfig{Driver: "mongo"}); err == nil {
		t.Fatal("unknown driver should fail")
	}
	store, err := Open(ctx, config.DatabaseConfig{Driver: "memory"})
	if err != nil {
		t.Fatalf("memory driver: %v", err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Fatalf("expected MemoryStore, got %T", store)
	}
}
