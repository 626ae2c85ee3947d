package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"index-early-alerts/internal/model"
)

type snapshotKey struct {
	date     string
	exchange string
}

// MemoryStore is a process-local SnapshotStore. Nothing survives a restart.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[snapshotKey]model.Snapshot
	now  func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[snapshotKey]model.Snapshot), now: time.Now}
}

// SaveSnapshot stores the snapshot unless the key already exists.
func (m *MemoryStore) SaveSnapshot(_ context.Context, date, exchange string, prices map[string]model.PriceInfo) (bool, error) {
	key := snapshotKey{date: date, exchange: exchange}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.docs[key]; exists {
		return false, nil
	}
	m.docs[key] = model.NewSnapshot(date, exchange, prices, m.now())
	return true, nil
}

// GetSnapshot returns a copy of the stored snapshot.
func (m *MemoryStore) GetSnapshot(_ context.Context, date, exchange string) (model.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap, ok := m.docs[snapshotKey{date: date, exchange: exchange}]
	if !ok {
		return model.Snapshot{}, ErrSnapshotNotFound
	}
	snap.Contracts = append([]model.ContractRecord(nil), snap.Contracts...)
	return snap, nil
}

// ListSnapshots lists stored snapshot headers, newest date first.
func (m *MemoryStore) ListSnapshots(_ context.Context, limit int) ([]model.SnapshotSummary, error) {
	m.mu.RLock()
	out := make([]model.SnapshotSummary, 0, len(m.docs))
	for _, snap := range m.docs {
		out = append(out, snap.Summary())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].Exchange < out[j].Exchange
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len reports how many snapshots are stored.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }

var _ SnapshotStore = (*MemoryStore)(nil)
