package storage

import (
	"context"
	"errors"
)

var snapshotKeys = map[string]string{
	"customers":    "customer-table-data",
	"sales":        "sales-table-data",
	"payments":     "payment-table-data",
	"transactions": "transaction-table-data",
	"balances":     "balance-table-data",
	"logs":         "log-table-data",
}

// SnapshotKey returns the storage key holding the cached payload of resource.
func SnapshotKey(resource string) string {
	if k, ok := snapshotKeys[resource]; ok {
		return k
	}
	return resource + "-table-data"
}

// SnapshotStore keeps the last successful payload of each remote resource.
type SnapshotStore struct {
	store Store
}

func NewSnapshotStore(store Store) *SnapshotStore {
	return &SnapshotStore{store: store}
}

// Put overwrites the snapshot of resource.
func (s *SnapshotStore) Put(ctx context.Context, resource string, payload []byte) error {
	return s.store.Set(ctx, SnapshotKey(resource), payload)
}

// Get returns the snapshot of resource and whether one exists.
func (s *SnapshotStore) Get(ctx context.Context, resource string) ([]byte, bool, error) {
	v, err := s.store.Get(ctx, SnapshotKey(resource))
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}
