package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"bricksync/internal/sales"
)

// KeyLogs holds the locally recorded log entries as a JSON array.
const KeyLogs = "logs"

// Logbook is the append-only local activity log. When max is positive the
// oldest entries are dropped past that size.
type Logbook struct {
	store Store
	max   int
	mu    sync.Mutex
}

func NewLogbook(store Store, max int) *Logbook {
	return &Logbook{store: store, max: max}
}

// Append records one entry.
func (b *Logbook) Append(ctx context.Context, at time.Time, typ, message string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries, err := b.load(ctx)
	if err != nil {
		return err
	}
	entries = append(entries, sales.LogEntry{
		Timestamp: at.UTC().Format(time.RFC3339Nano),
		Message:   message,
		Type:      typ,
	})
	if b.max > 0 && len(entries) > b.max {
		entries = entries[len(entries)-b.max:]
	}
	return b.save(ctx, entries)
}

// Entries returns all recorded entries, oldest first.
func (b *Logbook) Entries(ctx context.Context) ([]sales.LogEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.load(ctx)
}

// Raw returns the stored JSON array.
func (b *Logbook) Raw(ctx context.Context) ([]byte, error) {
	entries, err := b.Entries(ctx)
	if err != nil {
		return nil, err
	}
	return json.Marshal(entries)
}

// Clear truncates the log.
func (b *Logbook) Clear(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.save(ctx, []sales.LogEntry{})
}

func (b *Logbook) load(ctx context.Context) ([]sales.LogEntry, error) {
	raw, err := b.store.Get(ctx, KeyLogs)
	if errors.Is(err, ErrNotFound) {
		return []sales.LogEntry{}, nil
	}
	if err != nil {
		return nil, err
	}
	var entries []sales.LogEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", KeyLogs, err)
	}
	if entries == nil {
		entries = []sales.LogEntry{}
	}
	return entries, nil
}

func (b *Logbook) save(ctx context.Context, entries []sales.LogEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return b.store.Set(ctx, KeyLogs, raw)
}
