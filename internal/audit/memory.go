package audit

import (
	"context"
	"sync"
)

// Trail is an in-memory append-only recorder for tests and wiring without a DB.
type Trail struct {
	mu      sync.Mutex
	nextID  int64
	entries []Entry
}

// NewTrail constructs an empty trail.
func NewTrail() *Trail {
	return &Trail{nextID: 1}
}

// Log appends an entry.
func (t *Trail) Log(_ context.Context, entry Entry) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry.ID = t.nextID
	entry.EntityType = NormalizeEntityType(entry.EntityType)
	t.nextID++
	t.entries = append(t.entries, entry)
	return nil
}

// Entries returns a copy of all recorded entries in append order.
func (t *Trail) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}
