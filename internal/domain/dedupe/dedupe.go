// Package dedupe tracks processed import ids so a batch is applied at most once.
package dedupe

import (
	"context"
	"sync"
)

// Deduper records seen import ids.
type Deduper interface {
	// SeenAndRecord reports whether id was already recorded and records it if not.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a batch rejected before processing can be resubmitted.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryDeduper keeps ids in a map plus an insertion-ordered ring.
// When bounded and full the oldest id is evicted first.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]int // id -> ring slot, -1 when unbounded
	ring    []string
	next    int
	maxSize int
}

// NewInMemoryDeduper creates an in-memory deduper. Without WithMaxSize it keeps
// the most recent 10000 ids.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: 10000}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]int)
	if d.maxSize > 0 {
		d.ring = make([]string, 0, d.maxSize)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	if d.maxSize <= 0 {
		d.seen[id] = -1
		return false
	}

	if len(d.ring) < d.maxSize {
		d.ring = append(d.ring, id)
		d.seen[id] = len(d.ring) - 1
		return false
	}

	// Full: overwrite the oldest slot.
	slot := d.next
	if d.occupied(slot) {
		delete(d.seen, d.ring[slot])
	}
	d.ring[slot] = id
	d.seen[id] = slot
	d.next = (slot + 1) % d.maxSize
	return false
}

// occupied reports whether slot holds a live id; the empty id is a valid key.
func (d *inMemoryDeduper) occupied(slot int) bool {
	s, ok := d.seen[d.ring[slot]]
	return ok && s == slot
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, ok := d.seen[id]
	if !ok {
		return
	}
	delete(d.seen, id)
	if slot >= 0 {
		d.ring[slot] = ""
	}
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
