// Package dedupe tracks idempotency keys of loot submissions.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
)

// Deduper remembers which submissions were accepted and what they produced,
// so a retried submission gets the original answer instead of new records.
type Deduper interface {
	// Claim atomically records key if it is new. For a key seen before it
	// returns the stored result and true. A claimed key without a stored
	// result yet returns a nil result and true.
	Claim(ctx context.Context, key string) (result []string, seen bool)

	// Settle stores the result for a claimed key. Unknown keys are ignored.
	Settle(ctx context.Context, key string, result []string)

	// Release forgets key so the submission can be retried, e.g. after the
	// store rejected it.
	Release(ctx context.Context, key string)

	Size() int64
}

type entry struct {
	key    string
	result []string
}

// inMemoryDeduper keeps at most maxSize keys and evicts the oldest first.
// A non-positive maxSize keeps every key.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a bounded in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 10000,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func (d *inMemoryDeduper) Claim(_ context.Context, key string) ([]string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		e := el.Value.(*entry)
		return append([]string(nil), e.result...), true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		d.evictOldest()
	}
	d.seen[key] = d.order.PushBack(&entry{key: key})
	d.size.Add(1)
	return nil, false
}

func (d *inMemoryDeduper) Settle(_ context.Context, key string, result []string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		el.Value.(*entry).result = append([]string(nil), result...)
	}
}

func (d *inMemoryDeduper) Release(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		d.order.Remove(el)
		delete(d.seen, key)
		d.size.Add(-1)
	}
}

// evictOldest must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	el := d.order.Front()
	if el == nil {
		return
	}
	d.order.Remove(el)
	delete(d.seen, el.Value.(*entry).key)
	d.size.Add(-1)
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
