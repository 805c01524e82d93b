package monitor

import "sync"

// boundedLog keeps the most recent limit items, oldest first. Readers get
// copies so they never hold the lock while the scan loop writes.
type boundedLog[T any] struct {
	mu    sync.RWMutex
	items []T
	limit int
}

func newBoundedLog[T any](limit int) *boundedLog[T] {
	if limit <= 0 {
		limit = 1
	}
	return &boundedLog[T]{limit: limit, items: make([]T, 0, limit)}
}

func (b *boundedLog[T]) push(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, v)
	if over := len(b.items) - b.limit; over > 0 {
		// Shift instead of reslicing so the backing array does not grow forever.
		n := copy(b.items, b.items[over:])
		clear(b.items[n:])
		b.items = b.items[:n]
	}
}

// recent returns up to limit items, newest first. limit <= 0 means all.
func (b *boundedLog[T]) recent(limit int) []T {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := len(b.items)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]T, 0, n)
	for i := len(b.items) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, b.items[i])
	}
	return out
}

func (b *boundedLog[T]) len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items)
}
