package lock

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	token   uint64
	expires time.Time
}

// MemoryLocker is a process-local CheckoutLocker used when redis is not configured.
type MemoryLocker struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	next    uint64
	now     func() time.Time
}

// NewMemoryLocker creates an empty in-process locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{entries: make(map[string]memoryEntry), now: time.Now}
}

// Acquire takes key for ttl unless another unexpired holder exists.
func (l *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if entry, ok := l.entries[key]; ok && now.Before(entry.expires) {
		return nil, false, nil
	}

	l.next++
	token := l.next
	l.entries[key] = memoryEntry{token: token, expires: now.Add(ttl)}

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if entry, ok := l.entries[key]; ok && entry.token == token {
				delete(l.entries, key)
			}
		})
	}
	return release, true, nil
}
