package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryBackend is an in-process LRU with a fixed TTL per entry
type MemoryBackend struct {
	mu  sync.Mutex
	lru *simplelru.LRU[string, memoryEntry]
	ttl time.Duration
	now func() time.Time
}

// NewMemoryBackend creates a backend holding at most capacity entries.
// now defaults to time.Now when nil.
func NewMemoryBackend(capacity int, ttl time.Duration, now func() time.Time) (*MemoryBackend, error) {
	lru, err := simplelru.NewLRU[string, memoryEntry](capacity, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru: %w", err)
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryBackend{lru: lru, ttl: ttl, now: now}, nil
}

// Get returns the entry for key unless it is missing or expired
func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !b.now().Before(entry.expiresAt) {
		b.lru.Remove(key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set stores value under key, evicting the least recently used entry when full
func (b *MemoryBackend) Set(_ context.Context, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lru.Add(key, memoryEntry{value: value, expiresAt: b.now().Add(b.ttl)})
	return nil
}

// DeleteFunc removes every key for which match returns true
func (b *MemoryBackend) DeleteFunc(_ context.Context, match func(key string) bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, key := range b.lru.Keys() {
		if match(key) {
			b.lru.Remove(key)
		}
	}
	return nil
}
