package cache

import (
	"context"
	"encoding/json"
	"log"
	"sync"
)

// Backend stores encoded values for a single tier. Implementations apply the
// tier's TTL and capacity themselves.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	DeleteFunc(ctx context.Context, match func(key string) bool) error
}

// Tier is a read-through cache for values of type T.
//
// Every backend fault is logged and the request falls back to compute, so a
// broken cache only costs latency. Invalidate is synchronous: once it returns,
// no value computed before the call can be stored anymore.
type Tier[T any] struct {
	name    string
	backend Backend

	mu         sync.Mutex
	generation uint64
}

// NewTier creates a tier named name on top of backend
func NewTier[T any](name string, backend Backend) *Tier[T] {
	return &Tier[T]{name: name, backend: backend}
}

// Name returns the tier name
func (t *Tier[T]) Name() string {
	return t.name
}

// GetOrCompute returns the cached value for key, computing and storing it on a miss.
func (t *Tier[T]) GetOrCompute(ctx context.Context, key string, compute func(context.Context) (T, error)) (T, error) {
	data, found, err := t.backend.Get(ctx, key)
	if err != nil {
		log.Printf("Cache %s: read of %q failed, computing directly: %v", t.name, key, err)
		return compute(ctx)
	}
	if found {
		var value T
		if err := json.Unmarshal(data, &value); err == nil {
			return value, nil
		}
		log.Printf("Cache %s: dropping undecodable entry %q: %v", t.name, key, err)
	}

	generation := t.currentGeneration()

	value, err := compute(ctx)
	if err != nil {
		return value, err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		log.Printf("Cache %s: could not encode %q: %v", t.name, key, err)
		return value, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.generation != generation {
		// an invalidation ran while computing, the value may already be stale
		return value, nil
	}
	if err := t.backend.Set(ctx, key, encoded); err != nil {
		log.Printf("Cache %s: write of %q failed: %v", t.name, key, err)
	}
	return value, nil
}

// Invalidate removes every entry whose key matches.
func (t *Tier[T]) Invalidate(ctx context.Context, match func(key string) bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.generation++
	if err := t.backend.DeleteFunc(ctx, match); err != nil {
		log.Printf("Cache %s: invalidation failed: %v", t.name, err)
	}
}

// InvalidateKeys removes the given keys.
func (t *Tier[T]) InvalidateKeys(ctx context.Context, keys ...string) {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	t.Invalidate(ctx, func(key string) bool {
		_, ok := set[key]
		return ok
	})
}

// InvalidateAll empties the tier.
func (t *Tier[T]) InvalidateAll(ctx context.Context) {
	t.Invalidate(ctx, func(string) bool { return true })
}

func (t *Tier[T]) currentGeneration() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.generation
}
