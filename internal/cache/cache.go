// Package cache stores generated documents (sitemaps, feeds) for a TTL,
// in process memory or in Redis.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache is a byte cache with per-entry expiry.
type Cache interface {
	// Get returns the value and true on a hit. A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Loader builds the value of a key on a miss.
type Loader func(ctx context.Context) ([]byte, error)

// Group puts a Cache in front of loaders and collapses concurrent misses
// for the same key into one load.
type Group struct {
	cache Cache
	ttl   time.Duration
	sf    singleflight.Group
}

func NewGroup(c Cache, ttl time.Duration) *Group {
	return &Group{cache: c, ttl: ttl}
}

// Get returns the cached value of key or loads and stores it. A failing
// cache backend degrades to loading on every call; the error is returned
// alongside the loaded value so callers can log it.
func (g *Group) Get(ctx context.Context, key string, load Loader) ([]byte, error) {
	if v, ok, err := g.cache.Get(ctx, key); err == nil && ok {
		return v, nil
	}
	v, err, _ := g.sf.Do(key, func() (any, error) {
		data, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if err := g.cache.Set(ctx, key, data, g.ttl); err != nil {
			return data, &BackendError{Err: err}
		}
		return data, nil
	})
	data, _ := v.([]byte)
	return data, err
}

// Invalidate drops keys so the next Get reloads them.
func (g *Group) Invalidate(ctx context.Context, keys ...string) error {
	return g.cache.Delete(ctx, keys...)
}

// BackendError wraps a cache backend failure that did not prevent the
// value from being produced.
type BackendError struct {
	Err error
}

func (e *BackendError) Error() string { return "cache backend: " + e.Err.Error() }
func (e *BackendError) Unwrap() error { return e.Err }

type entry struct {
	value   []byte
	expires time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// Memory is an in-process Cache. Expired entries are dropped lazily and by
// Sweep.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entry), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	now := m.now()
	if e.expired(now) {
		m.mu.Lock()
		// Another Set may have replaced the entry since the read.
		if cur, ok := m.entries[key]; ok && cur.expired(now) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set stores value. A non-positive ttl never expires.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{value: value}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	m.mu.Unlock()
	return nil
}

// Sweep removes expired entries and reports how many were removed.
func (m *Memory) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for k, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, k)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (m *Memory) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
