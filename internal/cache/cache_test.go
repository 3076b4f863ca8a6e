package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestMemory() (*Memory, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewMemory()
	m.now = clock.Now
	return m, clock
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestMemory()

	require.NoError(t, m.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, m.Set(ctx, "forever", []byte("2"), 0))

	v, ok, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), v)

	clock.Advance(time.Minute)
	_, ok, _ = m.Get(ctx, "a")
	assert.False(t, ok, "entry must expire exactly at its ttl")

	_, ok, _ = m.Get(ctx, "forever")
	assert.True(t, ok)

	require.NoError(t, m.Delete(ctx, "forever"))
	assert.Equal(t, 0, m.Len())
}

func TestMemoryExpiredReadKeepsNewerSet(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestMemory()
	require.NoError(t, m.Set(ctx, "a", []byte("old"), time.Minute))
	clock.Advance(time.Minute)

	// The first clock read inside Get happens after the read lock is
	// released; a writer replaces the entry right there.
	var replaced bool
	m.now = func() time.Time {
		if !replaced {
			replaced = true
			require.NoError(t, m.Set(ctx, "a", []byte("new"), time.Hour))
		}
		return clock.Now()
	}

	_, ok, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
	require.True(t, replaced)

	v, ok, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("new"), v)
}

func TestMemorySweep(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestMemory()

	require.NoError(t, m.Set(ctx, "a", []byte("1"), time.Second))
	require.NoError(t, m.Set(ctx, "b", []byte("2"), time.Hour))
	clock.Advance(time.Minute)

	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 1, m.Len())
}

func TestGroupLoadsOnce(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestMemory()
	g := NewGroup(m, time.Hour)

	var loads atomic.Int32
	load := func(context.Context) ([]byte, error) {
		loads.Add(1)
		return []byte("<urlset/>"), nil
	}

	for i := 0; i < 3; i++ {
		v, err := g.Get(ctx, "sitemap", load)
		require.NoError(t, err)
		assert.Equal(t, "<urlset/>", string(v))
	}
	assert.Equal(t, int32(1), loads.Load())

	clock.Advance(2 * time.Hour)
	_, err := g.Get(ctx, "sitemap", load)
	require.NoError(t, err)
	assert.Equal(t, int32(2), loads.Load())

	require.NoError(t, g.Invalidate(ctx, "sitemap"))
	_, err = g.Get(ctx, "sitemap", load)
	require.NoError(t, err)
	assert.Equal(t, int32(3), loads.Load())
}

func TestGroupConcurrentMisses(t *testing.T) {
	ctx := context.Background()
	g := NewGroup(NewMemory(), time.Hour)

	release := make(chan struct{})
	var loads atomic.Int32
	load := func(context.Context) ([]byte, error) {
		loads.Add(1)
		<-release
		return []byte("x"), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := g.Get(ctx, "feed", load)
			assert.NoError(t, err)
			assert.Equal(t, "x", string(v))
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, loads.Load(), int32(2))
}

type failingCache struct{ *Memory }

func (failingCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}

func TestGroupErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("load error is returned and nothing is cached", func(t *testing.T) {
		m := NewMemory()
		g := NewGroup(m, time.Hour)
		boom := errors.New("boom")
		_, err := g.Get(ctx, "k", func(context.Context) ([]byte, error) { return nil, boom })
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 0, m.Len())
	})

	t.Run("backend failure still yields the value", func(t *testing.T) {
		g := NewGroup(failingCache{NewMemory()}, time.Hour)
		v, err := g.Get(ctx, "k", func(context.Context) ([]byte, error) { return []byte("ok"), nil })
		var be *BackendError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, "ok", string(v))
	})
}
