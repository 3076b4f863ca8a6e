package engagement

import (
	"context"
	"sync"
	"time"
)

// DefaultIdle is how long the memory store keeps a visitor it has not
// heard from.
const DefaultIdle = 30 * 24 * time.Hour

type tally struct {
	count int
	sum   int
}

// Memory is a Store that lives in process memory. Sweep forgets idle
// visitors: their history goes and their ratings are folded into the
// calculator totals, so averages survive but re-rating starts afresh.
type Memory struct {
	mu       sync.RWMutex
	history  map[string][]Entry // oldest first
	ratings  map[string]map[string]int
	settled  map[string]tally // ratings of swept visitors, per calculator
	lastSeen map[string]time.Time
	nextID   int64
	idle     time.Duration
	now      func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		history:  make(map[string][]Entry),
		ratings:  make(map[string]map[string]int),
		settled:  make(map[string]tally),
		lastSeen: make(map[string]time.Time),
		idle:     DefaultIdle,
		now:      time.Now,
	}
}

// touch marks visitor as active; m.mu must be held for writing.
func (m *Memory) touch(visitor string) {
	m.lastSeen[visitor] = m.now()
}

func (m *Memory) AddHistory(_ context.Context, visitor string, e Entry) error {
	if err := checkVisitor(visitor); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	e.ID = m.nextID
	if e.CreatedAt.IsZero() {
		e.CreatedAt = m.now().UTC()
	}
	entries := append(m.history[visitor], e)
	if len(entries) > MaxHistory {
		entries = append([]Entry(nil), entries[len(entries)-MaxHistory:]...)
	}
	m.history[visitor] = entries
	m.touch(visitor)
	return nil
}

func (m *Memory) History(_ context.Context, visitor string, limit int) ([]Entry, error) {
	if err := checkVisitor(visitor); err != nil {
		return nil, err
	}
	limit = clampLimit(limit)
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := m.history[visitor]
	out := make([]Entry, 0, min(limit, len(entries)))
	for i := len(entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}

func (m *Memory) ClearHistory(_ context.Context, visitor string) error {
	if err := checkVisitor(visitor); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.history, visitor)
	m.touch(visitor)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Rate(_ context.Context, visitor, calculator string, score int) error {
	if err := checkVisitor(visitor); err != nil {
		return err
	}
	if err := checkScore(score); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ratings[calculator] == nil {
		m.ratings[calculator] = make(map[string]int)
	}
	m.ratings[calculator][visitor] = score
	m.touch(visitor)
	return nil
}

func (m *Memory) Rating(_ context.Context, calculator string) (Rating, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t := m.settled[calculator]
	for _, s := range m.ratings[calculator] {
		t.count++
		t.sum += s
	}
	return newRating(calculator, t.count, float64(t.sum)), nil
}

// Sweep forgets visitors idle for longer than the idle period and reports
// how many it dropped.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-m.idle)
	removed := 0
	for visitor, seen := range m.lastSeen {
		if !seen.Before(cutoff) {
			continue
		}
		delete(m.history, visitor)
		for calculator, votes := range m.ratings {
			score, ok := votes[visitor]
			if !ok {
				continue
			}
			t := m.settled[calculator]
			t.count++
			t.sum += score
			m.settled[calculator] = t
			delete(votes, visitor)
		}
		delete(m.lastSeen, visitor)
		removed++
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

// Visitors reports how many visitors the store is tracking.
func (m *Memory) Visitors() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.lastSeen)
}

func (m *Memory) Close() error { return nil }
