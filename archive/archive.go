// Package archive is the append-only read model of resolved periods.
// Readers never observe an entry before every wager of its period has
// settled; the clock appends only after the settlement batch returns.
package archive

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/Digital-Creators-Team/round-engine/errors"
	"github.com/Digital-Creators-Team/round-engine/game"
)

// Entry is one resolved (or void) period with its settlement records
type Entry struct {
	Family      game.Family              `json:"family"`
	IntervalSec int64                    `json:"intervalSec"` // 0 for the continuous game
	Outcome     *game.Outcome            `json:"outcome"`
	Records     []*game.SettlementRecord `json:"records,omitempty"`
	ArchivedAt  time.Time                `json:"archivedAt"`
}

// Key identifies one clock's result stream
type Key struct {
	Family      game.Family
	IntervalSec int64
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.Family, k.IntervalSec)
}

// Store persists resolved periods. Append is append-only; entries are
// immutable once written.
type Store interface {
	Append(ctx context.Context, e *Entry) error
	Get(ctx context.Context, key Key, periodID int64) (*Entry, error)
	Recent(ctx context.Context, key Key, limit int) ([]*Entry, error)
}

// Memory is a bounded in-memory Store: one ring per clock plus an index
// for point lookups. The default backend when no Redis is configured.
type Memory struct {
	mu    sync.RWMutex
	size  int
	rings map[Key][]*Entry
	index map[Key]map[int64]*Entry
}

// NewMemory creates a memory store keeping up to size entries per clock
func NewMemory(size int) *Memory {
	if size <= 0 {
		size = 100
	}
	return &Memory{
		size:  size,
		rings: make(map[Key][]*Entry),
		index: make(map[Key]map[int64]*Entry),
	}
}

// Append implements Store
func (m *Memory) Append(ctx context.Context, e *Entry) error {
	if e == nil || e.Outcome == nil {
		return fmt.Errorf("archive entry must carry an outcome")
	}
	key := Key{Family: e.Family, IntervalSec: e.IntervalSec}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.index[key] == nil {
		m.index[key] = make(map[int64]*Entry)
	}
	if _, dup := m.index[key][e.Outcome.PeriodID]; dup {
		// append-only: a re-delivered period keeps its first entry
		return nil
	}

	ring := append(m.rings[key], e)
	if len(ring) > m.size {
		evicted := ring[0]
		ring = ring[1:]
		delete(m.index[key], evicted.Outcome.PeriodID)
	}
	m.rings[key] = ring
	m.index[key][e.Outcome.PeriodID] = e
	return nil
}

// Get implements Store
func (m *Memory) Get(ctx context.Context, key Key, periodID int64) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.index[key][periodID]; ok {
		return e, nil
	}
	return nil, apperrors.NewWithDebug(apperrors.ErrNotFound, "result not found",
		fmt.Sprintf("%s period %d", key, periodID))
}

// Recent implements Store, most-recent-first
func (m *Memory) Recent(ctx context.Context, key Key, limit int) ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ring := m.rings[key]
	if limit <= 0 || limit > len(ring) {
		limit = len(ring)
	}
	out := make([]*Entry, 0, limit)
	for i := len(ring) - 1; i >= len(ring)-limit; i-- {
		out = append(out, ring[i])
	}
	return out, nil
}

var _ Store = (*Memory)(nil)
