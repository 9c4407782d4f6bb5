package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Digital-Creators-Team/round-engine/archive"
	apperrors "github.com/Digital-Creators-Team/round-engine/errors"
	"github.com/Digital-Creators-Team/round-engine/game"
	"github.com/Digital-Creators-Team/round-engine/pkg/results"
)

// ClockState is the lifecycle state of a period
type ClockState string

const (
	StateOpen      ClockState = "open"
	StateLocked    ClockState = "locked"
	StateResolving ClockState = "resolving"
	StatePublished ClockState = "published"
)

// OutcomePublisher pushes archived entries to an external transport
// (Kafka in production). Optional; a nil publisher is skipped.
type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, e *archive.Entry) error
}

// PeriodInfo describes the currently open betting window of one clock
type PeriodInfo struct {
	Family      game.Family `json:"family"`
	IntervalSec int64       `json:"intervalSec"`
	PeriodID    int64       `json:"periodId"`
	OpensAt     time.Time   `json:"opensAt"`
	ClosesAt    time.Time   `json:"closesAt"`
	State       ClockState  `json:"state"`
}

// PeriodClock drives the repeating open → lock → resolve → publish state
// machine for one (family, interval) pair. Period ids come from the wall
// clock, so a restarted process rejoins the in-flight period. The tick
// only swaps books; resolution runs asynchronously and can never delay
// the next betting window.
type PeriodClock struct {
	family    game.Family
	interval  time.Duration
	lockAhead time.Duration
	gen       *game.Generator
	settler   *Settler
	store     archive.Store
	broadcast *results.Broadcaster
	publisher OutcomePublisher
	logger    zerolog.Logger
	now       func() time.Time

	mu        sync.RWMutex
	book      *WagerBook
	lastState ClockState // state of the most recently closed period
	lastID    int64

	resolving sync.WaitGroup
}

// ClockDeps bundles the collaborators a period clock needs
type ClockDeps struct {
	Generator *game.Generator
	Settler   *Settler
	Store     archive.Store
	Broadcast *results.Broadcaster
	Publisher OutcomePublisher
	Logger    zerolog.Logger
	// Now overrides the wall clock in tests
	Now func() time.Time
	// LockAhead stops accepting wagers this long before closesAt
	LockAhead time.Duration
}

// NewPeriodClock creates a clock for one (family, interval) pair
func NewPeriodClock(family game.Family, interval time.Duration, deps ClockDeps) *PeriodClock {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	c := &PeriodClock{
		family:    family,
		interval:  interval,
		lockAhead: deps.LockAhead,
		gen:       deps.Generator,
		settler:   deps.Settler,
		store:     deps.Store,
		broadcast: deps.Broadcast,
		publisher: deps.Publisher,
		now:       now,
		lastState: StatePublished,
		logger: deps.Logger.With().
			Str("component", "period_clock").
			Str("game", string(family)).
			Int64("interval_sec", int64(interval/time.Second)).
			Logger(),
	}
	c.book = NewWagerBook(family, game.PeriodID(now(), interval))
	return c
}

// IntervalSec returns the clock interval in seconds
func (c *PeriodClock) IntervalSec() int64 {
	return int64(c.interval / time.Second)
}

// Run drives the clock until ctx is cancelled. On shutdown the open
// period is voided so no stake stays reserved.
func (c *PeriodClock) Run(ctx context.Context) {
	c.logger.Info().Msg("period clock started")
	for {
		_, closesAt := game.PeriodBounds(c.openPeriodID(), c.interval)
		timer := time.NewTimer(closesAt.Sub(c.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			c.shutdown()
			return
		case <-timer.C:
			c.Tick(ctx)
		}
	}
}

func (c *PeriodClock) openPeriodID() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.book.PeriodID()
}

// CurrentPeriod returns the current betting window. ClosesAt is the
// acceptance deadline Accept enforces, so the lock-ahead margin is
// already subtracted; past it the state reads locked.
func (c *PeriodClock) CurrentPeriod() PeriodInfo {
	c.mu.RLock()
	periodID := c.book.PeriodID()
	c.mu.RUnlock()
	opensAt, closesAt := game.PeriodBounds(periodID, c.interval)
	closesAt = closesAt.Add(-c.lockAhead)
	state := StateOpen
	if !c.now().Before(closesAt) {
		state = StateLocked
	}
	return PeriodInfo{
		Family:      c.family,
		IntervalSec: c.IntervalSec(),
		PeriodID:    periodID,
		OpensAt:     opensAt,
		ClosesAt:    closesAt,
		State:       state,
	}
}

// Accept places an already-funded wager into the open book. The wager's
// period must still be the open one; anything later is PeriodClosed and
// the caller releases the reservation.
func (c *PeriodClock) Accept(w *game.Wager) error {
	_, closesAt := game.PeriodBounds(w.PeriodID, c.interval)
	if !c.now().Before(closesAt.Add(-c.lockAhead)) {
		return apperrors.PeriodClosed(w.PeriodID)
	}
	c.mu.RLock()
	book := c.book
	c.mu.RUnlock()
	return book.Accept(w)
}

// Tick closes the current period: the frozen book is handed to async
// resolution and a fresh book for the wall clock's current bucket opens
// immediately.
func (c *PeriodClock) Tick(ctx context.Context) {
	now := c.now()
	nextID := game.PeriodID(now, c.interval)

	c.mu.Lock()
	frozen := c.book
	if frozen.PeriodID() == nextID {
		// tick fired early; nothing to close yet
		c.mu.Unlock()
		return
	}
	c.book = NewWagerBook(c.family, nextID)
	c.lastState = StateLocked
	c.lastID = frozen.PeriodID()
	c.mu.Unlock()

	wagers := frozen.Freeze()

	// generation is cheap and pure; run it before handing off so the
	// outcome is fixed at lock time
	out, err := c.draw(frozen.PeriodID(), now)
	if err != nil {
		c.logger.Error().Err(err).Int64("period_id", frozen.PeriodID()).Msg("outcome generation failed, voiding period")
		out = nil
	}

	c.resolving.Add(1)
	go func() {
		defer c.resolving.Done()
		c.resolve(ctx, frozen.PeriodID(), wagers, out)
	}()
}

// draw isolates generator panics so a failing generator voids the period
// instead of killing the clock
func (c *PeriodClock) draw(periodID int64, at time.Time) (out *game.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, apperrors.NewWithDebug(apperrors.ErrGeneratorFailure, "generator panicked", "recovered")
		}
	}()
	return c.gen.Draw(c.family, periodID, at)
}

// resolve settles the frozen book, archives and publishes. A nil outcome
// or a settlement error voids the period with full refunds. Errors are
// contained here; the next period is already open.
func (c *PeriodClock) resolve(ctx context.Context, periodID int64, wagers []*game.Wager, out *game.Outcome) {
	c.setLastState(StateResolving)

	var records []*game.SettlementRecord
	if out != nil {
		var err error
		records, err = c.settler.SettleBatch(ctx, wagers, out, nil)
		if err != nil {
			c.logger.Error().Err(err).Int64("period_id", periodID).Msg("settlement failed, voiding period")
			out = nil
		}
	}
	if out == nil {
		out = game.VoidOutcome(c.family, periodID, c.now())
		records = c.settler.VoidBatch(ctx, wagers)
	}

	entry := &archive.Entry{
		Family:      c.family,
		IntervalSec: c.IntervalSec(),
		Outcome:     out,
		Records:     records,
		ArchivedAt:  c.now(),
	}
	if err := c.store.Append(ctx, entry); err != nil {
		// readers must never see a published outcome without its archive
		// entry, so publication is skipped too
		c.logger.Error().Err(err).Int64("period_id", periodID).Msg("archive append failed")
		c.setLastState(StatePublished)
		return
	}

	c.broadcast.Publish(results.Update{
		Family:      c.family,
		IntervalSec: c.IntervalSec(),
		Outcome:     out,
	})
	if c.publisher != nil {
		if err := c.publisher.PublishOutcome(ctx, entry); err != nil {
			c.logger.Warn().Err(err).Int64("period_id", periodID).Msg("external publish failed")
		}
	}
	c.setLastState(StatePublished)

	c.logger.Info().
		Int64("period_id", periodID).
		Int("wagers", len(wagers)).
		Bool("void", out.Void).
		Msg("period resolved")
}

func (c *PeriodClock) setLastState(s ClockState) {
	c.mu.Lock()
	c.lastState = s
	c.mu.Unlock()
}

// LastResolved reports the id and state of the most recently closed period
func (c *PeriodClock) LastResolved() (int64, ClockState) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastID, c.lastState
}

// shutdown voids the open book so reserved stakes are returned, then
// waits for in-flight resolutions
func (c *PeriodClock) shutdown() {
	c.mu.Lock()
	frozen := c.book
	c.mu.Unlock()
	wagers := frozen.Freeze()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if len(wagers) > 0 {
		records := c.settler.VoidBatch(ctx, wagers)
		entry := &archive.Entry{
			Family:      c.family,
			IntervalSec: c.IntervalSec(),
			Outcome:     game.VoidOutcome(c.family, frozen.PeriodID(), c.now()),
			Records:     records,
			ArchivedAt:  c.now(),
		}
		if err := c.store.Append(ctx, entry); err != nil {
			c.logger.Error().Err(err).Msg("archive append failed during shutdown")
		}
	}

	c.resolving.Wait()
	c.logger.Info().Msg("period clock stopped")
}
