package engine

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Digital-Creators-Team/round-engine/archive"
	"github.com/Digital-Creators-Team/round-engine/config"
	apperrors "github.com/Digital-Creators-Team/round-engine/errors"
	"github.com/Digital-Creators-Team/round-engine/game"
	"github.com/Digital-Creators-Team/round-engine/pkg/results"
)

// CrashPhase is the lifecycle phase of a continuous round
type CrashPhase string

const (
	PhaseBetting CrashPhase = "betting"
	PhaseFlight  CrashPhase = "flight"
	PhaseCrashed CrashPhase = "crashed"
)

// CrashInfo describes the current continuous round. The crash point is
// never included while the round is live.
type CrashInfo struct {
	RoundID           int64           `json:"roundId"`
	Phase             CrashPhase      `json:"phase"`
	BettingEndsAt     time.Time       `json:"bettingEndsAt"`
	FlightStartedAt   time.Time       `json:"flightStartedAt,omitempty"`
	CurrentMultiplier decimal.Decimal `json:"currentMultiplier,omitempty"`
}

// CrashGame runs the continuous-multiplier loop: a short fixed betting
// window, then a flight whose length is exactly the time the published
// multiplier curve takes to reach the crash point sampled before the
// round started. The point is fixed up front but revealed only when
// reached.
type CrashGame struct {
	cfg       config.CrashConfig
	gen       *game.Generator
	settler   *Settler
	store     archive.Store
	broadcast *results.Broadcaster
	publisher OutcomePublisher
	logger    zerolog.Logger
	now       func() time.Time

	mu            sync.RWMutex
	phase         CrashPhase
	roundID       int64
	book          *WagerBook
	bettingEndsAt time.Time
	flightStart   time.Time
	crashPoint    decimal.Decimal
	crashAt       time.Time
	cashouts      map[string]decimal.Decimal
}

// NewCrashGame creates the continuous round loop
func NewCrashGame(cfg config.CrashConfig, deps ClockDeps) *CrashGame {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &CrashGame{
		cfg:       cfg,
		gen:       deps.Generator,
		settler:   deps.Settler,
		store:     deps.Store,
		broadcast: deps.Broadcast,
		publisher: deps.Publisher,
		now:       now,
		phase:     PhaseCrashed,
		logger: deps.Logger.With().
			Str("component", "crash_game").
			Str("game", string(game.FamilyContinuousMultiplier)).
			Logger(),
	}
}

// Run drives rounds back to back until ctx is cancelled. A cancellation
// mid-round voids it: every stake is refunded in full.
func (g *CrashGame) Run(ctx context.Context) {
	g.logger.Info().Msg("crash loop started")
	for {
		if ctx.Err() != nil {
			g.logger.Info().Msg("crash loop stopped")
			return
		}
		g.runRound(ctx)
	}
}

func (g *CrashGame) runRound(ctx context.Context) {
	now := g.now()

	g.mu.Lock()
	roundID := now.Unix()
	if roundID <= g.roundID {
		roundID = g.roundID + 1
	}
	g.roundID = roundID
	g.book = NewWagerBook(game.FamilyContinuousMultiplier, roundID)
	g.cashouts = make(map[string]decimal.Decimal)
	g.phase = PhaseBetting
	g.bettingEndsAt = now.Add(g.cfg.BettingWindow)
	// the crash point is fixed before the round is visible
	g.crashPoint = g.gen.CrashPoint()
	g.mu.Unlock()

	if !g.sleepUntil(ctx, g.bettingEndsAt) {
		g.voidRound()
		return
	}

	g.mu.Lock()
	g.phase = PhaseFlight
	g.flightStart = g.now()
	g.crashAt = g.flightStart.Add(g.flightDuration())
	book := g.book
	crashAt := g.crashAt
	g.mu.Unlock()

	wagers := book.Freeze()

	if !g.sleepUntil(ctx, crashAt) {
		g.voidRound()
		return
	}

	g.mu.Lock()
	g.phase = PhaseCrashed
	overrides := make(map[string]decimal.Decimal, len(g.cashouts))
	for id, m := range g.cashouts {
		overrides[id] = m
	}
	crashPoint := g.crashPoint
	g.mu.Unlock()

	out := &game.Outcome{
		PeriodID: roundID,
		Family:   game.FamilyContinuousMultiplier,
		DrawnAt:  g.now(),
		Crash:    &game.CrashResult{CrashPoint: crashPoint},
	}

	records, err := g.settler.SettleBatch(ctx, wagers, out, overrides)
	if err != nil {
		g.logger.Error().Err(err).Int64("round_id", roundID).Msg("settlement failed, voiding round")
		out = game.VoidOutcome(game.FamilyContinuousMultiplier, roundID, g.now())
		records = g.settler.VoidBatch(ctx, wagers)
	}

	entry := &archive.Entry{
		Family:     game.FamilyContinuousMultiplier,
		Outcome:    out,
		Records:    records,
		ArchivedAt: g.now(),
	}
	if err := g.store.Append(ctx, entry); err != nil {
		g.logger.Error().Err(err).Int64("round_id", roundID).Msg("archive append failed")
		return
	}

	g.broadcast.Publish(results.Update{
		Family:  game.FamilyContinuousMultiplier,
		Outcome: out,
	})
	if g.publisher != nil {
		if err := g.publisher.PublishOutcome(ctx, entry); err != nil {
			g.logger.Warn().Err(err).Int64("round_id", roundID).Msg("external publish failed")
		}
	}

	g.logger.Info().
		Int64("round_id", roundID).
		Int("wagers", len(wagers)).
		Str("crash_point", crashPoint.String()).
		Bool("void", out.Void).
		Msg("round crashed")
}

// flightDuration is the time the multiplier curve 1.0·e^(rate·t) takes
// to reach the sampled crash point
func (g *CrashGame) flightDuration() time.Duration {
	point, _ := g.crashPoint.Float64()
	if point <= 1.0 {
		return 0
	}
	seconds := math.Log(point) / g.cfg.GrowthRate
	return time.Duration(seconds * float64(time.Second))
}

// multiplierAt is the published curve value at instant t during flight
func (g *CrashGame) multiplierAt(t time.Time) decimal.Decimal {
	elapsed := t.Sub(g.flightStart).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	return decimal.NewFromFloat(math.Exp(g.cfg.GrowthRate * elapsed)).Truncate(2)
}

func (g *CrashGame) sleepUntil(ctx context.Context, t time.Time) bool {
	d := t.Sub(g.now())
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// voidRound refunds the current round on shutdown
func (g *CrashGame) voidRound() {
	g.mu.Lock()
	book := g.book
	roundID := g.roundID
	g.phase = PhaseCrashed
	g.mu.Unlock()
	if book == nil {
		return
	}
	wagers := book.Freeze()
	if len(wagers) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	records := g.settler.VoidBatch(ctx, wagers)
	entry := &archive.Entry{
		Family:     game.FamilyContinuousMultiplier,
		Outcome:    game.VoidOutcome(game.FamilyContinuousMultiplier, roundID, g.now()),
		Records:    records,
		ArchivedAt: g.now(),
	}
	if err := g.store.Append(ctx, entry); err != nil {
		g.logger.Error().Err(err).Msg("archive append failed during void")
	}
	g.logger.Warn().Int64("round_id", roundID).Int("wagers", len(wagers)).Msg("round voided, stakes refunded")
}

// Place accepts an already-funded wager during the betting window. The
// window is judged against the wall clock, not just the phase field, so
// a placement racing the flight transition is still rejected.
func (g *CrashGame) Place(w *game.Wager) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase != PhaseBetting || g.book == nil {
		return apperrors.PeriodClosed(g.roundID)
	}
	if !g.now().Before(g.bettingEndsAt) {
		return apperrors.PeriodClosed(g.roundID)
	}
	if w.PeriodID != g.roundID {
		return apperrors.PeriodClosed(w.PeriodID)
	}
	return g.book.Accept(w)
}

// CurrentRound returns the live round info; during flight it includes the
// current curve value, never the crash point
func (g *CrashGame) CurrentRound() CrashInfo {
	g.mu.RLock()
	defer g.mu.RUnlock()
	info := CrashInfo{
		RoundID:       g.roundID,
		Phase:         g.phase,
		BettingEndsAt: g.bettingEndsAt,
	}
	if g.phase == PhaseFlight {
		info.FlightStartedAt = g.flightStart
		info.CurrentMultiplier = g.multiplierAt(g.now())
	}
	return info
}

// RoundID returns the id of the round currently accepting bets or flying
func (g *CrashGame) RoundID() int64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.roundID
}

// Cashout locks the current multiplier for a flying wager. The implicit
// deadline is the crash instant: a request at or past it is a definitive
// loss, never a pending state.
func (g *CrashGame) Cashout(ctx context.Context, playerID, wagerID string) (decimal.Decimal, error) {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase != PhaseFlight {
		return decimal.Zero, apperrors.RoundCrashed()
	}
	if !now.Before(g.crashAt) {
		return decimal.Zero, apperrors.RoundCrashed()
	}

	w, ok := g.book.Get(wagerID)
	if !ok || w.PlayerID != playerID {
		return decimal.Zero, apperrors.NewWithDebug(apperrors.ErrNotFound, "wager not found", wagerID)
	}
	if _, done := g.cashouts[wagerID]; done {
		return decimal.Zero, apperrors.NewWithDebug(apperrors.ErrInvalidRequest, "wager already cashed out", wagerID)
	}

	m := g.multiplierAt(now)
	g.cashouts[wagerID] = m
	return m, nil
}
