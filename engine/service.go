package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Digital-Creators-Team/round-engine/archive"
	apperrors "github.com/Digital-Creators-Team/round-engine/errors"
	"github.com/Digital-Creators-Team/round-engine/game"
	"github.com/Digital-Creators-Team/round-engine/ledger"
	"github.com/Digital-Creators-Team/round-engine/pkg/results"
)

// IdentityProvider answers whether a player may place large wagers.
// Consulted only for stakes at or above the configured threshold.
type IdentityProvider interface {
	Verify(ctx context.Context, playerID string) (bool, error)
}

// Service is the engine's public surface: wager placement, cash-out,
// period info, results and payout tables. Transport framing lives
// outside this module.
type Service struct {
	sched     *Scheduler
	led       ledger.Ledger
	store     archive.Store
	broadcast *results.Broadcaster
	identity  IdentityProvider
	threshold decimal.Decimal
	logger    zerolog.Logger
	now       func() time.Time
}

// ServiceDeps bundles the service collaborators
type ServiceDeps struct {
	Scheduler *Scheduler
	Ledger    ledger.Ledger
	Store     archive.Store
	Broadcast *results.Broadcaster
	// Identity is optional; nil disables the threshold check
	Identity IdentityProvider
	// IdentityThreshold: stakes at or above it consult Identity
	IdentityThreshold decimal.Decimal
	Logger            zerolog.Logger
	Now               func() time.Time
}

// NewService creates the engine facade
func NewService(deps ServiceDeps) *Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		sched:     deps.Scheduler,
		led:       deps.Ledger,
		store:     deps.Store,
		broadcast: deps.Broadcast,
		identity:  deps.Identity,
		threshold: deps.IdentityThreshold,
		now:       now,
		logger:    deps.Logger.With().Str("component", "engine_service").Logger(),
	}
}

// PlaceWager validates, funds and books one wager. The stake is reserved
// atomically before the wager reaches the book; a placement that loses
// the race against the window close is rejected and the reservation
// released, so no wager is ever partially visible to settlement.
func (s *Service) PlaceWager(ctx context.Context, playerID string, family game.Family, intervalSec int64, bet game.Bet, stake decimal.Decimal) (string, error) {
	if !family.Valid() {
		return "", apperrors.InvalidBet("unknown game family: " + string(family))
	}
	if stake.LessThanOrEqual(decimal.Zero) {
		return "", apperrors.InvalidBet("stake must be positive")
	}
	if err := bet.Validate(family); err != nil {
		return "", apperrors.InvalidBet(err.Error())
	}

	var (
		periodID int64
		accept   func(*game.Wager) error
	)
	if family.Continuous() {
		crash := s.sched.Crash()
		if crash == nil {
			return "", apperrors.New(apperrors.ErrUnknownGame, "continuous game is not enabled")
		}
		periodID = crash.RoundID()
		accept = crash.Place
	} else {
		clock, ok := s.sched.Clock(family, intervalSec)
		if !ok {
			return "", apperrors.NewWithDebug(apperrors.ErrUnknownGame, "no clock for interval",
				string(family))
		}
		periodID = clock.CurrentPeriod().PeriodID
		accept = clock.Accept
	}

	if err := s.checkIdentity(ctx, playerID, stake); err != nil {
		return "", err
	}

	// atomic check-and-debit; fail closed when the ledger cannot answer
	if err := s.led.Reserve(ctx, playerID, stake); err != nil {
		if apperrors.IsAppError(err) {
			return "", err
		}
		return "", apperrors.LedgerUnavailable(err)
	}

	w := &game.Wager{
		ID:       uuid.New().String(),
		PlayerID: playerID,
		PeriodID: periodID,
		Family:   family,
		Bet:      bet,
		Stake:    stake,
		PlacedAt: s.now(),
	}

	if err := accept(w); err != nil {
		// the window closed between the reservation and the append
		if relErr := s.led.Release(ctx, playerID, stake); relErr != nil {
			s.logger.Error().Err(relErr).
				Str("player_id", playerID).
				Str("wager_id", w.ID).
				Msg("failed to release stake of rejected wager")
		}
		return "", err
	}

	s.logger.Debug().
		Str("wager_id", w.ID).
		Str("player_id", playerID).
		Str("game", string(family)).
		Int64("period_id", periodID).
		Str("bet", bet.String()).
		Str("stake", stake.String()).
		Msg("wager accepted")

	return w.ID, nil
}

func (s *Service) checkIdentity(ctx context.Context, playerID string, stake decimal.Decimal) error {
	if s.identity == nil || s.threshold.IsZero() || stake.LessThan(s.threshold) {
		return nil
	}
	allowed, err := s.identity.Verify(ctx, playerID)
	if err != nil {
		// fail closed, same as an unavailable ledger
		return apperrors.Wrap(err, apperrors.ErrIdentityCheckFailed, "identity check unavailable")
	}
	if !allowed {
		return apperrors.NewWithDebug(apperrors.ErrIdentityCheckFailed, "identity check failed", playerID)
	}
	return nil
}

// Cashout locks the current multiplier for a flying crash wager
func (s *Service) Cashout(ctx context.Context, playerID, wagerID string) (decimal.Decimal, error) {
	crash := s.sched.Crash()
	if crash == nil {
		return decimal.Zero, apperrors.New(apperrors.ErrUnknownGame, "continuous game is not enabled")
	}
	return crash.Cashout(ctx, playerID, wagerID)
}

// CurrentPeriod returns the open betting window of an interval clock
func (s *Service) CurrentPeriod(family game.Family, intervalSec int64) (PeriodInfo, error) {
	clock, ok := s.sched.Clock(family, intervalSec)
	if !ok {
		return PeriodInfo{}, apperrors.NewWithDebug(apperrors.ErrUnknownGame, "no clock for interval", string(family))
	}
	return clock.CurrentPeriod(), nil
}

// CurrentCrashRound returns the live continuous round info
func (s *Service) CurrentCrashRound() (CrashInfo, error) {
	crash := s.sched.Crash()
	if crash == nil {
		return CrashInfo{}, apperrors.New(apperrors.ErrUnknownGame, "continuous game is not enabled")
	}
	return crash.CurrentRound(), nil
}

// Result returns the outcome of a resolved period
func (s *Service) Result(ctx context.Context, family game.Family, intervalSec int64, periodID int64) (*game.Outcome, error) {
	e, err := s.store.Get(ctx, archive.Key{Family: family, IntervalSec: intervalSec}, periodID)
	if err != nil {
		return nil, err
	}
	return e.Outcome, nil
}

// RecentResults returns up to limit resolved outcomes, most recent first
func (s *Service) RecentResults(ctx context.Context, family game.Family, intervalSec int64, limit int) ([]*game.Outcome, error) {
	entries, err := s.store.Recent(ctx, archive.Key{Family: family, IntervalSec: intervalSec}, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*game.Outcome, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Outcome)
	}
	return out, nil
}

// SubscribeResults streams outcomes of one clock as they publish.
// Delivery is best-effort; Result stays idempotently re-queryable.
func (s *Service) SubscribeResults(ctx context.Context, family game.Family, intervalSec int64) (<-chan *game.Outcome, context.CancelFunc) {
	return s.broadcast.Subscribe(ctx, family, intervalSec)
}

// Games lists the configured games
func (s *Service) Games() []string {
	return s.sched.Games()
}

// PayoutTable exposes the read-only multiplier table used by settlement
func (s *Service) PayoutTable(family game.Family) map[string]decimal.Decimal {
	return game.PayoutTable(family)
}
