package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	apperrors "github.com/Digital-Creators-Team/round-engine/errors"
	"github.com/Digital-Creators-Team/round-engine/game"
	"github.com/Digital-Creators-Team/round-engine/ledger"
)

// Settler converts a frozen wager book plus an outcome into settlement
// records and applies exactly one credit per winning wager. The wager id
// is the idempotency key: re-running a batch on the same book produces no
// additional balance change.
type Settler struct {
	mu      sync.Mutex
	led     ledger.Ledger
	settled map[string]*game.SettlementRecord
	logger  zerolog.Logger
}

// NewSettler creates a settler backed by the given ledger
func NewSettler(led ledger.Ledger, logger zerolog.Logger) *Settler {
	return &Settler{
		led:     led,
		settled: make(map[string]*game.SettlementRecord),
		logger:  logger.With().Str("component", "settler").Logger(),
	}
}

// Payouts are floored to the smallest currency unit, uniformly.
func payoutOf(stake, multiplier decimal.Decimal) decimal.Decimal {
	return stake.Mul(multiplier).Truncate(2)
}

// claim registers a wager id before any balance mutation. It returns
// false when a record already exists, making retried batches silent.
func (s *Settler) claim(wagerID string, rec *game.SettlementRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, done := s.settled[wagerID]; done {
		return false
	}
	s.settled[wagerID] = rec
	return true
}

func (s *Settler) unclaim(wagerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.settled, wagerID)
}

func (s *Settler) replace(wagerID string, rec *game.SettlementRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settled[wagerID] = rec
}

// SettleBatch settles every wager in a frozen book against a non-void
// outcome. overrides carries effective cash-out multipliers locked during
// a crash round's flight; it is nil for interval games. Wagers settle in
// any order within the batch, but the caller must not archive or publish
// the outcome until SettleBatch returns.
func (s *Settler) SettleBatch(ctx context.Context, wagers []*game.Wager, out *game.Outcome, overrides map[string]decimal.Decimal) ([]*game.SettlementRecord, error) {
	now := time.Now()
	records := make([]*game.SettlementRecord, 0, len(wagers))

	// evaluate the whole book before touching the ledger, so a bad bet or
	// outcome aborts with zero records claimed and the period voids cleanly
	fresh := make([]*game.SettlementRecord, len(wagers))
	for i, w := range wagers {
		if s.Record(w.ID) != nil {
			continue
		}

		bet := w.Bet
		if m, ok := overrides[w.ID]; ok {
			// live cash-out locked during flight replaces the auto target
			bet.Target = m
		}

		win, mult, err := game.Evaluate(bet, out)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrSettlementFailure, "settlement evaluation failed")
		}

		rec := &game.SettlementRecord{
			ID:        uuid.New().String(),
			WagerID:   w.ID,
			PlayerID:  w.PlayerID,
			PeriodID:  w.PeriodID,
			Family:    w.Family,
			Result:    game.SettleLost,
			SettledAt: now,
		}
		if win {
			rec.Result = game.SettleWon
			rec.Multiplier = mult
			rec.Payout = payoutOf(w.Stake, mult)
		}
		fresh[i] = rec
	}

	for i, w := range wagers {
		rec := fresh[i]
		if rec == nil {
			records = append(records, s.Record(w.ID))
			continue
		}

		if !s.claim(w.ID, rec) {
			// settled concurrently by a retried delivery; keep the first record
			records = append(records, s.Record(w.ID))
			continue
		}

		if rec.Result == game.SettleWon {
			if err := s.led.Credit(ctx, w.PlayerID, rec.Payout); err != nil {
				s.unclaim(w.ID)
				s.logger.Error().Err(err).
					Str("wager_id", w.ID).
					Str("player_id", w.PlayerID).
					Msg("credit failed, aborting batch")
				return records, apperrors.Wrap(err, apperrors.ErrSettlementFailure, "credit failed")
			}
		}
		records = append(records, rec)
	}

	s.logger.Debug().
		Str("family", string(out.Family)).
		Int64("period_id", out.PeriodID).
		Int("wagers", len(wagers)).
		Int("wins", len(lo.Filter(records, func(r *game.SettlementRecord, _ int) bool { return r.Result == game.SettleWon }))).
		Msg("batch settled")

	return records, nil
}

// VoidBatch refunds every wager of a void period that has not moved money:
// unclaimed wagers and wagers recorded as lost (a lost record credits
// nothing, so releasing its stake cannot double-pay). Won records keep
// their credited payout, so settlement stays exactly-once even when a
// partially settled batch is voided.
func (s *Settler) VoidBatch(ctx context.Context, wagers []*game.Wager) []*game.SettlementRecord {
	now := time.Now()
	records := make([]*game.SettlementRecord, 0, len(wagers))

	for _, w := range wagers {
		existing := s.Record(w.ID)
		if existing != nil && existing.Result != game.SettleLost {
			records = append(records, existing)
			continue
		}

		rec := &game.SettlementRecord{
			ID:        uuid.New().String(),
			WagerID:   w.ID,
			PlayerID:  w.PlayerID,
			PeriodID:  w.PeriodID,
			Family:    w.Family,
			Result:    game.SettleRefunded,
			Payout:    w.Stake,
			SettledAt: now,
		}
		if existing != nil {
			s.replace(w.ID, rec)
		} else if !s.claim(w.ID, rec) {
			records = append(records, s.Record(w.ID))
			continue
		}

		if err := s.led.Release(ctx, w.PlayerID, w.Stake); err != nil {
			// keep the record and log; a refund that cannot be applied is
			// an operational incident, not a reason to double-settle later
			s.logger.Error().Err(err).
				Str("wager_id", w.ID).
				Str("player_id", w.PlayerID).
				Msg("refund failed")
		}
		records = append(records, rec)
	}
	return records
}

// Record returns the settlement record for a wager id, or nil
func (s *Settler) Record(wagerID string) *game.SettlementRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settled[wagerID]
}

// Compact drops records settled before the cutoff. The archive retains
// the durable copy; this map only backs the idempotency check for
// recently delivered batches.
func (s *Settler) Compact(olderThan time.Duration) int {
	cutoff := time.Now().Add(-olderThan)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, rec := range s.settled {
		if rec.SettledAt.Before(cutoff) {
			delete(s.settled, id)
			removed++
		}
	}
	return removed
}
