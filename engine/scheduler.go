package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/Digital-Creators-Team/round-engine/archive"
	"github.com/Digital-Creators-Team/round-engine/config"
	"github.com/Digital-Creators-Team/round-engine/game"
	"github.com/Digital-Creators-Team/round-engine/pkg/results"
)

const (
	compactInterval  = time.Hour
	compactRetention = 24 * time.Hour
)

type clockKey struct {
	family      game.Family
	intervalSec int64
}

// Scheduler owns the set of live period clocks plus the continuous crash
// loop. Each clock runs on its own goroutine; none of them block each
// other, and a failure inside one is contained there.
type Scheduler struct {
	logger  zerolog.Logger
	settler *Settler
	clocks  map[clockKey]*PeriodClock
	crash   *CrashGame

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// SchedulerDeps bundles the shared collaborators
type SchedulerDeps struct {
	Settler   *Settler
	Store     archive.Store
	Broadcast *results.Broadcaster
	Publisher OutcomePublisher
	Logger    zerolog.Logger
	// Seed fixes every generator for deterministic tests; 0 seeds from time
	Seed int64
	// Now overrides the wall clock in tests
	Now func() time.Time
}

// NewScheduler builds one clock per configured (family, interval) pair
// plus the crash loop when enabled
func NewScheduler(cfg *config.Config, deps SchedulerDeps) *Scheduler {
	s := &Scheduler{
		logger:  deps.Logger.With().Str("component", "scheduler").Logger(),
		settler: deps.Settler,
		clocks:  make(map[clockKey]*PeriodClock),
	}

	seed := deps.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	nextSeed := func() int64 {
		seed++
		return seed
	}

	clockDeps := func() ClockDeps {
		return ClockDeps{
			// each clock owns its generator; Generator is not safe for
			// concurrent use
			Generator: game.NewGenerator(rand.NewSource(nextSeed())),
			Settler:   deps.Settler,
			Store:     deps.Store,
			Broadcast: deps.Broadcast,
			Publisher: deps.Publisher,
			Logger:    deps.Logger,
			Now:       deps.Now,
			LockAhead: cfg.Engine.LockAhead,
		}
	}

	add := func(family game.Family, seconds []int64) {
		for _, sec := range seconds {
			interval := time.Duration(sec) * time.Second
			key := clockKey{family: family, intervalSec: sec}
			s.clocks[key] = NewPeriodClock(family, interval, clockDeps())
		}
	}
	add(game.FamilyNumberColorSize, cfg.Clocks.NumberColorSize)
	add(game.FamilyTripleDiceSum, cfg.Clocks.TripleDiceSum)
	add(game.FamilyFiveDigit, cfg.Clocks.FiveDigit)

	if cfg.Crash.Enabled {
		s.crash = NewCrashGame(cfg.Crash, clockDeps())
	}

	return s
}

// Start launches every clock and the crash loop. Idempotent per process;
// a second call is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, clock := range s.clocks {
		clock := clock
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			clock.Run(runCtx)
		}()
	}
	if s.crash != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.crash.Run(runCtx)
		}()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.compactLoop(runCtx)
	}()

	s.logger.Info().
		Int("clocks", len(s.clocks)).
		Bool("crash", s.crash != nil).
		Msg("scheduler started")
}

// Stop cancels every loop and waits for in-flight resolutions. Open
// periods are voided so no stake stays reserved.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.logger.Info().Msg("scheduler stopped")
}

// compactLoop prunes the settler's idempotency map; the archive keeps
// the durable records
func (s *Scheduler) compactLoop(ctx context.Context) {
	ticker := time.NewTicker(compactInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := s.settler.Compact(compactRetention)
			if removed > 0 {
				s.logger.Debug().Int("removed", removed).Msg("compacted settlement records")
			}
		}
	}
}

// Clock returns the period clock for a (family, interval) pair
func (s *Scheduler) Clock(family game.Family, intervalSec int64) (*PeriodClock, bool) {
	c, ok := s.clocks[clockKey{family: family, intervalSec: intervalSec}]
	return c, ok
}

// Crash returns the continuous round loop, or nil when disabled
func (s *Scheduler) Crash() *CrashGame {
	return s.crash
}

// Games lists the configured games, one entry per clock plus the
// continuous loop when enabled
func (s *Scheduler) Games() []string {
	games := lo.MapToSlice(s.clocks, func(k clockKey, _ *PeriodClock) string {
		return fmt.Sprintf("%s@%ds", k.family, k.intervalSec)
	})
	sort.Strings(games)
	if s.crash != nil {
		games = append(games, string(game.FamilyContinuousMultiplier))
	}
	return games
}
