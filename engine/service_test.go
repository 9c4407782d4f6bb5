package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Digital-Creators-Team/round-engine/archive"
	"github.com/Digital-Creators-Team/round-engine/config"
	apperrors "github.com/Digital-Creators-Team/round-engine/errors"
	"github.com/Digital-Creators-Team/round-engine/game"
	"github.com/Digital-Creators-Team/round-engine/ledger"
	"github.com/Digital-Creators-Team/round-engine/pkg/results"
)

type stubIdentity struct {
	allowed bool
	err     error
	calls   int
}

func (s *stubIdentity) Verify(ctx context.Context, playerID string) (bool, error) {
	s.calls++
	return s.allowed, s.err
}

type serviceFixture struct {
	svc   *Service
	led   *ledger.Memory
	store *archive.Memory
	fc    *fakeClock
	ident *stubIdentity
}

func newServiceFixture(t *testing.T, cfg *config.Config) *serviceFixture {
	t.Helper()
	led := ledger.NewMemory()
	if err := led.CreateAccount("alice", decimal.NewFromInt(1000)); err != nil {
		t.Fatal(err)
	}

	fc := newFakeClock(1000)
	store := archive.NewMemory(10)
	broadcast := results.NewBroadcaster()
	settler := NewSettler(led, zerolog.Nop())
	sched := NewScheduler(cfg, SchedulerDeps{
		Settler:   settler,
		Store:     store,
		Broadcast: broadcast,
		Logger:    zerolog.Nop(),
		Seed:      42,
		Now:       fc.Now,
	})
	ident := &stubIdentity{allowed: true}
	svc := NewService(ServiceDeps{
		Scheduler:         sched,
		Ledger:            led,
		Store:             store,
		Broadcast:         broadcast,
		Identity:          ident,
		IdentityThreshold: decimal.NewFromInt(500),
		Logger:            zerolog.Nop(),
		Now:               fc.Now,
	})
	return &serviceFixture{svc: svc, led: led, store: store, fc: fc, ident: ident}
}

func TestGames(t *testing.T) {
	cfg := &config.Config{
		Clocks: config.ClocksConfig{
			NumberColorSize: []int64{30, 60},
			TripleDiceSum:   []int64{60},
		},
		Crash: config.CrashConfig{Enabled: true},
	}
	fx := newServiceFixture(t, cfg)

	want := []string{
		"number_color_size@30s",
		"number_color_size@60s",
		"triple_dice_sum@60s",
		"continuous_multiplier",
	}
	got := fx.svc.Games()
	if len(got) != len(want) {
		t.Fatalf("games = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("games[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPlaceWager(t *testing.T) {
	cfg := &config.Config{
		Clocks: config.ClocksConfig{NumberColorSize: []int64{60}},
	}
	fx := newServiceFixture(t, cfg)
	ctx := context.Background()

	id, err := fx.svc.PlaceWager(ctx, "alice", game.FamilyNumberColorSize, 60, game.NumberBet(3), decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == "" {
		t.Fatal("expected a wager id")
	}

	b, _, err := fx.led.Balance(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if !b.Equal(decimal.NewFromInt(990)) {
		t.Errorf("balance = %s after placement, want 990", b)
	}
}

func TestPlaceWagerValidation(t *testing.T) {
	cfg := &config.Config{
		Clocks: config.ClocksConfig{NumberColorSize: []int64{60}},
	}
	fx := newServiceFixture(t, cfg)
	ctx := context.Background()

	tests := []struct {
		name     string
		family   game.Family
		interval int64
		bet      game.Bet
		stake    decimal.Decimal
		wantCode int
	}{
		{name: "unknown family", family: "keno", interval: 60, bet: game.NumberBet(1), stake: decimal.NewFromInt(10), wantCode: apperrors.ErrInvalidBet},
		{name: "zero stake", family: game.FamilyNumberColorSize, interval: 60, bet: game.NumberBet(1), stake: decimal.Zero, wantCode: apperrors.ErrInvalidBet},
		{name: "negative stake", family: game.FamilyNumberColorSize, interval: 60, bet: game.NumberBet(1), stake: decimal.NewFromInt(-1), wantCode: apperrors.ErrInvalidBet},
		{name: "bet outside union", family: game.FamilyNumberColorSize, interval: 60, bet: game.SumBet(10), stake: decimal.NewFromInt(10), wantCode: apperrors.ErrInvalidBet},
		{name: "no such interval", family: game.FamilyNumberColorSize, interval: 999, bet: game.NumberBet(1), stake: decimal.NewFromInt(10), wantCode: apperrors.ErrUnknownGame},
		{name: "crash disabled", family: game.FamilyContinuousMultiplier, interval: 0, bet: game.CashoutBet(decimal.NewFromInt(2)), stake: decimal.NewFromInt(10), wantCode: apperrors.ErrUnknownGame},
		{name: "insufficient funds", family: game.FamilyNumberColorSize, interval: 60, bet: game.NumberBet(1), stake: decimal.NewFromInt(2000), wantCode: apperrors.ErrInsufficientFunds},
		{name: "unknown player", family: game.FamilyNumberColorSize, interval: 60, bet: game.NumberBet(1), stake: decimal.NewFromInt(10), wantCode: apperrors.ErrUnknownPlayer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			player := "alice"
			if tt.wantCode == apperrors.ErrUnknownPlayer {
				player = "ghost"
			}
			_, err := fx.svc.PlaceWager(ctx, player, tt.family, tt.interval, tt.bet, tt.stake)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !apperrors.HasCode(err, tt.wantCode) {
				t.Errorf("error code = %d, want %d (%v)", apperrors.GetCode(err), tt.wantCode, err)
			}
		})
	}

	// none of the rejections may leak a reservation
	b, _, err := fx.led.Balance(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if !b.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("balance = %s after rejected placements, want 1000", b)
	}
}

func TestPlaceWagerReleasesOnClosedWindow(t *testing.T) {
	// a lock-ahead spanning the whole interval closes every window
	cfg := &config.Config{
		Clocks: config.ClocksConfig{NumberColorSize: []int64{60}},
		Engine: config.EngineConfig{LockAhead: 60 * time.Second},
	}
	fx := newServiceFixture(t, cfg)
	ctx := context.Background()

	_, err := fx.svc.PlaceWager(ctx, "alice", game.FamilyNumberColorSize, 60, game.NumberBet(3), decimal.NewFromInt(10))
	if !apperrors.HasCode(err, apperrors.ErrPeriodClosed) {
		t.Fatalf("expected period closed, got %v", err)
	}

	b, _, err := fx.led.Balance(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if !b.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("balance = %s, want the reservation released", b)
	}
}

func TestPlaceWagerIdentityCheck(t *testing.T) {
	cfg := &config.Config{
		Clocks: config.ClocksConfig{NumberColorSize: []int64{60}},
	}
	fx := newServiceFixture(t, cfg)
	ctx := context.Background()

	// below the threshold the provider is never consulted
	if _, err := fx.svc.PlaceWager(ctx, "alice", game.FamilyNumberColorSize, 60, game.NumberBet(3), decimal.NewFromInt(10)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fx.ident.calls != 0 {
		t.Errorf("identity consulted %d times below the threshold", fx.ident.calls)
	}

	// at the threshold it is, and a denial rejects the wager
	fx.ident.allowed = false
	_, err := fx.svc.PlaceWager(ctx, "alice", game.FamilyNumberColorSize, 60, game.NumberBet(3), decimal.NewFromInt(500))
	if !apperrors.HasCode(err, apperrors.ErrIdentityCheckFailed) {
		t.Fatalf("expected identity check failure, got %v", err)
	}
	if fx.ident.calls != 1 {
		t.Errorf("identity consulted %d times at the threshold, want 1", fx.ident.calls)
	}

	// an unavailable provider fails closed
	fx.ident.allowed = true
	fx.ident.err = errors.New("identity service down")
	_, err = fx.svc.PlaceWager(ctx, "alice", game.FamilyNumberColorSize, 60, game.NumberBet(3), decimal.NewFromInt(500))
	if !apperrors.HasCode(err, apperrors.ErrIdentityCheckFailed) {
		t.Fatalf("expected fail-closed identity error, got %v", err)
	}

	// no reservation leaked from the rejections
	b, _, err := fx.led.Balance(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if !b.Equal(decimal.NewFromInt(990)) {
		t.Errorf("balance = %s, want 990", b)
	}
}

func TestCurrentPeriod(t *testing.T) {
	cfg := &config.Config{
		Clocks: config.ClocksConfig{NumberColorSize: []int64{60}},
	}
	fx := newServiceFixture(t, cfg)

	info, err := fx.svc.CurrentPeriod(game.FamilyNumberColorSize, 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.PeriodID != 16 {
		t.Errorf("period id = %d at t=1000, want 16", info.PeriodID)
	}
	if info.State != StateOpen {
		t.Errorf("state = %s, want open", info.State)
	}

	if _, err := fx.svc.CurrentPeriod(game.FamilyTripleDiceSum, 60); err == nil {
		t.Error("expected error for an unconfigured clock")
	}
}

func TestResultsReadModel(t *testing.T) {
	cfg := &config.Config{
		Clocks: config.ClocksConfig{NumberColorSize: []int64{60}},
	}
	fx := newServiceFixture(t, cfg)
	ctx := context.Background()

	out := &game.Outcome{
		PeriodID: 15,
		Family:   game.FamilyNumberColorSize,
		DrawnAt:  fx.fc.Now(),
		Wingo:    &game.WingoResult{Number: 4, Color: game.ColorRed, Size: game.SizeSmall},
	}
	entry := &archive.Entry{
		Family:      game.FamilyNumberColorSize,
		IntervalSec: 60,
		Outcome:     out,
		ArchivedAt:  fx.fc.Now(),
	}
	if err := fx.store.Append(ctx, entry); err != nil {
		t.Fatal(err)
	}

	got, err := fx.svc.Result(ctx, game.FamilyNumberColorSize, 60, 15)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.PeriodID != 15 || got.Wingo == nil || got.Wingo.Number != 4 {
		t.Errorf("unexpected outcome: %+v", got)
	}

	if _, err := fx.svc.Result(ctx, game.FamilyNumberColorSize, 60, 999); !apperrors.HasCode(err, apperrors.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}

	recent, err := fx.svc.RecentResults(ctx, game.FamilyNumberColorSize, 60, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recent) != 1 || recent[0].PeriodID != 15 {
		t.Errorf("unexpected recent results: %+v", recent)
	}
}

func TestCashoutWithoutCrashGame(t *testing.T) {
	cfg := &config.Config{
		Clocks: config.ClocksConfig{NumberColorSize: []int64{60}},
	}
	fx := newServiceFixture(t, cfg)

	if _, err := fx.svc.Cashout(context.Background(), "alice", "w1"); !apperrors.HasCode(err, apperrors.ErrUnknownGame) {
		t.Errorf("expected unknown game, got %v", err)
	}
	if _, err := fx.svc.CurrentCrashRound(); !apperrors.HasCode(err, apperrors.ErrUnknownGame) {
		t.Errorf("expected unknown game, got %v", err)
	}
}

func TestServicePayoutTable(t *testing.T) {
	cfg := &config.Config{
		Clocks: config.ClocksConfig{NumberColorSize: []int64{60}},
	}
	fx := newServiceFixture(t, cfg)

	table := fx.svc.PayoutTable(game.FamilyNumberColorSize)
	if !table["color:violet"].Equal(decimal.RequireFromString("4.5")) {
		t.Errorf("violet pays %s, want 4.5", table["color:violet"])
	}
}
