package game

import (
	"time"

	"github.com/shopspring/decimal"
)

// ColorOf maps a drawn digit to its canonical color: 0 and 5 are violet,
// even non-zero digits are red, odd non-five digits are green. This is the
// single mapping used by payout tables, settlement and display.
func ColorOf(n int) Color {
	switch {
	case n == 0 || n == 5:
		return ColorViolet
	case n%2 == 0:
		return ColorRed
	default:
		return ColorGreen
	}
}

// SizeOf maps a drawn digit to its canonical size: 5..9 big, 0..4 small
func SizeOf(n int) Size {
	if n >= 5 {
		return SizeBig
	}
	return SizeSmall
}

// SumSizeOf maps a five-digit sum (0..45) to big/small at the midpoint
func SumSizeOf(sum int) Size {
	if sum >= 23 {
		return SizeBig
	}
	return SizeSmall
}

// ParityOf maps an integer to odd/even
func ParityOf(n int) Parity {
	if n%2 == 0 {
		return ParityEven
	}
	return ParityOdd
}

// WingoResult is the number_color_size payload: a drawn digit with its
// derived color and size
type WingoResult struct {
	Number int   `json:"number"`
	Color  Color `json:"color"`
	Size   Size  `json:"size"`
}

// DiceResult is the triple_dice_sum payload
type DiceResult struct {
	Dice [3]int `json:"dice"`
	Sum  int    `json:"sum"`
}

// FiveDigitResult is the five_digit payload with its derived markets
type FiveDigitResult struct {
	Digits [5]int `json:"digits"`
	Sum    int    `json:"sum"`
	Size   Size   `json:"size"`
	Parity Parity `json:"parity"`
}

// CrashResult is the continuous_multiplier payload. The crash point is
// sampled before the round starts and revealed only when reached.
type CrashResult struct {
	CrashPoint decimal.Decimal `json:"crashPoint"`
}

// Outcome is the generated result of one period. Exactly one of the
// family payloads is set unless the period is void.
type Outcome struct {
	PeriodID int64     `json:"periodId"`
	Family   Family    `json:"family"`
	Void     bool      `json:"void,omitempty"`
	DrawnAt  time.Time `json:"drawnAt"`

	Wingo *WingoResult     `json:"wingo,omitempty"`
	Dice  *DiceResult      `json:"dice,omitempty"`
	FiveD *FiveDigitResult `json:"fiveDigit,omitempty"`
	Crash *CrashResult     `json:"crash,omitempty"`
}

// VoidOutcome builds the distinguishable outcome of a period whose
// generation or settlement failed. Clients render it as "refunded".
func VoidOutcome(family Family, periodID int64, at time.Time) *Outcome {
	return &Outcome{
		PeriodID: periodID,
		Family:   family,
		Void:     true,
		DrawnAt:  at,
	}
}

// Wager is a single accepted stake on one bet for one period.
// Immutable once accepted; consumed exactly once by settlement.
type Wager struct {
	ID       string          `json:"id"`
	PlayerID string          `json:"playerId"`
	PeriodID int64           `json:"periodId"`
	Family   Family          `json:"family"`
	Bet      Bet             `json:"bet"`
	Stake    decimal.Decimal `json:"stake"`
	PlacedAt time.Time       `json:"placedAt"`
}

// SettleResult classifies how a wager was settled
type SettleResult string

const (
	SettleWon      SettleResult = "won"
	SettleLost     SettleResult = "lost"
	SettleRefunded SettleResult = "refunded" // void period, stake returned
)

// SettlementRecord is produced exactly once per wager. The wager id is the
// idempotency key: a wager with an existing record is never settled again.
type SettlementRecord struct {
	ID         string          `json:"id"`
	WagerID    string          `json:"wagerId"`
	PlayerID   string          `json:"playerId"`
	PeriodID   int64           `json:"periodId"`
	Family     Family          `json:"family"`
	Result     SettleResult    `json:"result"`
	Multiplier decimal.Decimal `json:"multiplier"`
	Payout     decimal.Decimal `json:"payout"`
	SettledAt  time.Time       `json:"settledAt"`
}
