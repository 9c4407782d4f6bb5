package game

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// BetKind discriminates the closed bet union. Which kinds are legal
// depends on the game family; Bet.Validate enforces the pairing.
type BetKind string

const (
	BetNumber  BetKind = "number"  // exact digit 0..9 (number_color_size)
	BetColor   BetKind = "color"   // red/green/violet (number_color_size)
	BetSize    BetKind = "size"    // big/small (number_color_size, five_digit sum)
	BetSum     BetKind = "sum"     // exact dice sum 3..18 (triple_dice_sum)
	BetDigit   BetKind = "digit"   // digit at position (five_digit)
	BetParity  BetKind = "parity"  // odd/even digit sum (five_digit)
	BetCashout BetKind = "cashout" // auto cash-out target (continuous_multiplier)
)

// Color is the derived color of a drawn digit
type Color string

const (
	ColorRed    Color = "red"
	ColorGreen  Color = "green"
	ColorViolet Color = "violet"
)

// Size is the derived big/small bucket of a drawn digit or digit sum
type Size string

const (
	SizeBig   Size = "big"
	SizeSmall Size = "small"
)

// Parity is the derived odd/even bucket of a digit sum
type Parity string

const (
	ParityOdd  Parity = "odd"
	ParityEven Parity = "even"
)

// Bet is one leg of the closed, family-specific union. Only the fields
// relevant to Kind are meaningful; the zero values of the rest are ignored.
type Bet struct {
	Kind   BetKind         `json:"kind"`
	Number int             `json:"number,omitempty"`   // BetNumber
	Color  Color           `json:"color,omitempty"`    // BetColor
	Size   Size            `json:"size,omitempty"`     // BetSize
	Sum    int             `json:"sum,omitempty"`      // BetSum
	Pos    int             `json:"pos,omitempty"`      // BetDigit: position 0..4
	Digit  int             `json:"digit,omitempty"`    // BetDigit: digit 0..9
	Parity Parity          `json:"parity,omitempty"`   // BetParity
	Target decimal.Decimal `json:"target,omitempty"`   // BetCashout: multiplier > 1
}

// NumberBet bets on an exact drawn digit
func NumberBet(n int) Bet { return Bet{Kind: BetNumber, Number: n} }

// ColorBet bets on the derived color
func ColorBet(c Color) Bet { return Bet{Kind: BetColor, Color: c} }

// SizeBet bets on the derived big/small bucket
func SizeBet(s Size) Bet { return Bet{Kind: BetSize, Size: s} }

// SumBet bets on the exact three-dice sum
func SumBet(sum int) Bet { return Bet{Kind: BetSum, Sum: sum} }

// DigitBet bets on an exact digit at a position of the five-digit draw
func DigitBet(pos, digit int) Bet { return Bet{Kind: BetDigit, Pos: pos, Digit: digit} }

// ParityBet bets on the parity of the five-digit sum
func ParityBet(p Parity) Bet { return Bet{Kind: BetParity, Parity: p} }

// CashoutBet bets with an auto cash-out target on the continuous game
func CashoutBet(target decimal.Decimal) Bet { return Bet{Kind: BetCashout, Target: target} }

var familyKinds = map[Family][]BetKind{
	FamilyNumberColorSize:      {BetNumber, BetColor, BetSize},
	FamilyTripleDiceSum:        {BetSum},
	FamilyFiveDigit:            {BetDigit, BetSize, BetParity},
	FamilyContinuousMultiplier: {BetCashout},
}

// Validate checks that the bet is inside the family's closed union.
// It does not check stake; WagerBook.Accept owns that.
func (b Bet) Validate(family Family) error {
	if !family.Valid() {
		return fmt.Errorf("unknown game family: %q", family)
	}
	allowed := false
	for _, k := range familyKinds[family] {
		if k == b.Kind {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("bet kind %q is not offered by family %q", b.Kind, family)
	}

	switch b.Kind {
	case BetNumber:
		if b.Number < 0 || b.Number > 9 {
			return fmt.Errorf("number must be 0..9, got %d", b.Number)
		}
	case BetColor:
		if b.Color != ColorRed && b.Color != ColorGreen && b.Color != ColorViolet {
			return fmt.Errorf("unknown color: %q", b.Color)
		}
	case BetSize:
		if b.Size != SizeBig && b.Size != SizeSmall {
			return fmt.Errorf("unknown size: %q", b.Size)
		}
	case BetSum:
		if b.Sum < 3 || b.Sum > 18 {
			return fmt.Errorf("dice sum must be 3..18, got %d", b.Sum)
		}
	case BetDigit:
		if b.Pos < 0 || b.Pos > 4 {
			return fmt.Errorf("digit position must be 0..4, got %d", b.Pos)
		}
		if b.Digit < 0 || b.Digit > 9 {
			return fmt.Errorf("digit must be 0..9, got %d", b.Digit)
		}
	case BetParity:
		if b.Parity != ParityOdd && b.Parity != ParityEven {
			return fmt.Errorf("unknown parity: %q", b.Parity)
		}
	case BetCashout:
		if b.Target.LessThanOrEqual(decimal.NewFromInt(1)) {
			return fmt.Errorf("cash-out target must be greater than 1.0, got %s", b.Target)
		}
	default:
		return fmt.Errorf("unknown bet kind: %q", b.Kind)
	}
	return nil
}

// String returns a short human-readable description of the bet
func (b Bet) String() string {
	switch b.Kind {
	case BetNumber:
		return fmt.Sprintf("number=%d", b.Number)
	case BetColor:
		return fmt.Sprintf("color=%s", b.Color)
	case BetSize:
		return fmt.Sprintf("size=%s", b.Size)
	case BetSum:
		return fmt.Sprintf("sum=%d", b.Sum)
	case BetDigit:
		return fmt.Sprintf("digit[%d]=%d", b.Pos, b.Digit)
	case BetParity:
		return fmt.Sprintf("parity=%s", b.Parity)
	case BetCashout:
		return fmt.Sprintf("cashout@%s", b.Target)
	}
	return string(b.Kind)
}
