package game

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Fixed payout multipliers. These are the only tables in the system:
// settlement evaluates against them and PayoutTable exposes the exact
// same values for client display.
var (
	multNumber      = decimal.NewFromInt(9)
	multColor       = decimal.NewFromInt(2)
	multColorViolet = decimal.RequireFromString("4.5")
	multSize        = decimal.NewFromInt(2)
	multDigit       = decimal.NewFromInt(9)
	multParity      = decimal.NewFromInt(2)
)

// diceSumMultipliers is keyed by exact sum, symmetric around 10.5
// (rarer sums pay more)
var diceSumMultipliers = map[int]decimal.Decimal{
	3:  decimal.RequireFromString("207.36"),
	4:  decimal.RequireFromString("69.12"),
	5:  decimal.RequireFromString("34.56"),
	6:  decimal.RequireFromString("20.74"),
	7:  decimal.RequireFromString("12.96"),
	8:  decimal.RequireFromString("8.64"),
	9:  decimal.RequireFromString("6.91"),
	10: decimal.RequireFromString("5.76"),
	11: decimal.RequireFromString("5.76"),
	12: decimal.RequireFromString("6.91"),
	13: decimal.RequireFromString("8.64"),
	14: decimal.RequireFromString("12.96"),
	15: decimal.RequireFromString("20.74"),
	16: decimal.RequireFromString("34.56"),
	17: decimal.RequireFromString("69.12"),
	18: decimal.RequireFromString("207.36"),
}

// DiceSumMultiplier returns the table multiplier for an exact sum bet
func DiceSumMultiplier(sum int) (decimal.Decimal, bool) {
	m, ok := diceSumMultipliers[sum]
	return m, ok
}

// ColorMultiplier returns the payout multiplier for a color bet
func ColorMultiplier(c Color) decimal.Decimal {
	if c == ColorViolet {
		return multColorViolet
	}
	return multColor
}

// Evaluate matches one bet against a non-void outcome and returns whether
// it won plus the table multiplier. For the continuous game the bet's
// target is the effective cash-out: it wins iff the round reached it.
// A void outcome never reaches Evaluate; the settler refunds instead.
func Evaluate(bet Bet, out *Outcome) (bool, decimal.Decimal, error) {
	if out == nil || out.Void {
		return false, decimal.Zero, fmt.Errorf("cannot evaluate against a void outcome")
	}
	if err := bet.Validate(out.Family); err != nil {
		return false, decimal.Zero, err
	}

	switch out.Family {
	case FamilyNumberColorSize:
		r := out.Wingo
		if r == nil {
			return false, decimal.Zero, fmt.Errorf("outcome for period %d has no wingo payload", out.PeriodID)
		}
		switch bet.Kind {
		case BetNumber:
			return bet.Number == r.Number, multNumber, nil
		case BetColor:
			return bet.Color == r.Color, ColorMultiplier(bet.Color), nil
		case BetSize:
			return bet.Size == r.Size, multSize, nil
		}

	case FamilyTripleDiceSum:
		r := out.Dice
		if r == nil {
			return false, decimal.Zero, fmt.Errorf("outcome for period %d has no dice payload", out.PeriodID)
		}
		m, ok := DiceSumMultiplier(bet.Sum)
		if !ok {
			return false, decimal.Zero, fmt.Errorf("no table multiplier for sum %d", bet.Sum)
		}
		return bet.Sum == r.Sum, m, nil

	case FamilyFiveDigit:
		r := out.FiveD
		if r == nil {
			return false, decimal.Zero, fmt.Errorf("outcome for period %d has no five-digit payload", out.PeriodID)
		}
		switch bet.Kind {
		case BetDigit:
			return r.Digits[bet.Pos] == bet.Digit, multDigit, nil
		case BetSize:
			return bet.Size == r.Size, multSize, nil
		case BetParity:
			return bet.Parity == r.Parity, multParity, nil
		}

	case FamilyContinuousMultiplier:
		r := out.Crash
		if r == nil {
			return false, decimal.Zero, fmt.Errorf("outcome for period %d has no crash payload", out.PeriodID)
		}
		if bet.Target.LessThanOrEqual(r.CrashPoint) {
			return true, bet.Target, nil
		}
		return false, decimal.Zero, nil
	}

	return false, decimal.Zero, fmt.Errorf("bet kind %q cannot be evaluated for family %q", bet.Kind, out.Family)
}

// PayoutTable returns the read-only multiplier table for a family, keyed
// by bet description, for client display
func PayoutTable(family Family) map[string]decimal.Decimal {
	switch family {
	case FamilyNumberColorSize:
		return map[string]decimal.Decimal{
			"number":       multNumber,
			"color:red":    multColor,
			"color:green":  multColor,
			"color:violet": multColorViolet,
			"size":         multSize,
		}
	case FamilyTripleDiceSum:
		return lo.MapEntries(diceSumMultipliers, func(sum int, m decimal.Decimal) (string, decimal.Decimal) {
			return fmt.Sprintf("sum:%d", sum), m
		})
	case FamilyFiveDigit:
		return map[string]decimal.Decimal{
			"digit":  multDigit,
			"size":   multSize,
			"parity": multParity,
		}
	case FamilyContinuousMultiplier:
		// the multiplier is the cash-out target itself; no fixed table
		return map[string]decimal.Decimal{}
	}
	return nil
}
