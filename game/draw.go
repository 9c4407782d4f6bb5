package game

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

// Generator draws family-specific outcomes from an injected random
// source. It is not safe for concurrent use; each period clock owns one.
// Deterministic seeds reproduce exact outcomes in tests.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a generator from a random source
func NewGenerator(src rand.Source) *Generator {
	return &Generator{rng: rand.New(src)}
}

// NewSeededGenerator creates a generator with a fixed seed
func NewSeededGenerator(seed int64) *Generator {
	return NewGenerator(rand.NewSource(seed))
}

// Draw produces the outcome of one closed period
func (g *Generator) Draw(family Family, periodID int64, at time.Time) (*Outcome, error) {
	out := &Outcome{
		PeriodID: periodID,
		Family:   family,
		DrawnAt:  at,
	}
	switch family {
	case FamilyNumberColorSize:
		out.Wingo = g.drawWingo()
	case FamilyTripleDiceSum:
		out.Dice = g.drawDice()
	case FamilyFiveDigit:
		out.FiveD = g.drawFiveDigit()
	case FamilyContinuousMultiplier:
		out.Crash = &CrashResult{CrashPoint: g.CrashPoint()}
	default:
		return nil, fmt.Errorf("no generator for family %q", family)
	}
	return out, nil
}

func (g *Generator) drawWingo() *WingoResult {
	n := g.rng.Intn(10)
	return &WingoResult{
		Number: n,
		Color:  ColorOf(n),
		Size:   SizeOf(n),
	}
}

func (g *Generator) drawDice() *DiceResult {
	var r DiceResult
	for i := 0; i < 3; i++ {
		r.Dice[i] = 1 + g.rng.Intn(6)
		r.Sum += r.Dice[i]
	}
	return &r
}

func (g *Generator) drawFiveDigit() *FiveDigitResult {
	var r FiveDigitResult
	for i := 0; i < 5; i++ {
		r.Digits[i] = g.rng.Intn(10)
		r.Sum += r.Digits[i]
	}
	r.Size = SumSizeOf(r.Sum)
	r.Parity = ParityOf(r.Sum)
	return &r
}

// crashTier is one band of the crash-point distribution. The tiering fixes
// the effective house edge of the continuous game.
type crashTier struct {
	prob     float64
	min, max float64
}

var crashTiers = []crashTier{
	{prob: 0.33, min: 1.0, max: 2.0},
	{prob: 0.33, min: 2.0, max: 5.0},
	{prob: 0.24, min: 5.0, max: 20.0},
	{prob: 0.09, min: 20.0, max: 100.0},
	{prob: 0.01, min: 100.0, max: 1000.0},
}

// CrashPoint samples the multiplier at which the next continuous round
// will end, truncated to 2 decimal places
func (g *Generator) CrashPoint() decimal.Decimal {
	roll := g.rng.Float64()
	tier := crashTiers[len(crashTiers)-1]
	acc := 0.0
	for _, t := range crashTiers {
		acc += t.prob
		if roll < acc {
			tier = t
			break
		}
	}
	point := tier.min + g.rng.Float64()*(tier.max-tier.min)
	return decimal.NewFromFloat(point).Truncate(2)
}
