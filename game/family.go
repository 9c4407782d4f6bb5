package game

import (
	"fmt"
	"time"
)

// Family identifies a game family. It selects the outcome generator and
// the payout table used by settlement.
type Family string

const (
	FamilyNumberColorSize      Family = "number_color_size"
	FamilyTripleDiceSum        Family = "triple_dice_sum"
	FamilyFiveDigit            Family = "five_digit"
	FamilyContinuousMultiplier Family = "continuous_multiplier"
)

// Families lists every supported game family
var Families = []Family{
	FamilyNumberColorSize,
	FamilyTripleDiceSum,
	FamilyFiveDigit,
	FamilyContinuousMultiplier,
}

// Valid reports whether f is a known game family
func (f Family) Valid() bool {
	switch f {
	case FamilyNumberColorSize, FamilyTripleDiceSum, FamilyFiveDigit, FamilyContinuousMultiplier:
		return true
	}
	return false
}

// Continuous reports whether f runs variable-duration rounds instead of
// fixed wall-clock intervals
func (f Family) Continuous() bool {
	return f == FamilyContinuousMultiplier
}

// ParseFamily converts a string to a Family
func ParseFamily(s string) (Family, error) {
	f := Family(s)
	if !f.Valid() {
		return "", fmt.Errorf("unknown game family: %q", s)
	}
	return f, nil
}

// PeriodID computes the canonical period id for a wall-clock instant and a
// betting interval: floor(epochSeconds / intervalSeconds). Every component
// in the engine derives period ids through this single function, so a
// restarted process rejoins the in-flight period instead of starting over.
func PeriodID(t time.Time, interval time.Duration) int64 {
	sec := int64(interval / time.Second)
	if sec <= 0 {
		return 0
	}
	return t.Unix() / sec
}

// PeriodBounds returns the open and close instants of a period
func PeriodBounds(periodID int64, interval time.Duration) (opensAt, closesAt time.Time) {
	sec := int64(interval / time.Second)
	opensAt = time.Unix(periodID*sec, 0)
	closesAt = time.Unix((periodID+1)*sec, 0)
	return opensAt, closesAt
}
