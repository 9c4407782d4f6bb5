package game

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestBetValidate(t *testing.T) {
	tests := []struct {
		name    string
		family  Family
		bet     Bet
		wantErr bool
	}{
		{name: "number in range", family: FamilyNumberColorSize, bet: NumberBet(7)},
		{name: "number too large", family: FamilyNumberColorSize, bet: NumberBet(10), wantErr: true},
		{name: "number negative", family: FamilyNumberColorSize, bet: NumberBet(-1), wantErr: true},
		{name: "color red", family: FamilyNumberColorSize, bet: ColorBet(ColorRed)},
		{name: "color violet", family: FamilyNumberColorSize, bet: ColorBet(ColorViolet)},
		{name: "bad color", family: FamilyNumberColorSize, bet: ColorBet("blue"), wantErr: true},
		{name: "size big", family: FamilyNumberColorSize, bet: SizeBet(SizeBig)},
		{name: "bad size", family: FamilyNumberColorSize, bet: SizeBet("medium"), wantErr: true},
		{name: "sum on wrong family", family: FamilyNumberColorSize, bet: SumBet(10), wantErr: true},

		{name: "sum min", family: FamilyTripleDiceSum, bet: SumBet(3)},
		{name: "sum max", family: FamilyTripleDiceSum, bet: SumBet(18)},
		{name: "sum too low", family: FamilyTripleDiceSum, bet: SumBet(2), wantErr: true},
		{name: "sum too high", family: FamilyTripleDiceSum, bet: SumBet(19), wantErr: true},
		{name: "number on dice family", family: FamilyTripleDiceSum, bet: NumberBet(5), wantErr: true},

		{name: "digit at position", family: FamilyFiveDigit, bet: DigitBet(4, 9)},
		{name: "digit bad position", family: FamilyFiveDigit, bet: DigitBet(5, 0), wantErr: true},
		{name: "digit out of range", family: FamilyFiveDigit, bet: DigitBet(0, 10), wantErr: true},
		{name: "sum size", family: FamilyFiveDigit, bet: SizeBet(SizeSmall)},
		{name: "parity odd", family: FamilyFiveDigit, bet: ParityBet(ParityOdd)},
		{name: "bad parity", family: FamilyFiveDigit, bet: ParityBet("none"), wantErr: true},
		{name: "color on five digit", family: FamilyFiveDigit, bet: ColorBet(ColorRed), wantErr: true},

		{name: "cashout target above one", family: FamilyContinuousMultiplier, bet: CashoutBet(decimal.RequireFromString("1.01"))},
		{name: "cashout target at one", family: FamilyContinuousMultiplier, bet: CashoutBet(decimal.NewFromInt(1)), wantErr: true},
		{name: "cashout target zero", family: FamilyContinuousMultiplier, bet: CashoutBet(decimal.Zero), wantErr: true},
		{name: "size on continuous", family: FamilyContinuousMultiplier, bet: SizeBet(SizeBig), wantErr: true},

		{name: "unknown family", family: "baccarat", bet: NumberBet(1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.bet.Validate(tt.family)
			if tt.wantErr && err == nil {
				t.Errorf("expected error for %s on %s but got none", tt.bet, tt.family)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error for %s on %s: %v", tt.bet, tt.family, err)
			}
		})
	}
}
