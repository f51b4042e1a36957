package calculator

import (
	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimal places every amount is rounded to.
const MoneyPlaces = 2

var (
	hundred = decimal.NewFromInt(100)

	// PercentageTolerance absorbs float noise in client-supplied percentages when
	// checking that the shares of a bill do not exceed 100%.
	PercentageTolerance = decimal.New(1, -4)
)

// RoundMoney rounds half away from zero to two decimal places.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// EvenShare is total/n rounded once to two decimals.
func EvenShare(total decimal.Decimal, n int) decimal.Decimal {
	return total.DivRound(decimal.NewFromInt(int64(n)), MoneyPlaces)
}

// PercentageShare is total*pct/100 rounded once to two decimals.
func PercentageShare(total, pct decimal.Decimal) decimal.Decimal {
	return total.Mul(pct).DivRound(hundred, MoneyPlaces)
}

// EvenAllocation splits total into n amounts that sum exactly to total. The first
// n-1 receive EvenShare (never more than what is left) and the last one receives
// the remainder.
func EvenAllocation(total decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	base := EvenShare(total, n)
	out := make([]decimal.Decimal, n)
	remaining := total
	for i := 0; i < n-1; i++ {
		out[i] = Clamp(base, remaining)
		remaining = remaining.Sub(out[i])
	}
	out[n-1] = remaining
	return out
}

// Clamp limits amount to the outstanding balance and never returns a negative value.
func Clamp(amount, outstanding decimal.Decimal) decimal.Decimal {
	if outstanding.IsNegative() {
		return decimal.Zero
	}
	if amount.GreaterThan(outstanding) {
		return outstanding
	}
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}

// Sum adds up amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
