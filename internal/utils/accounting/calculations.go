package accounting

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// ErrNoWeight is returned when there is nothing to prorate against.
var ErrNoWeight = errors.New("sum of weights is zero")

// Allocate splits total across weights, rounding each share to places
// decimals (half away from zero). The rounding residue is handed out one unit
// at a time to the shares with the largest rounding loss, so every share stays
// within one unit of its exact value and the shares sum to total exactly.
// Zero weights always receive zero.
func Allocate(total decimal.Decimal, weights []decimal.Decimal, places int32) ([]decimal.Decimal, error) {
	sum := decimal.Zero
	for i, w := range weights {
		if w.IsNegative() {
			return nil, fmt.Errorf("weight %d is negative: %s", i, w)
		}
		sum = sum.Add(w)
	}
	if sum.IsZero() {
		return nil, ErrNoWeight
	}
	if total.IsNegative() {
		shares, err := Allocate(total.Neg(), weights, places)
		if err != nil {
			return nil, err
		}
		for i := range shares {
			shares[i] = shares[i].Neg()
		}
		return shares, nil
	}

	target := total.Round(places)
	unit := decimal.New(1, -places)
	shares := make([]decimal.Decimal, len(weights))
	losses := make([]decimal.Decimal, len(weights))
	allocated := decimal.Zero
	for i, w := range weights {
		if w.IsZero() {
			shares[i] = decimal.Zero
			continue
		}
		exact := target.Mul(w).Div(sum)
		shares[i] = exact.Round(places)
		losses[i] = exact.Sub(shares[i])
		allocated = allocated.Add(shares[i])
	}

	residue := target.Sub(allocated).Div(unit).IntPart()
	if residue == 0 {
		return shares, nil
	}

	candidates := make([]int, 0, len(weights))
	for i, w := range weights {
		if !w.IsZero() {
			candidates = append(candidates, i)
		}
	}
	if residue > 0 {
		// largest loss first
		sort.SliceStable(candidates, func(a, b int) bool {
			return losses[candidates[a]].GreaterThan(losses[candidates[b]])
		})
	} else {
		sort.SliceStable(candidates, func(a, b int) bool {
			return losses[candidates[a]].LessThan(losses[candidates[b]])
		})
	}

	step := unit
	if residue < 0 {
		step = unit.Neg()
		residue = -residue
	}
	for n := int64(0); n < residue; n++ {
		idx := candidates[int(n)%len(candidates)]
		shares[idx] = shares[idx].Add(step)
	}
	return shares, nil
}

// AllocateMoney is Allocate to cents.
func AllocateMoney(total decimal.Decimal, weights []decimal.Decimal) ([]decimal.Decimal, error) {
	return Allocate(total, weights, 2)
}

// Percentages normalizes weights to percentages with four decimals summing to exactly 100.
func Percentages(weights []decimal.Decimal) ([]decimal.Decimal, error) {
	return Allocate(decimal.NewFromInt(100), weights, 4)
}

// SplitEvenly divides total into n cent-exact shares.
func SplitEvenly(total decimal.Decimal, n int) ([]decimal.Decimal, error) {
	if n <= 0 {
		return nil, ErrNoWeight
	}
	weights := make([]decimal.Decimal, n)
	for i := range weights {
		weights[i] = decimal.NewFromInt(1)
	}
	return AllocateMoney(total, weights)
}

// Sum adds up amounts.
func Sum(amounts []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
