// Package money rounds and splits currency amounts with decimal arithmetic.
package money

import (
	"github.com/shopspring/decimal"
)

// Places is the number of fractional digits kept for every currency amount.
const Places = 2

// Round rounds v to two decimals, half away from zero.
func Round(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(Places).Float64()
	return f
}

// RoundTo rounds v to the given number of decimals, half away from zero.
func RoundTo(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// Split divides total into n shares that add back up to total exactly.
// The first shares absorb the leftover cents.
func Split(total float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	cents := decimal.NewFromFloat(total).Round(Places).Shift(Places).IntPart()
	base := cents / int64(n)
	rem := cents % int64(n)

	shares := make([]float64, n)
	for i := range shares {
		c := base
		if int64(i) < rem {
			c++
		}
		shares[i], _ = decimal.New(c, -Places).Float64()
	}
	return shares
}

// Sum adds amounts without accumulating binary floating point error.
func Sum(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	f, _ := total.Float64()
	return f
}
