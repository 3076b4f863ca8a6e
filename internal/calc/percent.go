package calc

import (
	"math"

	"hesapkit.com/internal/money"
	"hesapkit.com/internal/validate"
)

// Percentage calculator modes.
const (
	PercentModeOf     = "of"     // what is a% of b
	PercentModeWhat   = "what"   // a is what percent of b
	PercentModeChange = "change" // percent change from a to b
)

var PercentModes = []string{PercentModeOf, PercentModeWhat, PercentModeChange}

type PercentResult struct {
	Mode   string  `json:"mode"`
	Result float64 `json:"result"`
}

// PercentOf returns p percent of x.
func PercentOf(p, x float64) float64 {
	return x * p / 100
}

// WhatPercent returns part as a percentage of whole.
func WhatPercent(part, whole float64) (float64, error) {
	if whole == 0 {
		errs := validate.New()
		errs.Add("b", validate.CodeInvalidValue)
		return 0, errs
	}
	return part / whole * 100, nil
}

// PercentChange returns the change from one value to another relative to
// the magnitude of the first.
func PercentChange(from, to float64) (float64, error) {
	if from == 0 {
		errs := validate.New()
		errs.Add("a", validate.CodeInvalidValue)
		return 0, errs
	}
	return (to - from) / math.Abs(from) * 100, nil
}

// Percentage dispatches on mode with a and b as the two operands.
func Percentage(mode string, a, b float64) (PercentResult, error) {
	errs := validate.New()
	validate.OneOf(errs, "mode", mode, PercentModes...)
	validate.Range(errs, "a", a, -MaxAmount, MaxAmount)
	validate.Range(errs, "b", b, -MaxAmount, MaxAmount)
	if err := errs.Err(); err != nil {
		return PercentResult{}, err
	}

	var (
		v   float64
		err error
	)
	switch mode {
	case PercentModeOf:
		v = PercentOf(a, b)
	case PercentModeWhat:
		v, err = WhatPercent(a, b)
	case PercentModeChange:
		v, err = PercentChange(a, b)
	}
	if err != nil {
		return PercentResult{}, err
	}
	return PercentResult{Mode: mode, Result: money.RoundTo(v, 4)}, nil
}
