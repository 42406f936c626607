// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/iwvelando/property-costs/pkg/constants"
)

// RoundWhole rounds a value to the nearest whole rand, halves away from zero.
func RoundWhole(val float64) float64 {
	return math.Round(val)
}

// IsFinite reports whether a value is neither NaN nor an infinity.
func IsFinite(val float64) bool {
	return !math.IsNaN(val) && !math.IsInf(val, 0)
}

// NonNegative maps NaN, infinities and negative values to zero.
func NonNegative(val float64) float64 {
	if !IsFinite(val) || val < 0 {
		return 0
	}
	return val
}

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// WithinRounding checks if two whole-rand values agree within rounding slack.
func WithinRounding(val1, val2 float64) bool {
	return WithinTolerance(val1, val2, constants.CurrencyTolerance)
}

// Clamp limits val to [lo, hi].
func Clamp(val, lo, hi float64) float64 {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}

// SnapToStep rounds val to the nearest multiple of step measured from origin.
func SnapToStep(val, origin, step float64) float64 {
	if step <= 0 {
		return val
	}
	return origin + math.Round((val-origin)/step)*step
}

// ApplyPercentage applies a percentage to a value
func ApplyPercentage(value, percentage float64) float64 {
	return value * (percentage / constants.PercentageMultiplier)
}
