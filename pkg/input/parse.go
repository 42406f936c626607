// Package input normalises what users type into the calculator's fields.
// Nothing here returns an error: partial or non-numeric entries are
// expected while typing and read as zero.
package input

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/iwvelando/property-costs/pkg/constants"
	"github.com/iwvelando/property-costs/pkg/mathutil"
)

// ParseAmount reads a rand amount such as "1 500 000", "R1 500 000" or
// "2500.50". Whitespace of any kind (including non-breaking spaces) is
// treated as a thousands separator. Anything unparsable, negative or
// non-finite is 0.
func ParseAmount(raw string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
	cleaned = strings.TrimPrefix(strings.TrimPrefix(cleaned, "R"), "r")
	if cleaned == "" {
		return 0
	}
	for _, r := range cleaned {
		if !unicode.IsDigit(r) && r != '.' {
			return 0
		}
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return mathutil.NonNegative(v)
}

// ParsePercent reads a rate such as "11.75" or "11,75%". Unparsable input
// is 0.
func ParsePercent(raw string) float64 {
	cleaned := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "%"))
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	if cleaned == "" {
		return 0
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return mathutil.NonNegative(v)
}

// ParseTerm reads a loan term in years and snaps it to a selectable term.
func ParseTerm(raw string) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return SnapTerm(v)
}

// ParseBool reads toggle values such as "yes", "on", "true" or "1".
func ParseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "y", "yes", "on":
		return true
	}
	return false
}

// SnapTerm maps years onto the nearest selectable term; zero or negative
// years are 0. Ties go to the shorter term.
func SnapTerm(years int) int {
	if years <= 0 {
		return 0
	}
	best := constants.LoanTermsYears[0]
	for _, term := range constants.LoanTermsYears[1:] {
		if abs(term-years) < abs(best-years) {
			best = term
		}
	}
	return best
}

// ClampSliderRate keeps a slider rate in [5, 20] on a 0.25 step. Zero and
// invalid values stay 0 so the caller can tell an unset rate apart.
func ClampSliderRate(pct float64) float64 {
	return clampRate(pct, constants.MaxSliderInterestRatePercent)
}

// ClampTextRate keeps a typed rate in [5, 25] on a 0.25 step.
func ClampTextRate(pct float64) float64 {
	return clampRate(pct, constants.MaxTextInterestRatePercent)
}

// SliderPosition is where the slider sits for a stored rate; typed rates
// above the slider range pin it to its maximum.
func SliderPosition(pct float64) float64 {
	if !(pct > 0) || math.IsInf(pct, 0) {
		return constants.MinInterestRatePercent
	}
	return ClampSliderRate(pct)
}

func clampRate(pct, max float64) float64 {
	if !mathutil.IsFinite(pct) || pct <= 0 {
		return 0
	}
	snapped := mathutil.SnapToStep(pct, constants.MinInterestRatePercent, constants.InterestRateStep)
	return mathutil.Clamp(snapped, constants.MinInterestRatePercent, max)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
