// Package format renders amounts the way South African listings show them.
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Currency returns a whole-rand string with a space between thousands groups (e.g., "R 1 500 000", "-R 250").
func Currency(amount float64) string {
	formatted := groupThousands(math.Abs(amount), ' ')
	if amount < 0 && formatted != "0" {
		return "-R " + formatted
	}
	return "R " + formatted
}

// NumericCurrency returns a whole-rand string without the symbol and with comma separators (e.g., "1,500,000").
// It is meant for CSV cells and text fields.
func NumericCurrency(amount float64) string {
	formatted := groupThousands(math.Abs(amount), ',')
	if amount < 0 && formatted != "0" {
		return "-" + formatted
	}
	return formatted
}

// Percent renders an interest rate with up to two decimals (e.g., "11.75%", "10%").
func Percent(pct float64) string {
	return strconv.FormatFloat(math.Round(pct*100)/100, 'f', -1, 64) + "%"
}

// Years renders a loan term.
func Years(years int) string {
	if years == 1 {
		return "1 year"
	}
	return fmt.Sprintf("%d years", years)
}

func groupThousands(value float64, sep byte) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "0"
	}
	intPart := strconv.FormatFloat(math.Round(value), 'f', 0, 64)
	if len(intPart) <= 3 {
		return intPart
	}

	var builder strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			builder.WriteByte(sep)
		}
		builder.WriteRune(digit)
	}
	return builder.String()
}
