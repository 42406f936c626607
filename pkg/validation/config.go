// Package validation provides configuration validation utilities.
package validation

import (
	"fmt"
	"slices"

	"github.com/iwvelando/property-costs/pkg/constants"
)

// ValidateInterestRate checks a default rate against the text field bounds.
func ValidateInterestRate(name string, pct float64) string {
	if pct < constants.MinInterestRatePercent || pct > constants.MaxTextInterestRatePercent {
		return fmt.Sprintf("%s interest rate %.2f%% is outside [%.0f%%, %.0f%%] and will be clamped",
			name, pct, constants.MinInterestRatePercent, constants.MaxTextInterestRatePercent)
	}
	if pct > constants.MaxSliderInterestRatePercent {
		return fmt.Sprintf("%s interest rate %.2f%% is above the slider range and can only be entered as text",
			name, pct)
	}
	return ""
}

// ValidateLoanTerm checks a default term against the selectable terms.
func ValidateLoanTerm(name string, years int) string {
	if !slices.Contains(constants.LoanTermsYears, years) {
		return fmt.Sprintf("%s loan term of %d years is not one of %v and will be snapped to the nearest term",
			name, years, constants.LoanTermsYears)
	}
	return ""
}

// ConfigValidator validates the settings that are not fatal when wrong.
type ConfigValidator struct {
	Defaults DefaultsConfig
	Store    StoreConfig
}

// DefaultsConfig mirrors the calculator defaults section.
type DefaultsConfig struct {
	InterestRatePercent float64
	LoanTermYears       int
}

// StoreConfig mirrors the snapshot store section.
type StoreConfig struct {
	Backend       string
	Address       string
	Path          string
	TimeoutMillis int
}

// ValidateAll validates the entire configuration and returns warnings
func (cv *ConfigValidator) ValidateAll() []string {
	var warnings []string

	if warning := ValidateInterestRate("Default", cv.Defaults.InterestRatePercent); warning != "" {
		warnings = append(warnings, warning)
	}
	if warning := ValidateLoanTerm("Default", cv.Defaults.LoanTermYears); warning != "" {
		warnings = append(warnings, warning)
	}

	if err := ValidateStoreBackend(cv.Store.Backend); err != nil {
		warnings = append(warnings, fmt.Sprintf("%s; falling back to %s", err, constants.StoreBackendMemory))
	}
	switch cv.Store.Backend {
	case constants.StoreBackendRedis:
		if cv.Store.Address == "" {
			warnings = append(warnings, "Redis store selected without an address; snapshots will fail to save")
		}
	case constants.StoreBackendSQLite:
		if cv.Store.Path == "" {
			warnings = append(warnings, "SQLite store selected without a path; snapshots will fail to save")
		}
	case constants.StoreBackendMemory:
		if cv.Store.Address != "" || cv.Store.Path != "" {
			warnings = append(warnings, "Memory store ignores the configured address and path; snapshots are lost on exit")
		}
	}
	if cv.Store.TimeoutMillis < 0 {
		warnings = append(warnings, fmt.Sprintf("Store timeout of %dms is negative; using %dms",
			cv.Store.TimeoutMillis, constants.DefaultStoreTimeoutMillis))
	}

	return warnings
}
