// Package costs computes the monthly and once-off costs of buying a
// residential property from a plain State record.
package costs

import (
	"github.com/iwvelando/property-costs/pkg/constants"
	"github.com/iwvelando/property-costs/pkg/mathutil"
)

// State holds every user-entered value a cost breakdown depends on.
type State struct {
	AskingPrice          float64         `json:"askingPrice"`
	IsBonded             bool            `json:"isBonded"`
	LoanAmount           float64         `json:"loanAmount"`
	LoanTermYears        int             `json:"loanTermYears"`
	InterestRatePercent  float64         `json:"interestRatePercent"`
	MonthlyRatesAndTaxes float64         `json:"monthlyRatesAndTaxes"`
	MonthlyUtilities     float64         `json:"monthlyUtilities"`
	MonthlyLevies        float64         `json:"monthlyLevies"`
	SectionsExpanded     map[string]bool `json:"sectionsExpanded"`
}

// DefaultState returns the state of a calculator nobody has touched yet.
func DefaultState() State {
	return State{
		IsBonded:            true,
		LoanTermYears:       constants.DefaultLoanTermYears,
		InterestRatePercent: constants.DefaultInterestRatePercent,
		SectionsExpanded:    DefaultSections(),
	}
}

// DefaultSections returns the initial expand/collapse flags.
func DefaultSections() map[string]bool {
	return map[string]bool{
		constants.SectionProperty: true,
		constants.SectionBond:     true,
		constants.SectionMonthly:  true,
		constants.SectionOnceOff:  true,
	}
}

// SeededState returns the default state with the asking price (and, since
// new calculators are bonded, the loan amount) taken from a listing.
func SeededState(listedPrice float64) State {
	s := DefaultState()
	s.AskingPrice = mathutil.NonNegative(listedPrice)
	s.LoanAmount = s.AskingPrice
	return s
}

// IsEmpty reports whether the state has no asking price and therefore no
// costs to show.
func (s State) IsEmpty() bool {
	return !(s.AskingPrice > 0)
}

// Clone returns a copy that shares no map with s.
func (s State) Clone() State {
	out := s
	if s.SectionsExpanded != nil {
		out.SectionsExpanded = make(map[string]bool, len(s.SectionsExpanded))
		for k, v := range s.SectionsExpanded {
			out.SectionsExpanded[k] = v
		}
	}
	return out
}

// Normalize replaces values no input path can produce (negative or
// non-finite amounts, a nil section map) with their zero equivalents.
func (s State) Normalize() State {
	out := s.Clone()
	out.AskingPrice = mathutil.NonNegative(out.AskingPrice)
	out.LoanAmount = mathutil.NonNegative(out.LoanAmount)
	out.InterestRatePercent = mathutil.NonNegative(out.InterestRatePercent)
	out.MonthlyRatesAndTaxes = mathutil.NonNegative(out.MonthlyRatesAndTaxes)
	out.MonthlyUtilities = mathutil.NonNegative(out.MonthlyUtilities)
	out.MonthlyLevies = mathutil.NonNegative(out.MonthlyLevies)
	if out.LoanTermYears < 0 {
		out.LoanTermYears = 0
	}
	if out.SectionsExpanded == nil {
		out.SectionsExpanded = make(map[string]bool)
	}
	return out
}
