package costs

import (
	"fmt"

	"github.com/iwvelando/property-costs/pkg/constants"
	"github.com/iwvelando/property-costs/pkg/loans"
	"github.com/iwvelando/property-costs/pkg/mathutil"
)

// Monthly holds the recurring costs of owning the property.
type Monthly struct {
	BondRepayment float64 `json:"bondRepayment"`
	RatesAndTaxes float64 `json:"ratesAndTaxes"`
	Utilities     float64 `json:"utilities"`
	Levies        float64 `json:"levies"`
	Total         float64 `json:"total"`
}

// OnceOff holds the costs paid when the transfer registers.
type OnceOff struct {
	TransferDuty         float64 `json:"transferDuty"`
	TransferAttorneyFees float64 `json:"transferAttorneyFees"`
	DeedsOfficeFees      float64 `json:"deedsOfficeFees"`
	BondRegistrationCost float64 `json:"bondRegistrationCost"`
	Total                float64 `json:"total"`
}

// Breakdown is derived from a State on every change and never stored.
// Empty is set when there is no asking price; every amount is then zero.
type Breakdown struct {
	Monthly Monthly `json:"monthly"`
	OnceOff OnceOff `json:"onceOff"`
	Empty   bool    `json:"empty"`
}

// LoanSummary describes the bond over its full term.
type LoanSummary struct {
	TotalRepaid   float64 `json:"totalRepaid"`
	TotalInterest float64 `json:"totalInterest"`
}

// EmptyBreakdown is the all-zero result shown before a price is entered.
func EmptyBreakdown() Breakdown {
	return Breakdown{Empty: true}
}

// Compute prices the state against the canonical tariffs.
func Compute(state State) Breakdown {
	return defaultCalculator.Compute(state)
}

// Compute prices the state. It has no side effects and returns the same
// breakdown for the same state.
func (c *Calculator) Compute(state State) Breakdown {
	breakdown, _ := c.Evaluate(state)
	return breakdown
}

// Evaluate prices the state and returns a data-quality warning for every
// line that had to be zeroed because its inputs were out of domain.
func (c *Calculator) Evaluate(state State) (Breakdown, []string) {
	if state.IsEmpty() {
		return EmptyBreakdown(), nil
	}

	var warnings []string
	var b Breakdown

	if state.IsBonded {
		repayment, err := c.CheckedMonthlyBondRepayment(state.LoanAmount, state.InterestRatePercent, state.LoanTermYears)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("bond repayment set to 0: %v", err))
		}
		b.Monthly.BondRepayment = repayment
		b.OnceOff.BondRegistrationCost = c.BondRegistrationCost(state.LoanAmount)
		if !mathutil.IsFinite(state.LoanAmount) {
			warnings = append(warnings, fmt.Sprintf("bond registration set to 0: loan amount %v", state.LoanAmount))
		}
	}

	b.Monthly.RatesAndTaxes = monthlyLine("rates and taxes", state.MonthlyRatesAndTaxes, &warnings)
	b.Monthly.Utilities = monthlyLine("utilities", state.MonthlyUtilities, &warnings)
	b.Monthly.Levies = monthlyLine("levies", state.MonthlyLevies, &warnings)
	b.Monthly.Total = b.Monthly.BondRepayment + b.Monthly.RatesAndTaxes + b.Monthly.Utilities + b.Monthly.Levies

	b.OnceOff.TransferDuty = c.TransferDuty(state.AskingPrice)
	b.OnceOff.TransferAttorneyFees = c.TransferAttorneyFees(state.AskingPrice)
	b.OnceOff.DeedsOfficeFees = c.DeedsOfficeFees(state.AskingPrice)
	b.OnceOff.Total = b.OnceOff.TransferDuty + b.OnceOff.TransferAttorneyFees +
		b.OnceOff.DeedsOfficeFees + b.OnceOff.BondRegistrationCost

	return b, warnings
}

// Summarize returns what the bond costs over its full term.
func Summarize(state State) LoanSummary {
	return defaultCalculator.Summarize(state)
}

// Summarize returns what the bond costs over its full term, or a zero
// summary when the state is empty, unbonded or out of domain.
func (c *Calculator) Summarize(state State) LoanSummary {
	if state.IsEmpty() || !state.IsBonded {
		return LoanSummary{}
	}
	repayment, err := c.CheckedMonthlyBondRepayment(state.LoanAmount, state.InterestRatePercent, state.LoanTermYears)
	if err != nil || repayment == 0 {
		return LoanSummary{}
	}
	repaid := repayment * float64(state.LoanTermYears*constants.MonthsPerYear)
	return LoanSummary{
		TotalRepaid:   repaid,
		TotalInterest: mathutil.RoundWhole(mathutil.NonNegative(repaid - state.LoanAmount)),
	}
}

// RepaymentSchedule breaks the bond down per year of its term. States with
// no bond to repay yield no schedule.
func (c *Calculator) RepaymentSchedule(state State) ([]loans.YearSummary, error) {
	if state.IsEmpty() || !state.IsBonded || state.LoanAmount == 0 {
		return nil, nil
	}
	return loans.NewAmortizationScheduleGenerator(nil).GenerateYearlySchedule(
		state.LoanAmount, state.InterestRatePercent, state.LoanTermYears)
}

func monthlyLine(name string, v float64, warnings *[]string) float64 {
	if !mathutil.IsFinite(v) || v < 0 {
		*warnings = append(*warnings, fmt.Sprintf("%s set to 0: invalid amount %v", name, v))
		return 0
	}
	return mathutil.RoundWhole(v)
}
