package costs

import (
	"errors"
	"fmt"
	"math"

	"github.com/iwvelando/property-costs/pkg/constants"
	"github.com/iwvelando/property-costs/pkg/mathutil"
	"github.com/iwvelando/property-costs/pkg/tariff"
	"github.com/shopspring/decimal"
)

// ErrDomain marks inputs a formula cannot price. The affected line is
// reported as zero.
var ErrDomain = errors.New("formula input out of domain")

var decimalOne = decimal.NewFromInt(1)

// Calculator prices each cost line against one tariff schedule. Every
// method rounds its own total to the nearest rand once, never its terms.
type Calculator struct {
	schedule tariff.Schedule
}

// NewCalculator returns a Calculator for the given schedule. The schedule is
// assumed valid; see tariff.Schedule.Validate.
func NewCalculator(schedule tariff.Schedule) *Calculator {
	return &Calculator{schedule: schedule}
}

// Schedule returns the tariff schedule the calculator prices against.
func (c *Calculator) Schedule() tariff.Schedule {
	return c.schedule
}

var defaultCalculator = NewCalculator(tariff.Default())

// TransferDuty prices transfer duty on price using the canonical brackets.
func TransferDuty(price float64) float64 {
	return defaultCalculator.TransferDuty(price)
}

// TransferAttorneyFees prices conveyancing on price using the canonical tiers.
func TransferAttorneyFees(price float64) float64 {
	return defaultCalculator.TransferAttorneyFees(price)
}

// DeedsOfficeFees prices the deeds office transfer fee on price.
func DeedsOfficeFees(price float64) float64 {
	return defaultCalculator.DeedsOfficeFees(price)
}

// BondRegistrationCost prices registering a bond of loanAmount.
func BondRegistrationCost(loanAmount float64) float64 {
	return defaultCalculator.BondRegistrationCost(loanAmount)
}

// MonthlyBondRepayment returns the amortised monthly instalment.
func MonthlyBondRepayment(loanAmount, ratePercent float64, termYears int) float64 {
	return defaultCalculator.MonthlyBondRepayment(loanAmount, ratePercent, termYears)
}

// TransferDuty applies the progressive duty brackets to price.
func (c *Calculator) TransferDuty(price float64) float64 {
	if !positive(price) {
		return 0
	}
	return whole(tariff.ProgressiveTax(c.schedule.TransferDuty, decimal.NewFromFloat(price)))
}

// TransferAttorneyFees returns the VAT-inclusive transfer attorney tariff
// plus the fixed disbursements (postage, FICA and searches).
func (c *Calculator) TransferAttorneyFees(price float64) float64 {
	if !positive(price) {
		return 0
	}
	fee := tariff.MarginalFee(c.schedule.TransferAttorney, decimal.NewFromFloat(price))
	return whole(c.withVAT(fee).Add(c.schedule.TransferDisbursements))
}

// DeedsOfficeFees looks up the deeds office fee for registering the transfer.
func (c *Calculator) DeedsOfficeFees(price float64) float64 {
	if !positive(price) {
		return 0
	}
	return whole(tariff.StepFee(c.schedule.TransferDeeds, decimal.NewFromFloat(price)))
}

// BondRegistrationCost sums the deeds office fee on the loan, the
// VAT-inclusive bond attorney tariff, the bank initiation fee and the
// bond disbursements.
func (c *Calculator) BondRegistrationCost(loanAmount float64) float64 {
	if !positive(loanAmount) {
		return 0
	}
	loan := decimal.NewFromFloat(loanAmount)
	total := tariff.StepFee(c.schedule.BondDeeds, loan).
		Add(c.withVAT(tariff.MarginalFee(c.schedule.BondAttorney, loan))).
		Add(c.schedule.BankInitiationFee).
		Add(c.schedule.BondDisbursements)
	return whole(total)
}

// MonthlyBondRepayment returns the instalment, or zero when the inputs are
// outside the formula's domain.
func (c *Calculator) MonthlyBondRepayment(loanAmount, ratePercent float64, termYears int) float64 {
	payment, _ := c.CheckedMonthlyBondRepayment(loanAmount, ratePercent, termYears)
	return payment
}

// CheckedMonthlyBondRepayment computes
// loan * r * (1+r)^n / ((1+r)^n - 1) with r the monthly rate and n the
// number of instalments. A zero rate repays loan/n. Inputs the formula
// cannot price return zero and an error wrapping ErrDomain.
func (c *Calculator) CheckedMonthlyBondRepayment(loanAmount, ratePercent float64, termYears int) (float64, error) {
	if !mathutil.IsFinite(loanAmount) {
		return 0, fmt.Errorf("%w: loan amount %v", ErrDomain, loanAmount)
	}
	if loanAmount <= 0 {
		return 0, nil
	}
	if termYears <= 0 {
		return 0, fmt.Errorf("%w: loan term %d years", ErrDomain, termYears)
	}
	if !mathutil.IsFinite(ratePercent) || ratePercent < 0 {
		return 0, fmt.Errorf("%w: interest rate %v%%", ErrDomain, ratePercent)
	}

	n := float64(termYears * constants.MonthsPerYear)
	monthlyRate := ratePercent / (constants.PercentageMultiplier * constants.MonthsPerYear)

	var payment float64
	if monthlyRate == 0 {
		payment = loanAmount / n
	} else {
		power := math.Pow(1+monthlyRate, n)
		payment = loanAmount * monthlyRate * power / (power - 1)
	}

	if !mathutil.IsFinite(payment) {
		return 0, fmt.Errorf("%w: repayment not finite for loan %.2f at %v%% over %d years",
			ErrDomain, loanAmount, ratePercent, termYears)
	}
	return mathutil.RoundWhole(payment), nil
}

func (c *Calculator) withVAT(fee decimal.Decimal) decimal.Decimal {
	return fee.Mul(decimalOne.Add(c.schedule.VATRate))
}

func positive(v float64) bool {
	return mathutil.IsFinite(v) && v > 0
}

func whole(v decimal.Decimal) float64 {
	return v.Round(0).InexactFloat64()
}
