// Package loans builds bond amortisation schedules.
package loans

import (
	"errors"
	"fmt"
	"math"

	"github.com/iwvelando/property-costs/pkg/constants"
	"github.com/iwvelando/property-costs/pkg/mathutil"
	"go.uber.org/zap"
)

// ErrInvalidLoan is returned for loan parameters no schedule can be built for.
var ErrInvalidLoan = errors.New("invalid loan parameters")

// Payment holds the values for one monthly instalment.
type Payment struct {
	Month              int     `json:"month"`
	Payment            float64 `json:"payment"`
	Principal          float64 `json:"principal"`
	Interest           float64 `json:"interest"`
	RemainingPrincipal float64 `json:"remainingPrincipal"`
}

// YearSummary aggregates twelve instalments.
type YearSummary struct {
	Year               int     `json:"year"`
	Paid               float64 `json:"paid"`
	Principal          float64 `json:"principal"`
	Interest           float64 `json:"interest"`
	RemainingPrincipal float64 `json:"remainingPrincipal"`
}

// CalculateMonthlyPayment calculates the unrounded instalment using the standard amortization formula.
func CalculateMonthlyPayment(principal, annualInterestRate float64, termMonths int) float64 {
	if termMonths <= 0 || principal <= 0 {
		return 0
	}
	if annualInterestRate == 0 {
		return principal / float64(termMonths)
	}

	periodicInterestRate := annualInterestRate / (constants.PercentageMultiplier * constants.MonthsPerYear)
	power := math.Pow(1.00+periodicInterestRate, float64(termMonths))
	discountFactor := (power - 1.00) / power
	return principal * periodicInterestRate / discountFactor
}

// CalculateInterestPayment calculates the interest portion of a payment.
func CalculateInterestPayment(remainingPrincipal, annualInterestRate float64) float64 {
	return remainingPrincipal * annualInterestRate / (constants.PercentageMultiplier * constants.MonthsPerYear)
}

// AmortizationScheduleGenerator provides utilities for generating bond repayment schedules
type AmortizationScheduleGenerator struct {
	logger *zap.Logger
}

// NewAmortizationScheduleGenerator creates a new generator instance
func NewAmortizationScheduleGenerator(logger *zap.Logger) *AmortizationScheduleGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AmortizationScheduleGenerator{logger: logger}
}

// GenerateSchedule lists every instalment of a bond. The final instalment
// settles whatever balance is left so the schedule always ends at zero.
func (g *AmortizationScheduleGenerator) GenerateSchedule(principal, annualInterestRate float64, termYears int) ([]Payment, error) {
	if !mathutil.IsFinite(principal) || principal < 0 {
		return nil, fmt.Errorf("%w: principal %v", ErrInvalidLoan, principal)
	}
	if !mathutil.IsFinite(annualInterestRate) || annualInterestRate < 0 {
		return nil, fmt.Errorf("%w: interest rate %v", ErrInvalidLoan, annualInterestRate)
	}
	if termYears <= 0 {
		return nil, fmt.Errorf("%w: term %d years", ErrInvalidLoan, termYears)
	}
	if principal == 0 {
		return nil, nil
	}

	term := termYears * constants.MonthsPerYear
	monthlyPayment := CalculateMonthlyPayment(principal, annualInterestRate, term)

	schedule := make([]Payment, 0, term)
	remaining := principal
	for month := 1; month <= term; month++ {
		var current Payment
		current.Month = month
		current.Interest = CalculateInterestPayment(remaining, annualInterestRate)
		current.Principal = monthlyPayment - current.Interest

		if month == term || mathutil.RoundWhole(remaining-current.Principal) <= 0 {
			// Absorb floating point drift into the last instalment.
			current.Principal = remaining
			current.Payment = current.Principal + current.Interest
			current.RemainingPrincipal = 0
			schedule = append(schedule, current)
			break
		}

		current.Payment = monthlyPayment
		current.RemainingPrincipal = remaining - current.Principal
		remaining = current.RemainingPrincipal
		schedule = append(schedule, current)
	}

	g.logger.Debug(fmt.Sprintf("generated %d instalments of %.2f", len(schedule), monthlyPayment),
		zap.String("op", "loans.GenerateSchedule"),
		zap.Float64("principal", principal),
		zap.Float64("rate", annualInterestRate),
		zap.Int("termYears", termYears),
	)
	return schedule, nil
}

// Yearly folds a monthly schedule into one summary per year of the term.
func Yearly(schedule []Payment) []YearSummary {
	var years []YearSummary
	for _, payment := range schedule {
		year := (payment.Month-1)/constants.MonthsPerYear + 1
		if len(years) == 0 || years[len(years)-1].Year != year {
			years = append(years, YearSummary{Year: year})
		}
		current := &years[len(years)-1]
		current.Paid += payment.Payment
		current.Principal += payment.Principal
		current.Interest += payment.Interest
		current.RemainingPrincipal = payment.RemainingPrincipal
	}
	return years
}

// GenerateYearlySchedule generates a schedule and summarises it per year.
func (g *AmortizationScheduleGenerator) GenerateYearlySchedule(principal, annualInterestRate float64, termYears int) ([]YearSummary, error) {
	schedule, err := g.GenerateSchedule(principal, annualInterestRate, termYears)
	if err != nil {
		return nil, err
	}
	return Yearly(schedule), nil
}
