// Package tariff holds the tiered rate tables used to price a property
// transfer: transfer duty brackets, deeds office fee steps and conveyancing
// attorney fee schedules.
package tariff

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidSchedule is returned when a table breaks its ordering invariants.
var ErrInvalidSchedule = errors.New("invalid tariff schedule")

var decimalOne = decimal.NewFromInt(1)

// Bracket is one band of a progressive tax. Brackets are inclusive on both
// ends and the next bracket starts one rand above the previous Max.
type Bracket struct {
	Min       decimal.Decimal `yaml:"min" json:"min"`
	Max       decimal.Decimal `yaml:"max" json:"max"`
	Unbounded bool            `yaml:"unbounded" json:"unbounded"`
	Rate      decimal.Decimal `yaml:"rate" json:"rate"`
}

// Contains reports whether value falls inside the bracket.
func (b Bracket) Contains(value decimal.Decimal) bool {
	return value.GreaterThanOrEqual(b.Min) && (b.Unbounded || value.LessThanOrEqual(b.Max))
}

// StepTier maps every value up to UpTo onto a flat Fee.
type StepTier struct {
	UpTo      decimal.Decimal `yaml:"upTo" json:"upTo"`
	Unbounded bool            `yaml:"unbounded" json:"unbounded"`
	Fee       decimal.Decimal `yaml:"fee" json:"fee"`
}

// MarginalTier charges Base plus Rate on the part of the value above the
// previous tier's UpTo.
type MarginalTier struct {
	UpTo      decimal.Decimal `yaml:"upTo" json:"upTo"`
	Unbounded bool            `yaml:"unbounded" json:"unbounded"`
	Base      decimal.Decimal `yaml:"base" json:"base"`
	Rate      decimal.Decimal `yaml:"rate" json:"rate"`
}

// Schedule is the full set of tables and flat charges for one tariff year.
type Schedule struct {
	TransferDuty          []Bracket       `yaml:"transferDuty" json:"transferDuty"`
	TransferAttorney      []MarginalTier  `yaml:"transferAttorney" json:"transferAttorney"`
	TransferDisbursements decimal.Decimal `yaml:"transferDisbursements" json:"transferDisbursements"`
	TransferDeeds         []StepTier      `yaml:"transferDeeds" json:"transferDeeds"`
	BondDeeds             []StepTier      `yaml:"bondDeeds" json:"bondDeeds"`
	BondAttorney          []MarginalTier  `yaml:"bondAttorney" json:"bondAttorney"`
	BondDisbursements     decimal.Decimal `yaml:"bondDisbursements" json:"bondDisbursements"`
	BankInitiationFee     decimal.Decimal `yaml:"bankInitiationFee" json:"bankInitiationFee"`
	VATRate               decimal.Decimal `yaml:"vatRate" json:"vatRate"`
}

// ProgressiveTax applies the brackets to value. Each bracket whose Min lies
// below value contributes (min(value, Max) - Min + 1) * Rate. The result is
// not rounded.
func ProgressiveTax(brackets []Bracket, value decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	if !value.IsPositive() {
		return total
	}
	for _, b := range brackets {
		if !b.Min.LessThan(value) {
			continue
		}
		upper := value
		if !b.Unbounded && b.Max.LessThan(value) {
			upper = b.Max
		}
		total = total.Add(upper.Sub(b.Min).Add(decimalOne).Mul(b.Rate))
	}
	return total
}

// StepFee returns the flat fee of the first tier that covers value.
func StepFee(tiers []StepTier, value decimal.Decimal) decimal.Decimal {
	if !value.IsPositive() {
		return decimal.Zero
	}
	for _, t := range tiers {
		if t.Unbounded || value.LessThanOrEqual(t.UpTo) {
			return t.Fee
		}
	}
	return decimal.Zero
}

// MarginalFee returns Base + (value - floor) * Rate for the tier that covers
// value, where floor is the UpTo of the tier before it.
func MarginalFee(tiers []MarginalTier, value decimal.Decimal) decimal.Decimal {
	if !value.IsPositive() {
		return decimal.Zero
	}
	floor := decimal.Zero
	for _, t := range tiers {
		if t.Unbounded || value.LessThanOrEqual(t.UpTo) {
			return t.Base.Add(value.Sub(floor).Mul(t.Rate))
		}
		floor = t.UpTo
	}
	return decimal.Zero
}

// Validate checks every table in the schedule.
func (s Schedule) Validate() error {
	if err := ValidateBrackets(s.TransferDuty); err != nil {
		return fmt.Errorf("transferDuty: %w", err)
	}
	if err := validateMarginalTiers(s.TransferAttorney); err != nil {
		return fmt.Errorf("transferAttorney: %w", err)
	}
	if err := validateStepTiers(s.TransferDeeds); err != nil {
		return fmt.Errorf("transferDeeds: %w", err)
	}
	if err := validateStepTiers(s.BondDeeds); err != nil {
		return fmt.Errorf("bondDeeds: %w", err)
	}
	if err := validateMarginalTiers(s.BondAttorney); err != nil {
		return fmt.Errorf("bondAttorney: %w", err)
	}
	for name, v := range map[string]decimal.Decimal{
		"transferDisbursements": s.TransferDisbursements,
		"bondDisbursements":     s.BondDisbursements,
		"bankInitiationFee":     s.BankInitiationFee,
		"vatRate":               s.VATRate,
	} {
		if v.IsNegative() {
			return fmt.Errorf("%s: %w: negative amount %s", name, ErrInvalidSchedule, v)
		}
	}
	return nil
}

// ValidateBrackets checks that brackets partition [0, inf) without gaps or
// overlaps and that rates never decrease.
func ValidateBrackets(brackets []Bracket) error {
	if len(brackets) == 0 {
		return fmt.Errorf("%w: no brackets", ErrInvalidSchedule)
	}
	if !brackets[0].Min.IsZero() {
		return fmt.Errorf("%w: first bracket starts at %s, expected 0", ErrInvalidSchedule, brackets[0].Min)
	}
	for i, b := range brackets {
		if b.Rate.IsNegative() || b.Rate.GreaterThan(decimalOne) {
			return fmt.Errorf("%w: bracket %d rate %s outside [0, 1]", ErrInvalidSchedule, i, b.Rate)
		}
		last := i == len(brackets)-1
		if b.Unbounded != last {
			return fmt.Errorf("%w: only the last bracket may be unbounded (bracket %d)", ErrInvalidSchedule, i)
		}
		if !b.Unbounded && b.Max.LessThan(b.Min) {
			return fmt.Errorf("%w: bracket %d max %s below min %s", ErrInvalidSchedule, i, b.Max, b.Min)
		}
		if i == 0 {
			continue
		}
		prev := brackets[i-1]
		if !b.Min.Equal(prev.Max.Add(decimalOne)) {
			return fmt.Errorf("%w: bracket %d starts at %s, expected %s", ErrInvalidSchedule, i, b.Min, prev.Max.Add(decimalOne))
		}
		if b.Rate.LessThan(prev.Rate) {
			return fmt.Errorf("%w: bracket %d rate %s below previous rate %s", ErrInvalidSchedule, i, b.Rate, prev.Rate)
		}
	}
	return nil
}

func validateStepTiers(tiers []StepTier) error {
	if len(tiers) == 0 {
		return fmt.Errorf("%w: no tiers", ErrInvalidSchedule)
	}
	for i, t := range tiers {
		if t.Unbounded != (i == len(tiers)-1) {
			return fmt.Errorf("%w: only the last tier may be unbounded (tier %d)", ErrInvalidSchedule, i)
		}
		if t.Fee.IsNegative() {
			return fmt.Errorf("%w: tier %d has negative fee %s", ErrInvalidSchedule, i, t.Fee)
		}
		if i > 0 && !t.Unbounded && !t.UpTo.GreaterThan(tiers[i-1].UpTo) {
			return fmt.Errorf("%w: tier %d bound %s not above %s", ErrInvalidSchedule, i, t.UpTo, tiers[i-1].UpTo)
		}
	}
	return nil
}

func validateMarginalTiers(tiers []MarginalTier) error {
	if len(tiers) == 0 {
		return fmt.Errorf("%w: no tiers", ErrInvalidSchedule)
	}
	for i, t := range tiers {
		if t.Unbounded != (i == len(tiers)-1) {
			return fmt.Errorf("%w: only the last tier may be unbounded (tier %d)", ErrInvalidSchedule, i)
		}
		if t.Base.IsNegative() || t.Rate.IsNegative() {
			return fmt.Errorf("%w: tier %d has a negative base or rate", ErrInvalidSchedule, i)
		}
		if i > 0 && !t.Unbounded && !t.UpTo.GreaterThan(tiers[i-1].UpTo) {
			return fmt.Errorf("%w: tier %d bound %s not above %s", ErrInvalidSchedule, i, t.UpTo, tiers[i-1].UpTo)
		}
	}
	return nil
}
