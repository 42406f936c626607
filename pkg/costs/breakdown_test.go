package costs

import (
	"math"
	"reflect"
	"testing"

	"github.com/iwvelando/property-costs/pkg/mathutil"
	"github.com/iwvelando/property-costs/pkg/tariff"
)

func scenarioState() State {
	s := DefaultState()
	s.AskingPrice = 1500000
	s.IsBonded = true
	s.LoanAmount = 1350000
	s.InterestRatePercent = 11.75
	s.LoanTermYears = 20
	s.MonthlyRatesAndTaxes = 1200
	s.MonthlyUtilities = 1800
	s.MonthlyLevies = 950
	return s
}

func TestComputeScenario(t *testing.T) {
	b := Compute(scenarioState())

	if b.Empty {
		t.Fatal("expected a populated breakdown")
	}
	if b.Monthly.BondRepayment != 14630 {
		t.Errorf("BondRepayment = %v, expected 14630", b.Monthly.BondRepayment)
	}
	if b.OnceOff.TransferDuty != 12000 {
		t.Errorf("TransferDuty = %v, expected 12000", b.OnceOff.TransferDuty)
	}
	if b.OnceOff.TransferAttorneyFees != 46070 {
		t.Errorf("TransferAttorneyFees = %v, expected 46070", b.OnceOff.TransferAttorneyFees)
	}
	if b.OnceOff.DeedsOfficeFees != 2184 {
		t.Errorf("DeedsOfficeFees = %v, expected 2184", b.OnceOff.DeedsOfficeFees)
	}
	if b.OnceOff.BondRegistrationCost != 45009 {
		t.Errorf("BondRegistrationCost = %v, expected 45009", b.OnceOff.BondRegistrationCost)
	}
	if b.Monthly.Total != 14630+1200+1800+950 {
		t.Errorf("Monthly.Total = %v, expected %v", b.Monthly.Total, 14630+1200+1800+950)
	}
	if b.OnceOff.Total != 12000+46070+2184+45009 {
		t.Errorf("OnceOff.Total = %v, expected %v", b.OnceOff.Total, 12000+46070+2184+45009)
	}
}

func TestComputeTotalsMatchLines(t *testing.T) {
	for _, price := range []float64{350000, 999999, 1512501, 2750000, 12500000} {
		s := scenarioState()
		s.AskingPrice = price
		s.LoanAmount = price * 0.9
		s.MonthlyUtilities = 1234.56
		b := Compute(s)

		monthly := b.Monthly.BondRepayment + b.Monthly.RatesAndTaxes + b.Monthly.Utilities + b.Monthly.Levies
		if !mathutil.WithinRounding(monthly, b.Monthly.Total) {
			t.Errorf("price %v: monthly lines sum to %v, total %v", price, monthly, b.Monthly.Total)
		}
		onceOff := b.OnceOff.TransferDuty + b.OnceOff.TransferAttorneyFees + b.OnceOff.DeedsOfficeFees + b.OnceOff.BondRegistrationCost
		if !mathutil.WithinRounding(onceOff, b.OnceOff.Total) {
			t.Errorf("price %v: once-off lines sum to %v, total %v", price, onceOff, b.OnceOff.Total)
		}
	}
}

func TestComputeEmptyState(t *testing.T) {
	states := []State{
		{},
		DefaultState(),
		func() State {
			s := scenarioState()
			s.AskingPrice = 0
			return s
		}(),
		func() State {
			s := scenarioState()
			s.AskingPrice = -250000
			return s
		}(),
		func() State {
			s := scenarioState()
			s.AskingPrice = math.NaN()
			return s
		}(),
	}

	for i, s := range states {
		b := Compute(s)
		if !reflect.DeepEqual(b, EmptyBreakdown()) {
			t.Errorf("state %d: expected the empty breakdown, got %+v", i, b)
		}
		if !b.Empty {
			t.Errorf("state %d: expected Empty to be set", i)
		}
	}
}

func TestComputeNotBondedZeroesBondLines(t *testing.T) {
	s := scenarioState()
	s.IsBonded = false
	s.LoanAmount = 1350000

	b := Compute(s)
	if b.Monthly.BondRepayment != 0 {
		t.Errorf("BondRepayment = %v, expected 0 when not bonded", b.Monthly.BondRepayment)
	}
	if b.OnceOff.BondRegistrationCost != 0 {
		t.Errorf("BondRegistrationCost = %v, expected 0 when not bonded", b.OnceOff.BondRegistrationCost)
	}
	if b.OnceOff.TransferDuty != 12000 {
		t.Errorf("TransferDuty = %v, expected 12000", b.OnceOff.TransferDuty)
	}
	if b.Monthly.Total != 1200+1800+950 {
		t.Errorf("Monthly.Total = %v, expected occupancy costs only", b.Monthly.Total)
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	s := scenarioState()
	first := Compute(s)
	second := Compute(s)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Compute() not deterministic: %+v vs %+v", first, second)
	}
	if !reflect.DeepEqual(s, scenarioState()) {
		t.Error("Compute() mutated its input")
	}
}

func TestEvaluateReportsDomainWarnings(t *testing.T) {
	c := NewCalculator(tariff.Default())

	s := scenarioState()
	s.LoanTermYears = 0
	s.MonthlyLevies = math.Inf(1)

	b, warnings := c.Evaluate(s)
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %d: %v", len(warnings), warnings)
	}
	if b.Monthly.BondRepayment != 0 {
		t.Errorf("BondRepayment = %v, expected 0 for a zero term", b.Monthly.BondRepayment)
	}
	if b.Monthly.Levies != 0 {
		t.Errorf("Levies = %v, expected 0 for a non-finite amount", b.Monthly.Levies)
	}
	if math.IsInf(b.Monthly.Total, 0) || math.IsNaN(b.Monthly.Total) {
		t.Errorf("Monthly.Total is not finite: %v", b.Monthly.Total)
	}
	if b.OnceOff.BondRegistrationCost != 45009 {
		t.Errorf("BondRegistrationCost = %v, expected 45009", b.OnceOff.BondRegistrationCost)
	}

	if _, warnings := c.Evaluate(scenarioState()); len(warnings) != 0 {
		t.Errorf("expected no warnings for a valid state, got %v", warnings)
	}
}

func TestSummarize(t *testing.T) {
	summary := Summarize(scenarioState())
	if summary.TotalRepaid != 14630*240 {
		t.Errorf("TotalRepaid = %v, expected %v", summary.TotalRepaid, 14630*240)
	}
	if summary.TotalInterest != 14630*240-1350000 {
		t.Errorf("TotalInterest = %v, expected %v", summary.TotalInterest, 14630*240-1350000)
	}

	cash := scenarioState()
	cash.IsBonded = false
	if got := Summarize(cash); got != (LoanSummary{}) {
		t.Errorf("expected a zero summary for a cash purchase, got %+v", got)
	}
	if got := Summarize(DefaultState()); got != (LoanSummary{}) {
		t.Errorf("expected a zero summary for an empty state, got %+v", got)
	}
}

func TestStateHelpers(t *testing.T) {
	seeded := SeededState(1750000)
	if seeded.AskingPrice != 1750000 || seeded.LoanAmount != 1750000 || !seeded.IsBonded {
		t.Errorf("SeededState() = %+v, expected price and loan of 1750000", seeded)
	}

	original := DefaultState()
	clone := original.Clone()
	clone.SectionsExpanded["bond"] = false
	if !original.SectionsExpanded["bond"] {
		t.Error("Clone() shares the section map with the original")
	}

	normalized := State{AskingPrice: -1, MonthlyLevies: math.NaN(), LoanTermYears: -3}.Normalize()
	if normalized.AskingPrice != 0 || normalized.MonthlyLevies != 0 || normalized.LoanTermYears != 0 {
		t.Errorf("Normalize() = %+v, expected zeroed fields", normalized)
	}
	if normalized.SectionsExpanded == nil {
		t.Error("Normalize() left a nil section map")
	}
}

func TestRepaymentSchedule(t *testing.T) {
	c := NewCalculator(tariff.Default())

	years, err := c.RepaymentSchedule(scenarioState())
	if err != nil {
		t.Fatalf("RepaymentSchedule() error = %v", err)
	}
	if len(years) != 20 {
		t.Fatalf("expected 20 years, got %d", len(years))
	}
	var paid float64
	for _, year := range years {
		paid += year.Paid
	}
	if !mathutil.WithinTolerance(paid, Summarize(scenarioState()).TotalRepaid, 240) {
		t.Errorf("schedule total %v strays from the summary", paid)
	}

	cash := scenarioState()
	cash.IsBonded = false
	for name, state := range map[string]State{"empty": DefaultState(), "cash": cash} {
		years, err := c.RepaymentSchedule(state)
		if err != nil || years != nil {
			t.Errorf("%s: expected no schedule, got %v, %v", name, years, err)
		}
	}

	bad := scenarioState()
	bad.LoanTermYears = 0
	if _, err := c.RepaymentSchedule(bad); err == nil {
		t.Error("expected an error for a zero term")
	}
}
