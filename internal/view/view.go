// Package view builds the full calculator layout from a state. It is the
// structural re-render entry point; value-only edits can patch an existing
// layout from a session Update instead.
package view

import (
	"strings"

	"github.com/iwvelando/property-costs/pkg/constants"
	"github.com/iwvelando/property-costs/pkg/costs"
	"github.com/iwvelando/property-costs/pkg/format"
	"github.com/iwvelando/property-costs/pkg/input"
	"github.com/iwvelando/property-costs/pkg/tariff"
)

// Line is one labelled amount.
type Line struct {
	ID      string  `json:"id"`
	Label   string  `json:"label"`
	Amount  float64 `json:"amount"`
	Display string  `json:"display"`
}

// Section is a collapsible group of lines.
type Section struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Expanded bool   `json:"expanded"`
	Lines    []Line `json:"lines"`
	Total    *Line  `json:"total,omitempty"`
}

// Rate keeps the slider and the text field on the same stored value.
type Rate struct {
	Percent        float64 `json:"percent"`
	SliderPosition float64 `json:"sliderPosition"`
	SliderMin      float64 `json:"sliderMin"`
	SliderMax      float64 `json:"sliderMax"`
	Step           float64 `json:"step"`
	Text           string  `json:"text"`
}

// Layout is everything a UI needs to draw the calculator.
type Layout struct {
	Empty      bool      `json:"empty"`
	Sections   []Section `json:"sections"`
	Rate       Rate      `json:"rate"`
	LoanTerms  []int     `json:"loanTerms"`
	GrandTotal Line      `json:"grandTotal"`
}

// Build lays out state priced by calc. The bond section and the bond lines
// exist only while the purchase is bonded. A nil calc uses the canonical
// tariffs.
func Build(state costs.State, calc *costs.Calculator) Layout {
	if calc == nil {
		calc = costs.NewCalculator(tariff.Default())
	}
	breakdown := calc.Compute(state)

	layout := Layout{
		Empty:     breakdown.Empty,
		Rate:      rate(state.InterestRatePercent),
		LoanTerms: append([]int(nil), constants.LoanTermsYears...),
	}

	layout.Sections = append(layout.Sections, Section{
		Name:     constants.SectionProperty,
		Title:    "property",
		Expanded: state.SectionsExpanded[constants.SectionProperty],
		Lines: []Line{
			line("askingPrice", "asking price", state.AskingPrice),
		},
	})

	if state.IsBonded {
		layout.Sections = append(layout.Sections, Section{
			Name:     constants.SectionBond,
			Title:    "bond",
			Expanded: state.SectionsExpanded[constants.SectionBond],
			Lines: []Line{
				line("loanAmount", "loan amount", state.LoanAmount),
				{ID: "interestRate", Label: "interest rate", Amount: state.InterestRatePercent, Display: format.Percent(state.InterestRatePercent)},
				{ID: "loanTermYears", Label: "loan term", Amount: float64(state.LoanTermYears), Display: format.Years(state.LoanTermYears)},
			},
		})
		if !breakdown.Empty {
			summary := calc.Summarize(state)
			bond := &layout.Sections[len(layout.Sections)-1]
			bond.Lines = append(bond.Lines,
				line("totalRepaid", "total repaid over term", summary.TotalRepaid),
				line("totalInterest", "total interest", summary.TotalInterest),
			)
		}
	}

	monthly := Section{
		Name:     constants.SectionMonthly,
		Title:    "monthly costs",
		Expanded: state.SectionsExpanded[constants.SectionMonthly],
	}
	if state.IsBonded {
		monthly.Lines = append(monthly.Lines, line("bondRepayment", "bond repayment", breakdown.Monthly.BondRepayment))
	}
	monthly.Lines = append(monthly.Lines,
		line("ratesAndTaxes", "rates and taxes", breakdown.Monthly.RatesAndTaxes),
		line("utilities", "utilities", breakdown.Monthly.Utilities),
		line("levies", "levies", breakdown.Monthly.Levies),
	)
	monthlyTotal := line("monthlyTotal", "total per month", breakdown.Monthly.Total)
	monthly.Total = &monthlyTotal
	layout.Sections = append(layout.Sections, monthly)

	onceOff := Section{
		Name:     constants.SectionOnceOff,
		Title:    "once-off costs",
		Expanded: state.SectionsExpanded[constants.SectionOnceOff],
		Lines: []Line{
			line("transferDuty", "transfer duty", breakdown.OnceOff.TransferDuty),
			line("transferAttorneyFees", "transfer attorney fees", breakdown.OnceOff.TransferAttorneyFees),
			line("deedsOfficeFees", "deeds office fees", breakdown.OnceOff.DeedsOfficeFees),
		},
	}
	if state.IsBonded {
		onceOff.Lines = append(onceOff.Lines, line("bondRegistrationCost", "bond registration", breakdown.OnceOff.BondRegistrationCost))
	}
	onceOffTotal := line("onceOffTotal", "total once-off", breakdown.OnceOff.Total)
	onceOff.Total = &onceOffTotal
	layout.Sections = append(layout.Sections, onceOff)

	// Cash needed on transfer: the deposit plus the once-off costs.
	deposit := state.AskingPrice
	if state.IsBonded {
		deposit -= state.LoanAmount
		if deposit < 0 {
			deposit = 0
		}
	}
	if breakdown.Empty {
		deposit = 0
	}
	layout.GrandTotal = line("cashRequired", "cash required on transfer", deposit+breakdown.OnceOff.Total)

	return layout
}

// Section returns the named section and whether it is visible.
func (l Layout) Section(name string) (Section, bool) {
	for _, s := range l.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

func line(id, label string, amount float64) Line {
	return Line{ID: id, Label: label, Amount: amount, Display: format.Currency(amount)}
}

func rate(pct float64) Rate {
	r := Rate{
		Percent:        pct,
		SliderPosition: input.SliderPosition(pct),
		SliderMin:      constants.MinInterestRatePercent,
		SliderMax:      constants.MaxSliderInterestRatePercent,
		Step:           constants.InterestRateStep,
	}
	if pct > 0 {
		r.Text = strings.TrimSuffix(format.Percent(pct), "%")
	}
	return r
}
