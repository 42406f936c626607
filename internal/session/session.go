// Package session owns one calculator's state for the lifetime of a UI
// surface: it applies field edits with their derivation rules, recomputes
// the cost breakdown and hands every committed change to the snapshot
// persister.
package session

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/iwvelando/property-costs/pkg/costs"
	"github.com/iwvelando/property-costs/pkg/input"
	"github.com/iwvelando/property-costs/pkg/mathutil"
	"github.com/iwvelando/property-costs/pkg/snapshot"
	"github.com/iwvelando/property-costs/pkg/tariff"
	"go.uber.org/zap"
)

// Field names accepted by Apply.
const (
	FieldAskingPrice     = "askingPrice"
	FieldLoanAmount      = "loanAmount"
	FieldBonded          = "isBonded"
	FieldLoanTerm        = "loanTermYears"
	FieldInterestRate    = "interestRate"
	FieldInterestRateTxt = "interestRateText"
	FieldRatesAndTaxes   = "monthlyRatesAndTaxes"
	FieldUtilities       = "monthlyUtilities"
	FieldLevies          = "monthlyLevies"
)

// ErrUnknownField is returned by Apply for a field it does not handle.
var ErrUnknownField = errors.New("unknown calculator field")

// Update is the result of one edit.
type Update struct {
	State     costs.State     `json:"state"`
	Breakdown costs.Breakdown `json:"breakdown"`
	// Changed is false when the edit left the state as it was; nothing is
	// saved in that case.
	Changed bool `json:"changed"`
	// Structural is set when the set of visible sections changed and the
	// caller should rebuild its layout instead of patching values.
	Structural bool `json:"structural"`
}

// Session is a single calculator. It is not safe for concurrent use; each
// UI surface owns its own Session and key.
type Session struct {
	key        string
	state      costs.State
	committed  costs.State
	loanEdited bool

	calculator *costs.Calculator
	persister  *snapshot.Persister
	logger     *zap.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCalculator prices the session against a non-default tariff schedule.
func WithCalculator(c *costs.Calculator) Option {
	return func(s *Session) {
		if c != nil {
			s.calculator = c
		}
	}
}

// WithPersister saves every committed change through p.
func WithPersister(p *snapshot.Persister) Option {
	return func(s *Session) {
		s.persister = p
	}
}

// New starts a session on state under key.
func New(key string, state costs.State, opts ...Option) *Session {
	s := &Session{
		key:        key,
		state:      state.Normalize(),
		calculator: costs.NewCalculator(tariff.Default()),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.committed = s.state.Clone()
	return s
}

// Open restores the session saved under key. When there is no snapshot,
// or it cannot be read, the session starts from fallback, normally the
// defaults seeded with the listed price. A nil adapter always starts from
// fallback.
func Open(ctx context.Context, adapter *snapshot.Adapter, key string, fallback costs.State, opts ...Option) *Session {
	s := New(key, fallback, opts...)
	if adapter == nil {
		return s
	}

	state, err := adapter.Load(ctx, key)
	switch {
	case err == nil:
		s.state = state
		s.committed = state.Clone()
		// A restored loan that differs from the price was typed by the user.
		s.loanEdited = state.IsBonded && state.LoanAmount != state.AskingPrice
		s.logger.Debug("restored calculator session",
			zap.String("op", "session.Open"),
			zap.String("key", key),
		)
	case errors.Is(err, snapshot.ErrNotFound):
		s.logger.Debug("no saved calculator session, using defaults",
			zap.String("op", "session.Open"),
			zap.String("key", key),
			zap.Float64("askingPrice", fallback.AskingPrice),
		)
	default:
		s.logger.Warn("failed to restore calculator session, using defaults",
			zap.String("op", "session.Open"),
			zap.String("key", key),
			zap.Error(err),
		)
	}
	return s
}

// Key returns the snapshot key the session saves under.
func (s *Session) Key() string {
	return s.key
}

// State returns a copy of the current state.
func (s *Session) State() costs.State {
	return s.state.Clone()
}

// LoanAmountEdited reports whether the user typed a loan amount since the
// price last drove it.
func (s *Session) LoanAmountEdited() bool {
	return s.loanEdited
}

// Calculator returns the calculator the session prices with.
func (s *Session) Calculator() *costs.Calculator {
	return s.calculator
}

// Breakdown recomputes the costs for the current state without touching
// the store. It is cheap enough to call on every keystroke.
func (s *Session) Breakdown() costs.Breakdown {
	b, warnings := s.calculator.Evaluate(s.state)
	for _, w := range warnings {
		s.logger.Warn("data quality: "+w,
			zap.String("op", "session.Breakdown"),
			zap.String("key", s.key),
		)
	}
	return b
}

// SetAskingPrice sets the price. While the loan amount has not been typed
// by the user, a bonded loan follows the price.
func (s *Session) SetAskingPrice(v float64) Update {
	s.state.AskingPrice = mathutil.NonNegative(v)
	if s.state.IsBonded && !s.loanEdited {
		s.state.LoanAmount = s.state.AskingPrice
	}
	return s.commit(false)
}

// SetLoanAmount sets the loan and stops the price from overwriting it.
func (s *Session) SetLoanAmount(v float64) Update {
	s.state.LoanAmount = mathutil.NonNegative(v)
	s.loanEdited = true
	return s.commit(false)
}

// ToggleBonded switches bond financing on or off. Switching on resets the
// loan to the asking price; repeating the current choice keeps the loan.
func (s *Session) ToggleBonded(bonded bool) Update {
	changed := s.state.IsBonded != bonded
	if !changed {
		return s.commit(false)
	}
	s.state.IsBonded = bonded
	if bonded {
		s.state.LoanAmount = s.state.AskingPrice
	} else {
		s.state.LoanAmount = 0
	}
	s.loanEdited = false
	return s.commit(true)
}

// SetLoanTerm sets the term, snapped to a selectable term.
func (s *Session) SetLoanTerm(years int) Update {
	s.state.LoanTermYears = input.SnapTerm(years)
	return s.commit(false)
}

// SetInterestRate sets the rate from the slider, clamped to [5, 20].
func (s *Session) SetInterestRate(pct float64) Update {
	s.state.InterestRatePercent = input.ClampSliderRate(pct)
	return s.commit(false)
}

// SetInterestRateText sets the rate from the free-text field, which allows
// up to 25%.
func (s *Session) SetInterestRateText(raw string) Update {
	s.state.InterestRatePercent = input.ClampTextRate(input.ParsePercent(raw))
	return s.commit(false)
}

// SetMonthlyRatesAndTaxes sets the municipal rates and taxes.
func (s *Session) SetMonthlyRatesAndTaxes(v float64) Update {
	s.state.MonthlyRatesAndTaxes = mathutil.NonNegative(v)
	return s.commit(false)
}

// SetMonthlyUtilities sets water and electricity.
func (s *Session) SetMonthlyUtilities(v float64) Update {
	s.state.MonthlyUtilities = mathutil.NonNegative(v)
	return s.commit(false)
}

// SetMonthlyLevies sets body corporate or HOA levies.
func (s *Session) SetMonthlyLevies(v float64) Update {
	s.state.MonthlyLevies = mathutil.NonNegative(v)
	return s.commit(false)
}

// ToggleSection flips a section's expanded flag. Costs are unaffected but
// the change is still saved.
func (s *Session) ToggleSection(name string) Update {
	if s.state.SectionsExpanded == nil {
		s.state.SectionsExpanded = make(map[string]bool)
	}
	s.state.SectionsExpanded[name] = !s.state.SectionsExpanded[name]
	return s.commit(false)
}

// Apply routes a raw text edit to the matching setter.
func (s *Session) Apply(field, raw string) (Update, error) {
	switch field {
	case FieldAskingPrice:
		return s.SetAskingPrice(input.ParseAmount(raw)), nil
	case FieldLoanAmount:
		return s.SetLoanAmount(input.ParseAmount(raw)), nil
	case FieldBonded:
		return s.ToggleBonded(input.ParseBool(raw)), nil
	case FieldLoanTerm:
		return s.SetLoanTerm(input.ParseTerm(raw)), nil
	case FieldInterestRate:
		return s.SetInterestRate(input.ParsePercent(raw)), nil
	case FieldInterestRateTxt:
		return s.SetInterestRateText(raw), nil
	case FieldRatesAndTaxes:
		return s.SetMonthlyRatesAndTaxes(input.ParseAmount(raw)), nil
	case FieldUtilities:
		return s.SetMonthlyUtilities(input.ParseAmount(raw)), nil
	case FieldLevies:
		return s.SetMonthlyLevies(input.ParseAmount(raw)), nil
	}
	return Update{}, fmt.Errorf("%w: %q", ErrUnknownField, field)
}

func (s *Session) commit(structural bool) Update {
	update := Update{
		State:      s.state.Clone(),
		Breakdown:  s.Breakdown(),
		Changed:    !reflect.DeepEqual(s.state, s.committed),
		Structural: structural,
	}
	if !update.Changed {
		return update
	}
	s.committed = s.state.Clone()
	if s.persister != nil {
		s.persister.Enqueue(s.key, s.state)
	}
	return update
}

// Save queues the current state for saving even when it has not changed,
// e.g. to create the snapshot for a freshly opened calculator.
func (s *Session) Save() {
	if s.persister != nil {
		s.persister.Enqueue(s.key, s.state)
	}
}
