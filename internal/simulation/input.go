package simulation

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/fineflow77/btclti/internal/domain"
)

// TargetYear is the last year of every ledger unless the accumulation window extends past it.
const TargetYear = 2050

// MaxYears bounds the accumulation contribution window.
const MaxYears = 50

// MinAsOfYear is the first year whose January 1st lies after the genesis block.
const MinAsOfYear = 2010

// InitialKind tags which initial holding field of an AccumulationInput applies.
type InitialKind string

const (
	InitialBTC  InitialKind = "btc"
	InitialFiat InitialKind = "fiat"
)

// PolicyKind selects how a decumulation phase withdraws.
type PolicyKind string

const (
	// PolicyFixed withdraws a fixed after-tax fiat amount every month.
	PolicyFixed PolicyKind = "fixed"
	// PolicyPercentage withdraws a share of the remaining balance every year.
	PolicyPercentage PolicyKind = "percentage"
)

// AccumulationInput carries the free-text form fields of an accumulation run.
type AccumulationInput struct {
	InitialType         InitialKind `json:"initialType" yaml:"initialType"`
	InitialBTC          string      `json:"initialBtc" yaml:"initialBtc"`
	InitialFiat         string      `json:"initialFiat" yaml:"initialFiat"`
	MonthlyContribution string      `json:"monthlyContribution" yaml:"monthlyContribution"`
	Years               string      `json:"years" yaml:"years"`
	Variant             string      `json:"variant" yaml:"variant"`
	ExchangeRate        string      `json:"exchangeRate" yaml:"exchangeRate"`
	InflationRate       string      `json:"inflationRate" yaml:"inflationRate"`
}

// PolicyInput is one withdrawal policy as entered. Amount applies to PolicyFixed, Rate to
// PolicyPercentage.
type PolicyInput struct {
	Type   PolicyKind `json:"type" yaml:"type"`
	Amount string     `json:"amount,omitempty" yaml:"amount,omitempty"`
	Rate   string     `json:"rate,omitempty" yaml:"rate,omitempty"`
}

// SecondPhaseInput switches the withdrawal policy from Year on.
type SecondPhaseInput struct {
	Year   string      `json:"year" yaml:"year"`
	Policy PolicyInput `json:"policy" yaml:"policy"`
}

// DecumulationInput carries the free-text form fields of a decumulation run. A nil
// SecondPhase disables the second phase.
type DecumulationInput struct {
	InitialBTC    string            `json:"initialBtc" yaml:"initialBtc"`
	StartYear     string            `json:"startYear" yaml:"startYear"`
	Variant       string            `json:"variant" yaml:"variant"`
	Policy        PolicyInput       `json:"policy" yaml:"policy"`
	SecondPhase   *SecondPhaseInput `json:"secondPhase,omitempty" yaml:"secondPhase,omitempty"`
	TaxRate       string            `json:"taxRate" yaml:"taxRate"`
	ExchangeRate  string            `json:"exchangeRate" yaml:"exchangeRate"`
	InflationRate string            `json:"inflationRate" yaml:"inflationRate"`
}

// Accumulation is a validated AccumulationInput.
type Accumulation struct {
	InitialKind         InitialKind
	InitialAmount       float64
	MonthlyContribution float64
	Years               int
	Variant             domain.Variant
	ExchangeRate        float64
	InflationRate       float64
}

// Policy is a validated withdrawal policy.
type Policy struct {
	Kind        PolicyKind
	MonthlyFiat float64
	Rate        float64
}

// Decumulation is a validated DecumulationInput. SecondPhaseYear is zero when the second
// phase is disabled.
type Decumulation struct {
	InitialBTC      float64
	StartYear       int
	Variant         domain.Variant
	Policy          Policy
	SecondPolicy    Policy
	SecondPhaseYear int
	TaxRate         float64
	ExchangeRate    float64
	InflationRate   float64
}

func (d Decumulation) secondPhaseEnabled() bool { return d.SecondPhaseYear != 0 }

type validator struct {
	fields map[string]string
}

func newValidator() *validator {
	return &validator{fields: make(map[string]string)}
}

func (v *validator) fail(field, msg string) {
	if _, ok := v.fields[field]; !ok {
		v.fields[field] = msg
	}
}

func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}

// number parses a required numeric field.
func (v *validator) number(field, raw string) (decimal.Decimal, bool) {
	d, state := domain.ParseInput(raw)
	switch state {
	case domain.InputMissing:
		v.fail(field, "is required")
		return d, false
	case domain.InputInvalid:
		v.fail(field, "must be a number")
		return d, false
	case domain.InputOutOfRange:
		v.fail(field, "is out of range")
		return d, false
	}
	return d, true
}

// float converts a validated decimal, rejecting values float64 cannot carry. A non-zero
// decimal that rounds to 0 is rejected too.
func (v *validator) float(field string, d decimal.Decimal) float64 {
	f := d.InexactFloat64()
	if math.IsInf(f, 0) || math.IsNaN(f) || (f == 0 && !d.IsZero()) {
		v.fail(field, "is out of range")
		return 0
	}
	return f
}

func (v *validator) positive(field, raw string) float64 {
	d, ok := v.number(field, raw)
	if !ok {
		return 0
	}
	if !d.IsPositive() {
		v.fail(field, "must be greater than 0")
		return 0
	}
	return v.float(field, d)
}

func (v *validator) nonNegative(field, raw string) float64 {
	d, ok := v.number(field, raw)
	if !ok {
		return 0
	}
	if d.IsNegative() {
		v.fail(field, "must not be negative")
		return 0
	}
	return v.float(field, d)
}

// between accepts (low, high] or, with lowInclusive, [low, high].
func (v *validator) between(field, raw string, low, high int64, lowInclusive bool) float64 {
	d, ok := v.number(field, raw)
	if !ok {
		return 0
	}
	lower := decimal.NewFromInt(low)
	belowRange := d.LessThan(lower) || (!lowInclusive && d.Equal(lower))
	if belowRange || d.GreaterThan(decimal.NewFromInt(high)) {
		bracket := "["
		if !lowInclusive {
			bracket = "("
		}
		v.fail(field, fmt.Sprintf("must be within %s%d, %d]", bracket, low, high))
		return 0
	}
	return v.float(field, d)
}

func (v *validator) integer(field, raw string, low, high int) int {
	d, ok := v.number(field, raw)
	if !ok {
		return 0
	}
	if !d.IsInteger() {
		v.fail(field, "must be a whole number")
		return 0
	}
	if d.LessThan(decimal.NewFromInt(int64(low))) || d.GreaterThan(decimal.NewFromInt(int64(high))) {
		v.fail(field, fmt.Sprintf("must be between %d and %d", low, high))
		return 0
	}
	return int(d.IntPart())
}

// asOfYear checks the first simulated year against [MinAsOfYear, TargetYear].
func (v *validator) asOfYear(year int) {
	if year < MinAsOfYear || year > TargetYear {
		v.fail("asOfYear", fmt.Sprintf("must be between %d and %d", MinAsOfYear, TargetYear))
	}
}

// checkAsOfYear returns a *ValidationError for an asOfYear outside the model horizon.
func checkAsOfYear(year int) error {
	v := newValidator()
	v.asOfYear(year)
	return v.err()
}

func (v *validator) variant(field, raw string) domain.Variant {
	variant, err := domain.ParseVariant(raw)
	if err != nil {
		v.fail(field, "must be standard or conservative")
	}
	return variant
}

func (v *validator) policy(prefix string, in PolicyInput) Policy {
	switch in.Type {
	case PolicyFixed:
		return Policy{Kind: PolicyFixed, MonthlyFiat: v.positive(prefix+".amount", in.Amount)}
	case PolicyPercentage:
		return Policy{Kind: PolicyPercentage, Rate: v.between(prefix+".rate", in.Rate, 0, 100, false)}
	default:
		v.fail(prefix+".type", "must be fixed or percentage")
		return Policy{}
	}
}

// ValidateAccumulation checks every field of in and returns the parsed inputs, or a
// *ValidationError naming each failing field.
func ValidateAccumulation(in AccumulationInput) (Accumulation, error) {
	v := newValidator()
	out := Accumulation{InitialKind: in.InitialType}

	switch in.InitialType {
	case "", InitialBTC:
		out.InitialKind = InitialBTC
		out.InitialAmount = v.nonNegative("initialBtc", in.InitialBTC)
	case InitialFiat:
		out.InitialAmount = v.nonNegative("initialFiat", in.InitialFiat)
	default:
		v.fail("initialType", "must be btc or fiat")
	}

	out.MonthlyContribution = v.positive("monthlyContribution", in.MonthlyContribution)
	out.Years = v.integer("years", in.Years, 1, MaxYears)
	out.Variant = v.variant("variant", in.Variant)
	out.ExchangeRate = v.positive("exchangeRate", in.ExchangeRate)
	out.InflationRate = v.nonNegative("inflationRate", in.InflationRate)

	if err := v.err(); err != nil {
		return Accumulation{}, err
	}
	return out, nil
}

// ValidateDecumulation checks every field of in against asOfYear and returns the parsed
// inputs, or a *ValidationError naming each failing field.
func ValidateDecumulation(in DecumulationInput, asOfYear int) (Decumulation, error) {
	v := newValidator()
	var out Decumulation

	v.asOfYear(asOfYear)
	out.InitialBTC = v.nonNegative("initialBtc", in.InitialBTC)
	out.StartYear = v.integer("startYear", in.StartYear, asOfYear, TargetYear)
	out.Variant = v.variant("variant", in.Variant)
	out.Policy = v.policy("policy", in.Policy)

	if in.SecondPhase != nil {
		out.SecondPolicy = v.policy("secondPhase", in.SecondPhase.Policy)
		year := v.integer("secondPhase.year", in.SecondPhase.Year, asOfYear, TargetYear)
		if year != 0 && out.StartYear != 0 && year <= out.StartYear {
			v.fail("secondPhase.year", "must be after the start year")
		}
		out.SecondPhaseYear = year
	}

	out.TaxRate = v.between("taxRate", in.TaxRate, 0, 100, true)
	out.ExchangeRate = v.positive("exchangeRate", in.ExchangeRate)
	out.InflationRate = v.nonNegative("inflationRate", in.InflationRate)

	if err := v.err(); err != nil {
		return Decumulation{}, err
	}
	return out, nil
}
