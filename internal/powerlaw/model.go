// Package powerlaw evaluates the Bitcoin power-law price curves.
//
// The median curve is log10(price) = a + b*log10(day). From TransitionYear on, growth relative to
// the January 1st reference of the preceding year is damped by an exponent that decays from 1
// toward the variant's target scale.
package powerlaw

import (
	"errors"
	"fmt"
	"math"

	"github.com/fineflow77/btclti/internal/domain"
)

// TransitionYear is the first calendar year priced with the damped growth exponent.
const TransitionYear = 2039

const referenceYear = TransitionYear - 1

// MaxProjectionSpan bounds the number of years ProjectYears evaluates in one call.
const MaxProjectionSpan = 1000

const (
	supportIntercept = -17.668
	supportSlope     = 5.926
)

// ErrDayOutOfDomain is matched by every DomainError.
var ErrDayOutOfDomain = errors.New("day offset outside model domain")

// DomainError reports a day offset for which log10(day) is undefined or non-positive.
type DomainError struct {
	Day int
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("day offset %d outside model domain (must be >= 1)", e.Day)
}

func (e *DomainError) Is(target error) bool {
	return target == ErrDayOutOfDomain
}

// Params fixes the curve coefficients of one variant.
type Params struct {
	Intercept   float64 `json:"intercept"`
	Slope       float64 `json:"slope"`
	TargetScale float64 `json:"targetScale"`
	DecayRate   float64 `json:"decayRate"`
}

// Both variants share the pre-transition regression; they differ only after TransitionYear.
var variantParams = map[domain.Variant]Params{
	domain.VariantStandard:     {Intercept: -17.016, Slope: 5.845, TargetScale: 0.41, DecayRate: 0.20},
	domain.VariantConservative: {Intercept: -17.016, Slope: 5.845, TargetScale: 0.50, DecayRate: 0.25},
}

// ProjectedPrice is the model output for one day offset.
type ProjectedPrice struct {
	Day        int     `json:"day"`
	Year       int     `json:"year"`
	MedianUSD  float64 `json:"medianUsd"`
	SupportUSD float64 `json:"supportUsd"`
}

// Model evaluates the curves of one variant. The transition reference is computed once at
// construction, so a Model is immutable and safe for concurrent use.
type Model struct {
	variant        domain.Variant
	params         Params
	referenceDay   int
	referencePrice float64
}

var models = func() map[domain.Variant]*Model {
	m := make(map[domain.Variant]*Model, len(variantParams))
	for v, p := range variantParams {
		m[v] = newModel(v, p)
	}
	return m
}()

func newModel(variant domain.Variant, p Params) *Model {
	refDay := domain.DayAtYearStart(referenceYear)
	return &Model{
		variant:        variant,
		params:         p,
		referenceDay:   refDay,
		referencePrice: rawMedian(p, refDay),
	}
}

// For returns the model of the given variant.
func For(variant domain.Variant) (*Model, error) {
	m, ok := models[variant]
	if !ok {
		return nil, fmt.Errorf("unknown price model variant %q", variant)
	}
	return m, nil
}

// Variant returns the variant this model evaluates.
func (m *Model) Variant() domain.Variant { return m.variant }

// Params returns the coefficients of this model.
func (m *Model) Params() Params { return m.params }

// MedianPriceUSD returns the fair-value price at the given day offset.
func (m *Model) MedianPriceUSD(day int) (float64, error) {
	if day < 1 {
		return 0, &DomainError{Day: day}
	}
	raw := rawMedian(m.params, day)
	year := domain.YearOfDay(day)
	if year < TransitionYear {
		return raw, nil
	}

	ref := m.referencePrice
	if ref == 0 {
		ref = 1
	}
	return m.referencePrice * math.Pow(raw/ref, m.scale(year)), nil
}

// SupportPriceUSD returns the historical floor at the given day offset.
func (m *Model) SupportPriceUSD(day int) (float64, error) {
	return SupportPriceUSD(day)
}

// Project evaluates both curves at the given day offset.
func (m *Model) Project(day int) (ProjectedPrice, error) {
	median, err := m.MedianPriceUSD(day)
	if err != nil {
		return ProjectedPrice{}, err
	}
	support, err := SupportPriceUSD(day)
	if err != nil {
		return ProjectedPrice{}, err
	}
	return ProjectedPrice{
		Day:        day,
		Year:       domain.YearOfDay(day),
		MedianUSD:  median,
		SupportUSD: support,
	}, nil
}

// PriceAtYear returns the median price on January 1st of the given year.
func (m *Model) PriceAtYear(year int) (float64, error) {
	return m.MedianPriceUSD(domain.DayAtYearStart(year))
}

// ProjectYears evaluates both curves on January 1st of every year in [from, to].
// Ranges spanning MaxProjectionSpan years or more are rejected.
func (m *Model) ProjectYears(from, to int) ([]ProjectedPrice, error) {
	if to < from || uint64(to)-uint64(from) >= MaxProjectionSpan {
		return nil, fmt.Errorf("invalid year range %d..%d", from, to)
	}
	n := to - from + 1
	out := make([]ProjectedPrice, 0, n)
	for i := range n {
		year := from + i
		p, err := m.Project(domain.DayAtYearStart(year))
		if err != nil {
			return nil, fmt.Errorf("projecting %d: %w", year, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// scale is 1 in the reference year and decays toward TargetScale.
func (m *Model) scale(year int) float64 {
	t := m.params.TargetScale
	return t + (1-t)*math.Exp(-m.params.DecayRate*float64(year-referenceYear))
}

func rawMedian(p Params, day int) float64 {
	return math.Pow(10, p.Intercept+p.Slope*math.Log10(float64(day)))
}

// MedianPriceUSD returns the fair-value price of the given variant at the given day offset.
func MedianPriceUSD(day int, variant domain.Variant) (float64, error) {
	m, err := For(variant)
	if err != nil {
		return 0, err
	}
	return m.MedianPriceUSD(day)
}

// RawMedianPriceUSD returns the undamped median curve, identical for every variant.
func RawMedianPriceUSD(day int) (float64, error) {
	if day < 1 {
		return 0, &DomainError{Day: day}
	}
	return rawMedian(variantParams[domain.VariantStandard], day), nil
}

// SupportPriceUSD returns the support curve, which has no transition adjustment.
func SupportPriceUSD(day int) (float64, error) {
	if day < 1 {
		return 0, &DomainError{Day: day}
	}
	return math.Pow(10, supportIntercept+supportSlope*math.Log10(float64(day))), nil
}
