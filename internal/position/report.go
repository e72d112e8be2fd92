package position

import (
	"fmt"
	"time"

	"github.com/fineflow77/btclti/internal/domain"
	"github.com/fineflow77/btclti/internal/powerlaw"
)

// Report is a dated assessment of a spot quote against one model variant.
type Report struct {
	Date      time.Time      `json:"date"`
	Variant   domain.Variant `json:"variant"`
	Currency  string         `json:"currency"`
	PriceFiat float64        `json:"priceFiat"`
	Assessment
}

// AssessAt evaluates priceUSD against the model curves on date.
func AssessAt(priceUSD float64, date time.Time, variant domain.Variant) (Assessment, error) {
	m, err := powerlaw.For(variant)
	if err != nil {
		return Assessment{}, err
	}
	p, err := m.Project(domain.DaysSinceGenesis(date))
	if err != nil {
		return Assessment{}, fmt.Errorf("projecting %s: %w", date.Format(time.DateOnly), err)
	}
	return Assess(priceUSD, p.MedianUSD, p.SupportUSD), nil
}

// ReportQuote assesses a spot quote on the day it was fetched.
func ReportQuote(q domain.SpotQuote, variant domain.Variant) (Report, error) {
	a, err := AssessAt(q.PriceUSD.InexactFloat64(), q.FetchedAt, variant)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Date:       q.FetchedAt,
		Variant:    variant,
		Currency:   q.Currency,
		PriceFiat:  q.PriceFiat.InexactFloat64(),
		Assessment: a,
	}, nil
}
