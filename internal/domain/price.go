package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Variant selects the post-transition growth assumption of the price model.
type Variant string

const (
	VariantStandard     Variant = "standard"
	VariantConservative Variant = "conservative"
)

// ParseVariant maps user input to a Variant. Blank input selects VariantStandard.
func ParseVariant(s string) (Variant, error) {
	switch Variant(strings.ToLower(strings.TrimSpace(s))) {
	case "", VariantStandard:
		return VariantStandard, nil
	case VariantConservative:
		return VariantConservative, nil
	default:
		return "", fmt.Errorf("unknown price model variant %q", s)
	}
}

// PricePoint is a single daily USD closing price from the history provider.
type PricePoint struct {
	Date     time.Time `json:"date"`
	PriceUSD float64   `json:"priceUsd"`
}

// SpotQuote is a point-in-time BTC price in USD and in the user's local currency.
type SpotQuote struct {
	Currency  string          `json:"currency"`
	PriceUSD  decimal.Decimal `json:"priceUsd"`
	PriceFiat decimal.Decimal `json:"priceFiat"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

// ExchangeRate returns local currency units per USD derived from the two prices.
// Returns zero when the USD price is zero.
func (q SpotQuote) ExchangeRate() decimal.Decimal {
	if q.PriceUSD.IsZero() {
		return decimal.Zero
	}
	return q.PriceFiat.Div(q.PriceUSD)
}
