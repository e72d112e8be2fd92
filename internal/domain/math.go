package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	fiatPrecision = 2
	btcPrecision  = 8
)

// MaxInputExponent bounds the decimal exponent of free-text input. Larger exponents make
// decimal rescaling allocate 10^exp.
const MaxInputExponent = 30

// InputState classifies a free-text numeric field after parsing.
type InputState int

const (
	InputMissing InputState = iota
	InputInvalid
	InputOutOfRange
	InputOK
)

// ParseInput parses a free-text numeric field. Surrounding whitespace is ignored.
// Blank input is InputMissing; anything decimal cannot parse (including "NaN") is InputInvalid.
// A number whose exponent lies outside ±MaxInputExponent is InputOutOfRange.
func ParseInput(value string) (decimal.Decimal, InputState) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, InputMissing
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, InputInvalid
	}
	if exp := d.Exponent(); exp > MaxInputExponent || exp < -MaxInputExponent {
		return decimal.Zero, InputOutOfRange
	}
	return d, InputOK
}

// SafeParse parses a string into a decimal, returning zero for invalid or empty input.
func SafeParse(value string) decimal.Decimal {
	d, _ := ParseInput(value)
	return d
}

// RoundFiat rounds a fiat amount to two decimal places for display and export.
func RoundFiat(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(fiatPrecision)
}

// FormatBTC renders a BTC quantity with satoshi precision, stripping trailing zeros.
func FormatBTC(v float64) string {
	s := decimal.NewFromFloat(v).Round(btcPrecision).StringFixed(btcPrecision)
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}
