package simulation

import (
	"github.com/fineflow77/btclti/internal/powerlaw"
)

const monthsPerYear = 12

// AccumulationRecord is one year of an accumulation ledger.
type AccumulationRecord struct {
	Year                   int     `json:"year"`
	BTCPriceFiat           float64 `json:"btcPriceFiat"`
	AnnualContributionFiat float64 `json:"annualContributionFiat"`
	BTCPurchased           float64 `json:"btcPurchased"`
	BTCHeld                float64 `json:"btcHeld"`
	TotalValueFiat         float64 `json:"totalValueFiat"`
	InContributionWindow   bool    `json:"inContributionWindow"`
}

// RunAccumulation validates in and simulates it from asOfYear.
func RunAccumulation(in AccumulationInput, asOfYear int) ([]AccumulationRecord, error) {
	a, err := ValidateAccumulation(in)
	if yearErr := checkAsOfYear(asOfYear); yearErr != nil {
		return nil, mergeValidation(err, yearErr)
	}
	if err != nil {
		return nil, err
	}
	return Accumulate(a, asOfYear)
}

// Accumulate buys monthly*12 of BTC at every January 1st model price while the contribution
// window is open and records holdings through max(TargetYear, asOfYear+Years).
func Accumulate(a Accumulation, asOfYear int) ([]AccumulationRecord, error) {
	if err := checkAsOfYear(asOfYear); err != nil {
		return nil, err
	}
	model, err := powerlaw.For(a.Variant)
	if err != nil {
		return nil, err
	}
	pricer := newLocalPricer(model, a.ExchangeRate, a.InflationRate, asOfYear)

	held := a.InitialAmount
	if a.InitialKind == InitialFiat {
		initialPrice, err := pricer.nominal(asOfYear)
		if err != nil {
			return nil, err
		}
		held = a.InitialAmount / initialPrice
	}

	windowEnd := asOfYear + a.Years
	lastYear := max(TargetYear, windowEnd)
	records := make([]AccumulationRecord, 0, lastYear-asOfYear+1)

	for year := asOfYear; year <= lastYear; year++ {
		price, err := pricer.at(year)
		if err != nil {
			return nil, err
		}

		inWindow := year < windowEnd
		var contribution float64
		if inWindow {
			contribution = a.MonthlyContribution * monthsPerYear
		}
		purchased := contribution / price
		held += purchased

		records = append(records, AccumulationRecord{
			Year:                   year,
			BTCPriceFiat:           price,
			AnnualContributionFiat: contribution,
			BTCPurchased:           purchased,
			BTCHeld:                held,
			TotalValueFiat:         held * price,
			InContributionWindow:   inWindow,
		})
	}
	return records, nil
}
