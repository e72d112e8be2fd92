package simulation

import (
	"fmt"

	"github.com/fineflow77/btclti/internal/domain"
	"github.com/fineflow77/btclti/internal/powerlaw"
)

// Phase tags which withdrawal policy produced a ledger row.
type Phase string

const (
	PhaseNone Phase = "—"
	PhaseOne  Phase = "phase 1"
	PhaseTwo  Phase = "phase 2"
)

// Withdrawal is one year's sale. ValueFiat is what the holder keeps after tax.
type Withdrawal struct {
	EffectiveRate float64 `json:"effectiveRate"`
	ValueFiat     float64 `json:"valueFiat"`
	BTC           float64 `json:"btc"`
}

// DecumulationRecord is one year of a decumulation ledger. Withdrawal is nil for years
// before the start year. TotalValueFiat values the balance before that year's withdrawal.
type DecumulationRecord struct {
	Year           int         `json:"year"`
	BTCPriceFiat   float64     `json:"btcPriceFiat"`
	Withdrawal     *Withdrawal `json:"withdrawal"`
	RemainingBTC   float64     `json:"remainingBtc"`
	TotalValueFiat float64     `json:"totalValueFiat"`
	Phase          Phase       `json:"phase"`
}

// RunDecumulation validates in against asOfYear and simulates it.
func RunDecumulation(in DecumulationInput, asOfYear int) ([]DecumulationRecord, error) {
	d, err := ValidateDecumulation(in, asOfYear)
	if err != nil {
		return nil, err
	}
	return Decumulate(d, asOfYear)
}

// Decumulate walks every year from asOfYear to TargetYear, withdrawing from StartYear on.
// The ledger stops after the year the balance reaches zero. A fixed withdrawal the balance
// cannot cover fails the whole run.
func Decumulate(d Decumulation, asOfYear int) ([]DecumulationRecord, error) {
	if err := checkAsOfYear(asOfYear); err != nil {
		return nil, err
	}
	model, err := powerlaw.For(d.Variant)
	if err != nil {
		return nil, err
	}
	pricer := newLocalPricer(model, d.ExchangeRate, d.InflationRate, asOfYear)

	remaining := d.InitialBTC
	records := make([]DecumulationRecord, 0, TargetYear-asOfYear+1)

	for year := asOfYear; year <= TargetYear; year++ {
		price, err := pricer.at(year)
		if err != nil {
			return nil, err
		}

		rec := DecumulationRecord{
			Year:           year,
			BTCPriceFiat:   price,
			TotalValueFiat: remaining * price,
			Phase:          PhaseNone,
		}
		if year < d.StartYear {
			rec.RemainingBTC = remaining
			records = append(records, rec)
			continue
		}

		policy, phase := d.Policy, PhaseOne
		if d.secondPhaseEnabled() && year >= d.SecondPhaseYear {
			policy, phase = d.SecondPolicy, PhaseTwo
		}

		w, err := withdraw(policy, remaining, price, d.TaxRate, year)
		if err != nil {
			return nil, err
		}
		remaining = max(0, remaining-w.BTC)

		rec.Withdrawal = &w
		rec.RemainingBTC = remaining
		rec.Phase = phase
		records = append(records, rec)

		if remaining <= 0 {
			break
		}
	}
	return records, nil
}

func withdraw(p Policy, remaining, price, taxPct float64, year int) (Withdrawal, error) {
	switch p.Kind {
	case PolicyFixed:
		annual := p.MonthlyFiat * monthsPerYear
		gross := annual * (1 + taxPct/100)
		btc := gross / price
		if btc > remaining {
			return Withdrawal{}, &ComputationError{
				Year: year,
				Msg: fmt.Sprintf("withdrawal of %s BTC exceeds remaining balance of %s BTC",
					domain.FormatBTC(btc), domain.FormatBTC(remaining)),
			}
		}
		return Withdrawal{EffectiveRate: btc / remaining * 100, ValueFiat: annual, BTC: btc}, nil

	case PolicyPercentage:
		btc := min(remaining*(p.Rate/100), remaining)
		return Withdrawal{
			EffectiveRate: p.Rate,
			ValueFiat:     btc * price * (1 - taxPct/100),
			BTC:           btc,
		}, nil

	default:
		return Withdrawal{}, &ComputationError{Year: year, Msg: fmt.Sprintf("unknown withdrawal policy %q", p.Kind)}
	}
}
