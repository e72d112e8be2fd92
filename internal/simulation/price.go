package simulation

import (
	"math"

	"github.com/fineflow77/btclti/internal/powerlaw"
)

// localPricer converts the model's January 1st USD price into local currency, growing the
// exchange rate by inflation from baseYear on.
type localPricer struct {
	model     *powerlaw.Model
	rate      float64
	inflation float64
	baseYear  int
}

func newLocalPricer(m *powerlaw.Model, rate, inflationPct float64, baseYear int) localPricer {
	return localPricer{model: m, rate: rate, inflation: inflationPct / 100, baseYear: baseYear}
}

// nominal prices year at the unadjusted exchange rate.
func (p localPricer) nominal(year int) (float64, error) {
	usd, err := p.model.PriceAtYear(year)
	if err != nil {
		return 0, &ComputationError{Year: year, Msg: "model price unavailable", Err: err}
	}
	return p.check(year, usd*p.rate)
}

func (p localPricer) at(year int) (float64, error) {
	usd, err := p.model.PriceAtYear(year)
	if err != nil {
		return 0, &ComputationError{Year: year, Msg: "model price unavailable", Err: err}
	}
	adjusted := p.rate * math.Pow(1+p.inflation, float64(year-p.baseYear))
	return p.check(year, usd*adjusted)
}

func (p localPricer) check(year int, price float64) (float64, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, &ComputationError{Year: year, Msg: "BTC price is not a finite number"}
	}
	if price <= 0 {
		return 0, &ComputationError{Year: year, Msg: "BTC price is not positive"}
	}
	return price, nil
}
