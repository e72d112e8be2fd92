// Package metrics exposes Prometheus collectors for simulation runs and quote refreshes.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Simulation outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeInvalid     = "invalid"
	OutcomeComputation = "computation_error"
)

var (
	simulationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "btclti_simulations_total",
			Help: "Simulation runs by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	simulationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "btclti_simulation_duration_seconds",
			Help:    "Wall time of a simulation run",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05},
		},
		[]string{"kind"},
	)

	quoteFetchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "btclti_quote_fetch_failures_total",
			Help: "Failed spot or history fetches per provider",
		},
		[]string{"provider", "resource"},
	)

	spotPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "btclti_spot_price",
			Help: "Last fetched BTC spot price",
		},
		[]string{"currency"},
	)
)

func init() {
	prometheus.MustRegister(simulationsTotal)
	prometheus.MustRegister(simulationDuration)
	prometheus.MustRegister(quoteFetchFailures)
	prometheus.MustRegister(spotPrice)
}

// Handler serves the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordSimulation counts one run of kind ("accumulation" or "decumulation").
func RecordSimulation(kind, outcome string, elapsed time.Duration) {
	simulationsTotal.WithLabelValues(kind, outcome).Inc()
	simulationDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// RecordFetchFailure counts a failed provider call. resource is "spot" or "history".
func RecordFetchFailure(provider, resource string) {
	quoteFetchFailures.WithLabelValues(provider, resource).Inc()
}

// UpdateSpotPrice sets the last fetched spot price for currency.
func UpdateSpotPrice(currency string, price float64) {
	spotPrice.WithLabelValues(currency).Set(price)
}
