package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder counts bridge calls using Prometheus.
type Recorder struct {
	calls     *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	lastPrice *prometheus.GaugeVec
}

// New creates a recorder registered on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Recorder{
		calls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinbridge_calls_total",
				Help: "Total number of bridge calls by resource and outcome",
			},
			[]string{"resource", "outcome"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coinbridge_call_duration_seconds",
				Help:    "Duration of bridge calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"resource"},
		),
		lastPrice: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "coinbridge_last_price",
				Help: "Most recent price returned for a symbol",
			},
			[]string{"symbol"},
		),
	}
}

// ObserveCall records one finished call.
func (r *Recorder) ObserveCall(resource, outcome string, d time.Duration) {
	r.calls.WithLabelValues(resource, outcome).Inc()
	r.latency.WithLabelValues(resource).Observe(d.Seconds())
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}
