package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchTotal counts provider requests by source and outcome.
	FetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_fetch_total",
		Help: "Market data requests by source and result.",
	}, []string{"source", "result"})

	// TickerSkipped counts tickers dropped from a ratio batch.
	TickerSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_ticker_skipped_total",
		Help: "Tickers skipped from a ratio batch after a fetch or shape failure.",
	}, []string{"ticker"})

	// LastRefresh is the unix time of the last completed refresh.
	LastRefresh = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dashboard_last_refresh_timestamp_seconds",
		Help: "Unix time of the last completed dashboard refresh.",
	})

	// RefreshDuration observes full refresh runs.
	RefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dashboard_refresh_duration_seconds",
		Help:    "Duration of a full ratio and volume refresh.",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
	})
)

// ObserveFetch records the outcome of one provider request.
func ObserveFetch(source string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	FetchTotal.WithLabelValues(source, result).Inc()
}
