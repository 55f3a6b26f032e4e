package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for screening runs.
type Metrics struct {
	RunsTotal      *prometheus.CounterVec // labels: status=ok|cancelled|failed
	SymbolsTotal   *prometheus.CounterVec // labels: outcome=qualified|rejected|insufficient_history|trade_plan|fetch_error
	FetchDuration  prometheus.Histogram
	RunDuration    prometheus.Histogram
	LastRunResults prometheus.Gauge
	JournalTrades  *prometheus.GaugeVec // labels: status=Open|Closed
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_runs_total",
			Help: "Screening runs by final status",
		}, []string{"status"}),
		SymbolsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_symbols_total",
			Help: "Screened symbols by outcome",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "screener_fetch_duration_seconds",
			Help:    "Latency of price history fetches",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "screener_run_duration_seconds",
			Help:    "Wall time of complete screening runs",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		LastRunResults: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "screener_last_run_results",
			Help: "Qualifying symbols in the most recent run",
		}),
		JournalTrades: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "screener_journal_trades",
			Help: "Journal entries by status",
		}, []string{"status"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.RunsTotal,
			m.SymbolsTotal,
			m.FetchDuration,
			m.RunDuration,
			m.LastRunResults,
			m.JournalTrades,
		)
	}
	return m
}
