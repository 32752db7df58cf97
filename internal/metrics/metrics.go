package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for SymbolAnalyses.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePanic   = "panic"
)

// Metrics holds the Prometheus metrics for the analysis engine.
// Every method is safe to call on a nil *Metrics.
type Metrics struct {
	GroupRuns      *prometheus.CounterVec // labels: group
	SymbolAnalyses *prometheus.CounterVec // labels: outcome
	FetchTimeouts  prometheus.Counter
	GroupDuration  prometheus.Histogram
	FetchDuration  *prometheus.HistogramVec // labels: provider
	AlertsFired    *prometheus.CounterVec   // labels: condition

	gatherer prometheus.Gatherer
}

// NewMetrics registers the metrics with reg and returns them. A nil reg uses the
// default Prometheus registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		GroupRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signaldesk_group_runs_total",
			Help: "Group analysis runs completed",
		}, []string{"group"}),
		SymbolAnalyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signaldesk_symbol_analyses_total",
			Help: "Symbol analyses by outcome",
		}, []string{"outcome"}),
		FetchTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signaldesk_fetch_timeouts_total",
			Help: "Market data fetches that hit the deadline",
		}),
		GroupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signaldesk_group_duration_seconds",
			Help:    "Wall time of a group analysis run",
			Buckets: prometheus.DefBuckets,
		}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "signaldesk_fetch_duration_seconds",
			Help:    "Market data fetch latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"provider"}),
		AlertsFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signaldesk_alerts_total",
			Help: "Alerts raised by condition",
		}, []string{"condition"}),
	}

	reg.MustRegister(
		m.GroupRuns,
		m.SymbolAnalyses,
		m.FetchTimeouts,
		m.GroupDuration,
		m.FetchDuration,
		m.AlertsFired,
	)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	} else {
		m.gatherer = prometheus.DefaultGatherer
	}
	return m
}

func (m *Metrics) ObserveGroup(groupID string, d time.Duration) {
	if m == nil {
		return
	}
	m.GroupRuns.WithLabelValues(groupID).Inc()
	m.GroupDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveSymbol(outcome string) {
	if m == nil {
		return
	}
	m.SymbolAnalyses.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveFetch(provider string, d time.Duration, timedOut bool) {
	if m == nil {
		return
	}
	m.FetchDuration.WithLabelValues(provider).Observe(d.Seconds())
	if timedOut {
		m.FetchTimeouts.Inc()
	}
}

func (m *Metrics) ObserveAlert(condition string) {
	if m == nil {
		return
	}
	m.AlertsFired.WithLabelValues(condition).Inc()
}

// Handler serves the registry the metrics were registered with.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
