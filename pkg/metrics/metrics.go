// Package metrics holds the Prometheus collectors of the content agent.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the agent.
type Metrics struct {
	ReconcilePasses   prometheus.Counter
	ReconcileDuration prometheus.Histogram
	RuleApplications  *prometheus.CounterVec
	RuleErrors        *prometheus.CounterVec
	MutationBatches   *prometheus.CounterVec
	Reloads           prometheus.Counter
	WatcherObserving  prometheus.Gauge
}

// New creates the metrics and registers them with reg. A nil reg registers
// nothing, which keeps tests and one-shot commands free of global state.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ReconcilePasses: factory.NewCounter(prometheus.CounterOpts{
			Name: "pagekeeper_reconcile_passes_total",
			Help: "Total number of reconcile passes run against the page",
		}),
		ReconcileDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pagekeeper_reconcile_duration_seconds",
			Help:    "Duration of reconcile passes",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		RuleApplications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pagekeeper_rule_applications_total",
			Help: "Total number of times each rule was applied",
		}, []string{"rule"}),
		RuleErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pagekeeper_rule_errors_total",
			Help: "Total number of rule applications that returned an error or panicked",
		}, []string{"rule"}),
		MutationBatches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pagekeeper_mutation_batches_total",
			Help: "Total number of mutation batches delivered, by whether they triggered a pass",
		}, []string{"triggered"}),
		Reloads: factory.NewCounter(prometheus.CounterOpts{
			Name: "pagekeeper_reloads_total",
			Help: "Total number of page reloads caused by settings changes",
		}),
		WatcherObserving: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pagekeeper_watcher_observing",
			Help: "1 while the change watcher is subscribed to the page, 0 otherwise",
		}),
	}
}

// ObservePass records one completed reconcile pass.
func (m *Metrics) ObservePass(seconds float64) {
	m.ReconcilePasses.Inc()
	m.ReconcileDuration.Observe(seconds)
}

// IncrementRule records one application of rule.
func (m *Metrics) IncrementRule(rule string) {
	m.RuleApplications.WithLabelValues(rule).Inc()
}

// IncrementRuleError records one failed application of rule.
func (m *Metrics) IncrementRuleError(rule string) {
	m.RuleErrors.WithLabelValues(rule).Inc()
}

// IncrementBatch records one delivered mutation batch.
func (m *Metrics) IncrementBatch(triggered bool) {
	label := "false"
	if triggered {
		label = "true"
	}
	m.MutationBatches.WithLabelValues(label).Inc()
}

// IncrementReloads records one settings-driven reload.
func (m *Metrics) IncrementReloads() {
	m.Reloads.Inc()
}

// SetObserving records the watcher state.
func (m *Metrics) SetObserving(observing bool) {
	if observing {
		m.WatcherObserving.Set(1)
		return
	}
	m.WatcherObserving.Set(0)
}
