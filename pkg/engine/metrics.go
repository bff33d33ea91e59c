package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes engine execution counters to Prometheus. All methods are
// nil-receiver safe so an engine without metrics pays no cost.
type Metrics struct {
	executions      *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	registeredRules prometheus.Gauge
}

// NewMetrics creates and registers the engine metric set. If registerer is
// nil the default Prometheus registerer is used.
func NewMetrics(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "reliq"
	}
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "rule_executions_total",
			Help:      "Rule executions by rule id and outcome (met, unmet, error, skipped).",
		}, []string{"rule_id", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "rule_duration_seconds",
			Help:      "Rule execution duration.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"rule_id"}),
		registeredRules: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "registered_rules",
			Help:      "Number of rules in the registry.",
		}),
	}

	registerer.MustRegister(m.executions, m.duration, m.registeredRules)
	return m
}

func (m *Metrics) observeExecution(ruleID string, res *Result, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "unmet"
	switch {
	case res.Error != "":
		outcome = "error"
	case !res.Executed:
		outcome = "skipped"
	case res.ConditionsMet:
		outcome = "met"
	}
	m.executions.WithLabelValues(ruleID, outcome).Inc()
	m.duration.WithLabelValues(ruleID).Observe(elapsed.Seconds())
}

func (m *Metrics) setRegistered(n int) {
	if m == nil {
		return
	}
	m.registeredRules.Set(float64(n))
}
