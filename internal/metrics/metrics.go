package metrics

import (
	"time"

	"rgehrsitz/draftcheck/internal/runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for evaluations.
type Metrics struct {
	// Verdicts by final category
	Verdicts *prometheus.CounterVec

	// Outcomes by rule category
	Outcomes *prometheus.CounterVec

	// Chaining rounds per evaluation
	ChainRounds prometheus.Histogram

	// Evaluations that hit the round cap
	NonConverged prometheus.Counter

	EvaluateLatency prometheus.Histogram

	// Malformed rules in the loaded catalog
	CatalogDefects prometheus.Gauge
}

// New registers the evaluation metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Verdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "draftcheck_verdicts_total",
			Help: "Total verdicts by final category",
		}, []string{"final"}),

		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "draftcheck_outcomes_total",
			Help: "Total terminal outcomes by category",
		}, []string{"category"}),

		ChainRounds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "draftcheck_chain_rounds",
			Help:    "Chaining rounds per evaluation",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10},
		}),

		NonConverged: factory.NewCounter(prometheus.CounterOpts{
			Name: "draftcheck_chain_nonconverged_total",
			Help: "Evaluations that stopped at the round cap without reaching fixpoint",
		}),

		EvaluateLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "draftcheck_evaluate_duration_seconds",
			Help:    "Duration of a full evaluation",
			Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025},
		}),

		CatalogDefects: factory.NewGauge(prometheus.GaugeOpts{
			Name: "draftcheck_catalog_defects",
			Help: "Number of malformed rules in the loaded catalog",
		}),
	}
}

// ObserveEvaluation records a finished evaluation.
func (m *Metrics) ObserveEvaluation(v *runtime.Verdict, d time.Duration) {
	if m == nil || v == nil {
		return
	}
	m.Verdicts.WithLabelValues(string(v.Final)).Inc()
	for _, o := range v.Outcomes {
		m.Outcomes.WithLabelValues(string(o.Category)).Inc()
	}
	m.ChainRounds.Observe(float64(v.Rounds))
	if !v.Converged {
		m.NonConverged.Inc()
	}
	m.EvaluateLatency.Observe(d.Seconds())
}

// SetCatalogDefects records the defect count of the loaded catalog.
func (m *Metrics) SetCatalogDefects(n int) {
	if m != nil {
		m.CatalogDefects.Set(float64(n))
	}
}
