package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Query outcomes recorded in kotae_pipeline_queries_total.
const (
	outcomeOK       = "ok"
	outcomeDegraded = "degraded"
)

// Metrics records pipeline activity. A nil *Metrics records nothing.
type Metrics struct {
	queries       *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	degraded      *prometheus.CounterVec
}

// NewMetrics registers the pipeline metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		queries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kotae",
				Subsystem: "pipeline",
				Name:      "queries_total",
				Help:      "Total number of answered questions by route and outcome",
			},
			[]string{"route", "outcome"},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "kotae",
				Subsystem: "pipeline",
				Name:      "stage_duration_seconds",
				Help:      "Duration of pipeline stages in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"stage"},
		),
		degraded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kotae",
				Subsystem: "pipeline",
				Name:      "degraded_total",
				Help:      "Total number of stage failures recovered into a degraded answer",
			},
			[]string{"kind"},
		),
	}
}

func (m *Metrics) observeStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) recordQuery(route, outcome string) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(route, outcome).Inc()
}

func (m *Metrics) recordDegraded(kind Kind) {
	if m == nil {
		return
	}
	m.degraded.WithLabelValues(string(kind)).Inc()
}
