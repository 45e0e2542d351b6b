package client

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const METRICS_NAMESPACE = "studyctl_client"

// Metrics instruments the refresh cycle. A nil *Metrics records nothing.
type Metrics struct {
	Refreshes       *prometheus.CounterVec
	RefreshDuration prometheus.Histogram
	Queued          prometheus.Counter
	Replays         *prometheus.CounterVec
	Terminations    prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Refreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: METRICS_NAMESPACE,
				Name:      "refresh_total",
				Help:      "Credential refresh cycles by result",
			},
			[]string{"result"},
		),
		RefreshDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: METRICS_NAMESPACE,
				Name:      "refresh_duration_seconds",
				Help:      "Duration of credential refresh calls",
				Buckets:   prometheus.DefBuckets,
			},
		),
		Queued: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: METRICS_NAMESPACE,
				Name:      "queued_requests_total",
				Help:      "Requests queued behind an in-flight refresh",
			},
		),
		Replays: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: METRICS_NAMESPACE,
				Name:      "replays_total",
				Help:      "Replayed requests by outcome",
			},
			[]string{"result"},
		),
		Terminations: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: METRICS_NAMESPACE,
				Name:      "session_terminations_total",
				Help:      "Sessions terminated after an unrecoverable refresh failure",
			},
		),
	}
}

func (m *Metrics) refresh(result string, took time.Duration) {
	if m == nil {
		return
	}
	m.Refreshes.WithLabelValues(result).Inc()
	m.RefreshDuration.Observe(took.Seconds())
}

func (m *Metrics) queued() {
	if m == nil {
		return
	}
	m.Queued.Inc()
}

func (m *Metrics) replay(result string) {
	if m == nil {
		return
	}
	m.Replays.WithLabelValues(result).Inc()
}

func (m *Metrics) terminated() {
	if m == nil {
		return
	}
	m.Terminations.Inc()
}
