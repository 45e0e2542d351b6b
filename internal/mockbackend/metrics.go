package mockbackend

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const METRICS_NAMESPACE = "studyctl_mock"

type metrics struct {
	requests  *prometheus.CounterVec
	refreshes *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)

	return &metrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: METRICS_NAMESPACE,
				Name:      "requests_total",
				Help:      "Handled requests by route and status code",
			},
			[]string{"route", "code"},
		),
		refreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: METRICS_NAMESPACE,
				Name:      "token_refresh_total",
				Help:      "Token refresh requests by result",
			},
			[]string{"result"},
		),
	}
}

type codeRecorder struct {
	http.ResponseWriter
	code int
}

func (cr *codeRecorder) WriteHeader(code int) {
	cr.code = code
	cr.ResponseWriter.WriteHeader(code)
}

func (m *metrics) instrument(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &codeRecorder{ResponseWriter: w, code: http.StatusOK}
		next(rec, r)
		m.requests.WithLabelValues(r.Pattern, strconv.Itoa(rec.code)).Inc()
	}
}
