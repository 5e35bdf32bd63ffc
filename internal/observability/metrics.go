package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	validationsTotal   *prometheus.CounterVec
	threatMatchesTotal *prometheus.CounterVec
	ratelimitDenials   prometheus.Counter
	eventsDropped      prometheus.Counter
	remoteFallbacks    prometheus.Counter
	validationDuration prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		validationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "chatguard_validations_total", Help: "Total validated messages"},
			[]string{"outcome"},
		),
		threatMatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "chatguard_threat_matches_total", Help: "Total threat pattern matches"},
			[]string{"category"},
		),
		ratelimitDenials: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "chatguard_ratelimit_denials_total", Help: "Total rate limited messages"},
		),
		eventsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "chatguard_events_dropped_total", Help: "Security events evicted from the ring"},
		),
		remoteFallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "chatguard_remote_fallbacks_total", Help: "Remote validations that fell back to local checks"},
		),
		validationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chatguard_validation_duration_seconds",
				Help:    "Validation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.validationsTotal,
		m.threatMatchesTotal,
		m.ratelimitDenials,
		m.eventsDropped,
		m.remoteFallbacks,
		m.validationDuration,
	)

	return m
}

func (m *Metrics) Handler(reg *prometheus.Registry) http.Handler {
	if reg == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// ObserveValidation records one finished validation. category is empty
// for outcomes without a pattern match.
func (m *Metrics) ObserveValidation(outcome, category string, duration time.Duration) {
	if m == nil {
		return
	}

	m.validationsTotal.WithLabelValues(outcome).Inc()
	m.validationDuration.Observe(duration.Seconds())
	if category != "" {
		m.threatMatchesTotal.WithLabelValues(category).Inc()
	}
}

func (m *Metrics) RateLimitDenied() {
	if m == nil {
		return
	}
	m.ratelimitDenials.Inc()
}

func (m *Metrics) EventDropped() {
	if m == nil {
		return
	}
	m.eventsDropped.Inc()
}

func (m *Metrics) RemoteFallback() {
	if m == nil {
		return
	}
	m.remoteFallbacks.Inc()
}
