package advisory

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts advisory calls. A nil *Metrics records nothing.
type Metrics struct {
	requests  *prometheus.CounterVec
	duration  prometheus.Histogram
	discarded prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kero_advisory_requests_total",
				Help: "Advisory calls by outcome.",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kero_advisory_duration_seconds",
			Help:    "Advisory call latency.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 90},
		}),
		discarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kero_advisory_stale_discarded_total",
			Help: "Advisory results dropped because the ration changed meanwhile.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.duration, m.discarded)
	}
	return m
}

func (m *Metrics) observe(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
}

func (m *Metrics) Discarded() {
	if m == nil {
		return
	}
	m.discarded.Inc()
}

// Outcome maps an advisory error to a metrics label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMissingCredential):
		return "missing_credential"
	case errors.Is(err, ErrInvalidCredential):
		return "invalid_credential"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}

type instrumented struct {
	next Advisor
	m    *Metrics
}

// Instrument wraps adv so every call is counted and timed.
func Instrument(adv Advisor, m *Metrics) Advisor {
	if m == nil {
		return adv
	}
	return instrumented{next: adv, m: m}
}

func (i instrumented) Advise(ctx context.Context, req Request) (Suggestion, error) {
	start := time.Now()
	s, err := i.next.Advise(ctx, req)
	i.m.observe(Outcome(err), time.Since(start))
	return s, err
}
