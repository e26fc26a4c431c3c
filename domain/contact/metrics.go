package contact

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type contactMetrics struct {
	submissions   *prometheus.CounterVec
	relayDuration prometheus.Histogram
}

// newContactMetrics registers on reg when given; a nil reg keeps the
// collectors local, which is what tests and metrics-disabled runs use.
func newContactMetrics(reg prometheus.Registerer) *contactMetrics {
	m := &contactMetrics{
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contact_submissions_total",
				Help: "Contact form submissions by outcome.",
			},
			[]string{"outcome"},
		),
		relayDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "contact_relay_duration_seconds",
				Help:    "Time spent handing a contact email to the relay.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
	}

	if reg == nil {
		return m
	}

	m.submissions = registerOrReuse(reg, m.submissions)
	m.relayDuration = registerOrReuse(reg, m.relayDuration)
	return m
}

func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}

func (m *contactMetrics) observe(outcome string) {
	m.submissions.WithLabelValues(outcome).Inc()
}
