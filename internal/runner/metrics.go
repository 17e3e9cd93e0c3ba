package runner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"svw.info/playfair/internal/domain"
)

// Metrics are the runner's prometheus collectors.
type Metrics struct {
	Episodes   *prometheus.CounterVec
	Steps      prometheus.Histogram
	Placed     prometheus.Histogram
	Agreement  prometheus.Histogram
	Violations prometheus.Counter
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// Labels: "success", "failure"
		Episodes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "keyenv_episodes_total",
			Help: "Finished episodes by outcome",
		}, []string{"outcome"}),
		Steps: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "keyenv_episode_steps",
			Help:    "Resolved digraph pairs per episode",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 40, 50},
		}),
		Placed: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "keyenv_episode_placed_letters",
			Help:    "Letters placed in the table when the episode ended",
			Buckets: prometheus.LinearBuckets(0, 5, 6),
		}),
		Agreement: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "keyenv_episode_key_agreement",
			Help:    "Placed letters consistent with the true key",
			Buckets: prometheus.LinearBuckets(0, 5, 6),
		}),
		Violations: f.NewCounter(prometheus.CounterOpts{
			Name: "keyenv_grid_invariant_violations_total",
			Help: "Episodes whose final grid failed validation",
		}),
	}
}

// Observe records a finished episode. A nil Metrics is a no-op.
func (m *Metrics) Observe(rec domain.Record) {
	if m == nil {
		return
	}
	m.Episodes.WithLabelValues(rec.Status.String()).Inc()
	m.Steps.Observe(float64(len(rec.Steps)))
	m.Placed.Observe(float64(rec.Placed))
	m.Agreement.Observe(float64(rec.Agreement))
}
