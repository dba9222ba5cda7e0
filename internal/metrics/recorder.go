// Package metrics exposes training progress as Prometheus metrics and dumps
// them in the node_exporter textfile format once a run ends.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"fare-rl-go/internal/engine"
)

const namespace = "farerl"

// Recorder turns trainer snapshots into metrics on its own registry. It is
// safe for concurrent use, so parallel workers may share one.
type Recorder struct {
	registry *prometheus.Registry

	episodes        prometheus.Counter
	explorations    prometheus.Counter
	runs            *prometheus.CounterVec
	episodeRevenue  prometheus.Histogram
	episodeSold     prometheus.Histogram
	episodeSteps    prometheus.Histogram
	statesVisited   prometheus.Gauge
	explorationRate prometheus.Gauge
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		episodes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "episodes_total",
			Help:      "Completed training episodes",
		}),
		explorations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "explorations_total",
			Help:      "Pricing decisions taken at random",
		}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished training runs by final status",
		}, []string{"status"}),
		episodeRevenue: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "episode_revenue",
			Help:      "Revenue collected per episode",
			Buckets:   prometheus.ExponentialBuckets(100, 2, 12),
		}),
		episodeSold: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "episode_seats_sold",
			Help:      "Seats sold per episode",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		}),
		episodeSteps: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "episode_steps",
			Help:      "Time steps taken per episode",
			Buckets:   prometheus.LinearBuckets(1, 4, 8),
		}),
		statesVisited: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "states_visited",
			Help:      "Distinct states in the most recently reporting Q-table, the merged one once a run is done",
		}),
		explorationRate: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "exploration_rate",
			Help:      "Exploration rate used by the most recent episode",
		}),
	}
}

// Registry returns the gatherer holding the recorder's metrics.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Observe records one snapshot. Episode snapshots feed the per-episode
// metrics; terminal snapshots count the run, and a done snapshot carries the
// final table size.
func (r *Recorder) Observe(s engine.Snapshot) {
	switch s.Status {
	case engine.StatusEpisodeComplete:
		r.episodes.Inc()
		r.explorations.Add(float64(s.Explorations))
		r.episodeRevenue.Observe(s.EpisodeRevenue)
		r.episodeSold.Observe(float64(s.SeatsSold))
		r.episodeSteps.Observe(float64(s.EpisodeSteps))
		r.statesVisited.Set(float64(s.StatesVisited))
		r.explorationRate.Set(s.ExplorationRate)
	case engine.StatusDone:
		r.runs.WithLabelValues(s.Status).Inc()
		r.statesVisited.Set(float64(s.StatesVisited))
	default:
		r.runs.WithLabelValues(s.Status).Inc()
	}
}

// WriteTextfile writes every metric to path, replacing it atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
