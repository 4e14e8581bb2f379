// Package metrics exposes Prometheus metrics for the game loop.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// tickBuckets spans a few milliseconds up to a detector-bound tick, in seconds.
var tickBuckets = []float64{.001, .0025, .005, .01, .025, .05, .1, .25}

// Manager owns the game's collectors on its own registry.
type Manager struct {
	namespace string
	registry  *prometheus.Registry

	ticks         prometheus.Counter
	tickLatency   prometheus.Histogram
	detections    *prometheus.CounterVec
	rounds        *prometheus.CounterVec
	missed        prometheus.Counter
	games         *prometheus.CounterVec
	announcements *prometheus.CounterVec
	state         *prometheus.GaugeVec
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithRegistry registers collectors on r instead of a fresh registry.
func WithRegistry(r *prometheus.Registry) Option {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}

// NewManager creates and registers all collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "rpsbattle",
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	auto := promauto.With(m.registry)

	m.ticks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "ticks_total",
		Help:      "Game loop ticks processed",
	})
	m.tickLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "tick_duration_seconds",
		Help:      "Time spent acquiring, classifying and advancing one tick",
		Buckets:   tickBuckets,
	})
	m.detections = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "classifications_total",
		Help:      "Per-tick move classifications",
	}, []string{"move"})
	m.rounds = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "rounds_total",
		Help:      "Resolved rounds by outcome",
	}, []string{"outcome"})
	m.missed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "rounds_missed_total",
		Help:      "Rounds where no move was visible at shoot time",
	})
	m.games = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "games_total",
		Help:      "Finished games by winner",
	}, []string{"winner"})
	m.announcements = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "announcements_total",
		Help:      "Spoken announcements by result",
	}, []string{"result"})
	m.state = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "round_state",
		Help:      "1 for the current round state, 0 otherwise",
	}, []string{"state"})

	return m
}

// Registry returns the registry the collectors live on.
func (m *Manager) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordTick records one processed tick and its duration.
func (m *Manager) RecordTick(d time.Duration) {
	m.ticks.Inc()
	m.tickLatency.Observe(d.Seconds())
}

// RecordClassification counts the move seen on a tick.
func (m *Manager) RecordClassification(move string) {
	m.detections.WithLabelValues(move).Inc()
}

// RecordRound counts a resolved round.
func (m *Manager) RecordRound(outcome string) {
	m.rounds.WithLabelValues(outcome).Inc()
}

// RecordMiss counts a round missed at shoot time.
func (m *Manager) RecordMiss() {
	m.missed.Inc()
}

// RecordGameOver counts a finished game.
func (m *Manager) RecordGameOver(winner string) {
	m.games.WithLabelValues(winner).Inc()
}

// RecordAnnouncement counts a finished announcement. It satisfies speech.Recorder.
func (m *Manager) RecordAnnouncement(err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.announcements.WithLabelValues(result).Inc()
}

// SetState marks current as the active round state among all.
func (m *Manager) SetState(current string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == current {
			v = 1
		}
		m.state.WithLabelValues(s).Set(v)
	}
}
