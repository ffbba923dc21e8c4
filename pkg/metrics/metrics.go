// Package metrics exposes Prometheus collectors for the highlight engine.
//
// Every method is safe on a nil *Metrics, so components take an optional
// collector without branching at each call site.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Highlight kinds used as label values.
const (
	KindEntity = "entity"
	KindBlock  = "block"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "glow").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registerer to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the collectors.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithRegistry sets the Prometheus registerer.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "glow",
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the engine collectors.
type Metrics struct {
	rewrites             *prometheus.CounterVec
	rewriteErrors        *prometheus.CounterVec
	forcedUpdates        prometheus.Counter
	teamRejoins          prometheus.Counter
	activeHighlights     *prometheus.GaugeVec
	activeTokens         prometheus.Gauge
	attachedInterceptors prometheus.Gauge
}

// New creates and registers the collectors. It panics if they are already
// registered with the chosen registerer, like promauto does.
func New(opts ...Option) *Metrics {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		rewrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "rewrites_total",
			Help:        "Host entity data packets whose glowing bit was rewritten",
			ConstLabels: config.ConstLabels,
		}, []string{"glowing"}),

		rewriteErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "rewrite_errors_total",
			Help:        "Outbound packets that could not be decoded and were forwarded unchanged",
			ConstLabels: config.ConstLabels,
		}, []string{"packet"}),

		forcedUpdates: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "forced_updates_total",
			Help:        "Entity data packets generated by the engine",
			ConstLabels: config.ConstLabels,
		}),

		teamRejoins: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "team_rejoins_total",
			Help:        "Engine team re-joins appended after host team changes",
			ConstLabels: config.ConstLabels,
		}),

		activeHighlights: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_highlights",
			Help:        "Registry entries currently held",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		activeTokens: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_team_tokens",
			Help:        "Engine color teams currently created on observers",
			ConstLabels: config.ConstLabels,
		}),

		attachedInterceptors: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "attached_interceptors",
			Help:        "Observer connections with the interceptor installed",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Rewrite counts a rewritten host packet.
func (m *Metrics) Rewrite(glowing bool) {
	if m == nil {
		return
	}
	label := "false"
	if glowing {
		label = "true"
	}
	m.rewrites.WithLabelValues(label).Inc()
}

// RewriteError counts a packet forwarded unchanged after a decode failure.
func (m *Metrics) RewriteError(packet string) {
	if m == nil {
		return
	}
	m.rewriteErrors.WithLabelValues(packet).Inc()
}

// ForcedUpdate counts an engine-generated entity data packet.
func (m *Metrics) ForcedUpdate() {
	if m == nil {
		return
	}
	m.forcedUpdates.Inc()
}

// TeamRejoin counts a re-join appended after a host team change.
func (m *Metrics) TeamRejoin() {
	if m == nil {
		return
	}
	m.teamRejoins.Inc()
}

// AddHighlights adjusts the active highlight gauge for kind.
func (m *Metrics) AddHighlights(kind string, delta int) {
	if m == nil || delta == 0 {
		return
	}
	m.activeHighlights.WithLabelValues(kind).Add(float64(delta))
}

// AddTokens adjusts the active token gauge.
func (m *Metrics) AddTokens(delta int) {
	if m == nil || delta == 0 {
		return
	}
	m.activeTokens.Add(float64(delta))
}

// AddInterceptors adjusts the attached interceptor gauge.
func (m *Metrics) AddInterceptors(delta int) {
	if m == nil || delta == 0 {
		return
	}
	m.attachedInterceptors.Add(float64(delta))
}
