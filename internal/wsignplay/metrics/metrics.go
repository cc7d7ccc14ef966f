// Package metrics exports player telemetry to Prometheus
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wsignplay"

// Advance reasons
const (
	ReasonTimer      = "timer"
	ReasonMediaEnd   = "media_end"
	ReasonMediaError = "media_error"
	ReasonWatchdog   = "watchdog"
)

// Cache lookup outcomes
const (
	LookupHit    = "hit"
	LookupMiss   = "miss"
	LookupBypass = "bypass"
	LookupError  = "error"
)

// Metrics holds every collector of the player. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	state        *prometheus.GaugeVec
	transitions  *prometheus.CounterVec
	advances     *prometheus.CounterVec
	syncs        *prometheus.CounterVec
	promotions   prometheus.Counter
	cacheLookups *prometheus.CounterVec
	cacheBytes   prometheus.Counter

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates the collectors on a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state",
			Help:      "Current operational state (1 for the active state).",
		}, []string{"state"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Operational state transitions by target state.",
		}, []string{"state"}),
		advances: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advances_total",
			Help:      "Playback advances by trigger.",
		}, []string{"reason"}),
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "syncs_total",
			Help:      "Playlist synchronizations by result.",
		}, []string{"result"}),
		promotions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playlist_promotions_total",
			Help:      "Pending playlists promoted at a loop boundary.",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Media cache lookups by outcome.",
		}, []string{"outcome"}),
		cacheBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "stored_bytes_total",
			Help:      "Bytes written into the media cache.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Local API requests.",
		}, []string{"method", "endpoint", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Local API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "endpoint", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.state, m.transitions, m.advances, m.syncs, m.promotions,
		m.cacheLookups, m.cacheBytes, m.httpRequests, m.httpDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// SetState marks state as the only active state
func (m *Metrics) SetState(state string, all []string) {
	if m == nil {
		return
	}
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		m.state.WithLabelValues(s).Set(v)
	}
	m.transitions.WithLabelValues(state).Inc()
}

// Advance counts a playback advance
func (m *Metrics) Advance(reason string) {
	if m == nil {
		return
	}
	m.advances.WithLabelValues(reason).Inc()
}

// Sync counts a synchronization result
func (m *Metrics) Sync(result string) {
	if m == nil {
		return
	}
	m.syncs.WithLabelValues(result).Inc()
}

// Promotion counts a pending playlist becoming active
func (m *Metrics) Promotion() {
	if m == nil {
		return
	}
	m.promotions.Inc()
}

// CacheLookup counts a media cache lookup
func (m *Metrics) CacheLookup(outcome string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(outcome).Inc()
}

// CacheStored counts bytes written into the cache
func (m *Metrics) CacheStored(n int64) {
	if m == nil {
		return
	}
	m.cacheBytes.Add(float64(n))
}

// ObserveRequest records one local API request
func (m *Metrics) ObserveRequest(method, endpoint, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, endpoint, status).Inc()
	m.httpDuration.WithLabelValues(method, endpoint, status).Observe(seconds)
}
