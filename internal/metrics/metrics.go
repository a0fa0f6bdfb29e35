// Package metrics exposes the gateway's Prometheus instrumentation.
//
// The teacher used prometheus/client_golang as a query client against an
// external Prometheus server to drive model-fallback decisions
// (internal/fallback/service.go). That usage has no home in this spec: the
// Streaming Serving Fabric doesn't pick between model providers on
// observed latency. The dependency is kept but repurposed to its more
// common role — an in-process exporter served on a standalone /metrics
// endpoint via promhttp. /api/v1/stats does not read these metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles every metric the gateway emits, registered against its
// own prometheus.Registry rather than the global default — so multiple
// Gateway instances in one process (as in tests) never collide.
type Registry struct {
	reg *prometheus.Registry

	ConnectionsTotal   prometheus.Counter
	ConnectionsActive  prometheus.Gauge
	RunsStarted        prometheus.Counter
	RunsCompleted      prometheus.Counter
	RunsCancelled      prometheus.Counter
	BlocksEmitted      prometheus.Counter
	SubscriberDropped  prometheus.Counter
	RequestDuration    *prometheus.HistogramVec
}

// New constructs and registers every metric.
func New() *Registry {
	reg := prometheus.NewRegistry()

	m := &Registry{
		reg: reg,
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_connections_total",
			Help: "Total accepted WebSocket connections.",
		}),
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_connections_active",
			Help: "Currently open WebSocket connections.",
		}),
		RunsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_runs_started_total",
			Help: "Total model runs registered.",
		}),
		RunsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_runs_completed_total",
			Help: "Total model runs that reached natural completion.",
		}),
		RunsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_runs_cancelled_total",
			Help: "Total model runs cancelled before completion.",
		}),
		BlocksEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_blocks_emitted_total",
			Help: "Total Block Streamer blocks emitted across all streams.",
		}),
		SubscriberDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_subscriber_events_dropped_total",
			Help: "Total WebSocket run subscriptions dropped after a failed send.",
		}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "HTTP request duration by route and status class.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status_class"}),
	}

	reg.MustRegister(
		m.ConnectionsTotal, m.ConnectionsActive, m.RunsStarted, m.RunsCompleted,
		m.RunsCancelled, m.BlocksEmitted, m.SubscriberDropped, m.RequestDuration,
	)
	return m
}

// Handler returns the /metrics exposition handler for this registry.
func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
