// Package metrics exposes Prometheus instrumentation for the agent.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eclipse-fog05/plugin-net-linuxbridge/internal/logging"
)

var (
	once     sync.Once
	registry *Registry
)

// Registry holds all agent metrics.
type Registry struct {
	// RPC metrics
	RPCRequests *prometheus.CounterVec
	RPCLatency  *prometheus.HistogramVec

	// Link metrics
	LinksCreated *prometheus.CounterVec
	LinksDeleted prometheus.Counter

	// DHCP metrics
	DHCPRuns *prometheus.CounterVec

	// Lifecycle
	Uptime prometheus.Gauge
}

// Get returns the global metrics registry, creating it if necessary.
func Get() *Registry {
	once.Do(func() {
		registry = newRegistry()
	})
	return registry
}

func newRegistry() *Registry {
	r := &Registry{}

	r.RPCRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nsmgr_rpc_requests_total",
		Help: "Control plane RPC requests by method and outcome",
	}, []string{"method", "outcome"})

	r.RPCLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nsmgr_rpc_duration_seconds",
		Help:    "Control plane RPC request duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	r.LinksCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nsmgr_links_created_total",
		Help: "Virtual links created by kind",
	}, []string{"kind"})

	r.LinksDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nsmgr_links_deleted_total",
		Help: "Virtual links deleted",
	})

	r.DHCPRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nsmgr_dhcp_runs_total",
		Help: "DHCP client invocations by outcome",
	}, []string{"outcome"})

	r.Uptime = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nsmgr_uptime_seconds",
		Help: "Seconds since the agent started serving",
	})

	return r
}

// ObserveRPC records one RPC request.
func (r *Registry) ObserveRPC(method, outcome string, elapsed time.Duration) {
	r.RPCRequests.WithLabelValues(method, outcome).Inc()
	r.RPCLatency.WithLabelValues(method).Observe(elapsed.Seconds())
}

// Serve exposes the default Prometheus handler on addr. It blocks, so callers
// run it in a goroutine. An empty addr disables the endpoint.
func Serve(addr string) error {
	if addr == "" {
		return nil
	}
	log := logging.WithComponent("metrics")
	log.Info("metrics endpoint listening", "addr", addr)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
