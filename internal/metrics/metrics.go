// Package metrics exposes the portal's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry and the portal collectors. It implements
// the observer interfaces of the store, prober and health monitor.
type Metrics struct {
	reg *prometheus.Registry

	storeWrites  *prometheus.CounterVec
	probes       *prometheus.CounterVec
	probeLatency *prometheus.HistogramVec
	cycles       *prometheus.CounterVec
	cycleLatency *prometheus.HistogramVec
	reachable    *prometheus.GaugeVec
	httpRequests *prometheus.CounterVec
	buildInfo    *prometheus.GaugeVec
}

// New registers every collector on a fresh registry.
func New(version string) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		storeWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_store_writes_total",
			Help: "Document writes by kind and result.",
		}, []string{"kind", "result"}),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_probes_total",
			Help: "Reachability probes by method and outcome.",
		}, []string{"method", "outcome"}),
		probeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_probe_duration_seconds",
			Help:    "Latency of single reachability probes.",
			Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 8},
		}, []string{"method"}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_health_cycles_total",
			Help: "Completed health check cycles by mode.",
		}, []string{"mode"}),
		cycleLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_health_cycle_duration_seconds",
			Help:    "Duration of health check cycles by mode.",
			Buckets: prometheus.DefBuckets,
		}, []string{"mode"}),
		reachable: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "portal_health_targets",
			Help: "Targets of the last cycle by reachability.",
		}, []string{"reachable"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "portal_build_info",
			Help: "Build info of the portal server.",
		}, []string{"version"}),
	}

	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.storeWrites, m.probes, m.probeLatency,
		m.cycles, m.cycleLatency, m.reachable,
		m.httpRequests, m.buildInfo,
	)
	m.buildInfo.WithLabelValues(version).Set(1)
	return m
}

// Registry returns the registry, for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// StoreWrite implements store.WriteObserver.
func (m *Metrics) StoreWrite(kind string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.storeWrites.WithLabelValues(kind, result).Inc()
}

// ProbeDone implements probe.Observer.
func (m *Metrics) ProbeDone(method string, reachable bool, elapsed time.Duration) {
	outcome := "unreachable"
	if reachable {
		outcome = "reachable"
	}
	m.probes.WithLabelValues(method, outcome).Inc()
	m.probeLatency.WithLabelValues(method).Observe(elapsed.Seconds())
}

// CycleDone implements health.Observer.
func (m *Metrics) CycleDone(mode string, probed, reachable int, elapsed time.Duration) {
	m.cycles.WithLabelValues(mode).Inc()
	m.cycleLatency.WithLabelValues(mode).Observe(elapsed.Seconds())
	m.reachable.WithLabelValues("true").Set(float64(reachable))
	m.reachable.WithLabelValues("false").Set(float64(probed - reachable))
}

// HTTPRequest counts one served request.
func (m *Metrics) HTTPRequest(method string, code int) {
	m.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}
