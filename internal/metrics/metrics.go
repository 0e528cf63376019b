package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the client's Prometheus series. A nil *Collector is valid
// and records nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	probes       *prometheus.CounterVec
	loads        *prometheus.CounterVec
	loadDuration *prometheus.HistogramVec
	mutations    *prometheus.CounterVec
	requests     *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the collectors on reg and exposes g.
func NewWithRegistry(reg prometheus.Registerer, g prometheus.Gatherer) *Collector {
	c := &Collector{
		gatherer: g,
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bricksync",
			Name:      "probes_total",
			Help:      "Endpoint probes by outcome.",
		}, []string{"result"}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bricksync",
			Name:      "loads_total",
			Help:      "View loads by view and status.",
		}, []string{"view", "status"}),
		loadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bricksync",
			Name:      "load_duration_seconds",
			Help:      "View load latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"view"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bricksync",
			Name:      "mutations_total",
			Help:      "Mutations by operation and outcome.",
		}, []string{"op", "result"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bricksync",
			Name:      "http_requests_total",
			Help:      "Gateway requests by route and status code.",
		}, []string{"method", "route", "code"}),
	}
	reg.MustRegister(c.probes, c.loads, c.loadDuration, c.mutations, c.requests)
	return c
}

func (c *Collector) ObserveProbe(reachable bool) {
	if c == nil {
		return
	}
	c.probes.WithLabelValues(result(reachable)).Inc()
}

func (c *Collector) ObserveLoad(view, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.loads.WithLabelValues(view, status).Inc()
	c.loadDuration.WithLabelValues(view).Observe(d.Seconds())
}

func (c *Collector) ObserveMutation(op string, err error) {
	if c == nil {
		return
	}
	c.mutations.WithLabelValues(op, result(err == nil)).Inc()
}

func (c *Collector) ObserveRequest(method, route, code string) {
	if c == nil {
		return
	}
	c.requests.WithLabelValues(method, route, code).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
