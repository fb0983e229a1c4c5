// Package metrics exposes Prometheus instrumentation for the dashboard.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dispensary"

// Registry bundles the collectors registered by the service.
type Registry struct {
	reg      *prometheus.Registry
	Upstream *Upstream
	http     *prometheus.HistogramVec
}

// New creates a registry with process and Go runtime collectors.
func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Latency of dashboard HTTP requests by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "status"})
	reg.MustRegister(httpDuration)

	return &Registry{
		reg:      reg,
		Upstream: NewUpstream(reg),
		http:     httpDuration,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Middleware records request latency labelled by chi route pattern, so
// /pedidos/12 and /pedidos/13 share one series.
func (r *Registry) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)

		next.ServeHTTP(ww, req)

		route := "unmatched"
		if rctx := chi.RouteContext(req.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		r.http.WithLabelValues(route, req.Method, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}

// Upstream tracks calls to the inventory API.
type Upstream struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewUpstream registers the upstream collectors with reg.
func NewUpstream(reg prometheus.Registerer) *Upstream {
	u := &Upstream{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Requests sent to the inventory API by endpoint and outcome.",
		}, []string{"endpoint", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of inventory API requests by endpoint.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 40},
		}, []string{"endpoint"}),
	}
	reg.MustRegister(u.requests, u.duration)
	return u
}

// Observe records one call. status is the HTTP status code, or "error"
// when no response was received. A nil Upstream records nothing.
func (u *Upstream) Observe(endpoint, status string, d time.Duration) {
	if u == nil {
		return
	}
	u.requests.WithLabelValues(endpoint, status).Inc()
	u.duration.WithLabelValues(endpoint).Observe(d.Seconds())
}
