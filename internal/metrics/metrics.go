package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "familyhub_http_requests_total",
		Help: "Total number of HTTP requests processed.",
	}, []string{"method", "route"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "familyhub_http_request_duration_seconds",
		Help:    "Histogram of latencies for HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "familyhub_hass_requests_total",
		Help: "Requests issued to Home Assistant, by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	upstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "familyhub_hass_request_duration_seconds",
		Help:    "Histogram of Home Assistant request latencies.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	syncsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "familyhub_sync_total",
		Help: "Calendar sync cycles, by result (ok, partial, error, stale).",
	}, []string{"result"})

	remoteEvents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "familyhub_remote_events",
		Help: "Number of remote-derived events currently held.",
	})
)

// Middleware records request metrics labelled by chi route pattern.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			// The route pattern is only complete after routing has run.
			route := routePattern(r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			httpRequestsTotal.WithLabelValues(r.Method, route).Inc()
			httpRequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
		})
	}
}

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveUpstream records one Home Assistant request. endpoint is a fixed
// label ("probe", "discovery", "events"), never a URL.
func ObserveUpstream(endpoint, outcome string, start time.Time) {
	upstreamRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	upstreamLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// ObserveSync counts one sync cycle.
func ObserveSync(result string) {
	syncsTotal.WithLabelValues(result).Inc()
}

// SetRemoteEvents sets the remote event gauge.
func SetRemoteEvents(n int) {
	remoteEvents.Set(float64(n))
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := strings.TrimSpace(rctx.RoutePattern()); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
