package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	WsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "watchroom_ws_connections",
		Help: "Current number of active websocket connections",
	})
	WsCommandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "watchroom_ws_commands_total",
		Help: "Total number of websocket commands by command and outcome",
	}, []string{"command", "outcome"})
	EventsDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "watchroom_events_dropped_total",
		Help: "Room events not delivered because a client send buffer was full",
	})
	CacheDegradedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "watchroom_cache_degraded_total",
		Help: "Cache operations served by the degraded path",
	}, []string{"op"})
	DurableWriteFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "watchroom_durable_write_failures_total",
		Help: "Failed writes to durable storage",
	}, []string{"op"})
	HttpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
	HttpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

func init() {
	prometheus.MustRegister(
		WsConnections,
		WsCommandsTotal,
		EventsDroppedTotal,
		CacheDegradedTotal,
		DurableWriteFailuresTotal,
		HttpRequestsTotal,
		HttpRequestDuration,
	)
}

// Middleware records request count and latency labelled by the chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		labels := prometheus.Labels{"method": r.Method, "path": path, "status": strconv.Itoa(status)}
		HttpRequestsTotal.With(labels).Inc()
		HttpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	})
}
