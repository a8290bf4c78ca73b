package pkg

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HttpRequestCounter tracks total HTTP requests by handler, method, and status code.
var HttpRequestCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of HTTP requests received",
}, []string{"handler", "method", "status"})

// HttpRequestDuration tracks request latency by handler, method, and status code.
var HttpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "http_request_duration_seconds",
	Help:    "HTTP request latency in seconds",
	Buckets: prometheus.DefBuckets,
}, []string{"handler", "method", "status"})

// StoreRequestCounter tracks session store calls by backend, operation, and outcome.
var StoreRequestCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "session_store_requests_total",
	Help: "Total number of session store requests",
}, []string{"backend", "operation", "status"})

// StoreRequestDuration tracks session store latency by backend, operation, and outcome.
var StoreRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "session_store_request_duration_seconds",
	Help:    "Session store request latency in seconds",
	Buckets: prometheus.DefBuckets,
}, []string{"backend", "operation", "status"})

// CacheLookupCounter tracks Redis cache lookups by result (hit, miss, error).
var CacheLookupCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "session_cache_lookups_total",
	Help: "Total number of session cache lookups",
}, []string{"result"})

// RegisterMetrics registers all application metrics with the provided registry.
func RegisterMetrics(reg *prometheus.Registry) {
	reg.MustRegister(
		HttpRequestCounter,
		HttpRequestDuration,
		StoreRequestCounter,
		StoreRequestDuration,
		CacheLookupCounter,
	)
}

func observeHTTPRequest(handler, method string, status int, duration time.Duration) {
	statusLabel := strconv.Itoa(status)
	HttpRequestCounter.WithLabelValues(handler, method, statusLabel).Inc()
	HttpRequestDuration.WithLabelValues(handler, method, statusLabel).Observe(duration.Seconds())
}

func observeStoreRequest(backend, operation string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionNotFound):
			status = "not_found"
		case errors.Is(err, context.DeadlineExceeded):
			status = "timeout"
		default:
			status = "error"
		}
	}
	StoreRequestCounter.WithLabelValues(backend, operation, status).Inc()
	StoreRequestDuration.WithLabelValues(backend, operation, status).Observe(duration.Seconds())
}

func observeCacheLookup(result string) {
	CacheLookupCounter.WithLabelValues(result).Inc()
}
