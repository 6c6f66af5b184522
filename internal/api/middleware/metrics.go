package middleware

import (
	"net/http"
	"sync/atomic"
)

// MetricsCollector owns the request and error counters the metrics endpoint
// reports. Status codes >= 400 count as errors.
type MetricsCollector struct {
	requests atomic.Int64
	errors   atomic.Int64
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

// Requests returns the total number of requests seen.
func (mc *MetricsCollector) Requests() int64 { return mc.requests.Load() }

// Errors returns the number of 4xx/5xx responses.
func (mc *MetricsCollector) Errors() int64 { return mc.errors.Load() }

// Middleware counts every request and every error response.
func (mc *MetricsCollector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mc.requests.Add(1)

		rec := newStatusRecorder(w)
		next.ServeHTTP(rec, r)

		if rec.status >= 400 {
			mc.errors.Add(1)
		}
	})
}
