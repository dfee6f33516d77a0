// Package metrics holds the application's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "opscore",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opscore",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "opscore",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	entrySubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opscore",
			Subsystem: "entries",
			Name:      "submissions_total",
			Help:      "Total number of draft-to-approved submissions.",
		},
		[]string{"submodule", "status"},
	)

	allocatorAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opscore",
			Subsystem: "docnum",
			Name:      "allocation_attempts_total",
			Help:      "Counter compare-and-swap attempts by outcome.",
		},
		[]string{"outcome"},
	)

	autosaveFlushes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opscore",
			Subsystem: "autosave",
			Name:      "flushes_total",
			Help:      "Autosave flush attempts by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		entrySubmissions,
		allocatorAttempts,
		autosaveFlushes,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordSubmission records a draft-to-approved submission outcome.
func RecordSubmission(submodule string, success bool) {
	if submodule == "" {
		submodule = "unknown"
	}
	status := "error"
	if success {
		status = "ok"
	}
	entrySubmissions.WithLabelValues(submodule, status).Inc()
}

// RecordAllocationAttempt records one counter compare-and-swap outcome.
func RecordAllocationAttempt(outcome string) {
	allocatorAttempts.WithLabelValues(outcome).Inc()
}

// RecordAutosaveFlush records an autosave flush outcome.
func RecordAutosaveFlush(success bool) {
	outcome := "error"
	if success {
		outcome = "ok"
	}
	autosaveFlushes.WithLabelValues(outcome).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses resource identifiers so label cardinality stays
// bounded.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	switch parts[0] {
	case "submodules":
		if len(parts) <= 1 {
			return "/submodules"
		}
		if len(parts) == 2 {
			return "/submodules/:id"
		}
		return "/submodules/:id/" + parts[2]
	case "entries":
		if len(parts) <= 1 {
			return "/entries"
		}
		if len(parts) == 2 {
			return "/entries/:id"
		}
		return "/entries/:id/" + parts[2]
	case "roles", "users", "licenses":
		if len(parts) == 1 {
			return "/" + parts[0]
		}
		return "/" + parts[0] + "/:id"
	}
	return "/" + parts[0]
}
