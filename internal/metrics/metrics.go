// Package metrics exposes Prometheus instrumentation for the portfolio API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "portfolio"

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeInvalid = "invalid"
	OutcomeNoop    = "noop"
)

var (
	editorOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "editor",
		Name:      "operations_total",
		Help:      "Editor operations by collection, operation and outcome.",
	}, []string{"collection", "operation", "outcome"})

	recordWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "editor",
		Name:      "record_writes_total",
		Help:      "Per-record remote writes issued by editors.",
	}, []string{"collection", "action", "outcome"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// EditorOperation counts one editor operation.
func EditorOperation(collection, operation, outcome string) {
	editorOperations.WithLabelValues(collection, operation, outcome).Inc()
}

// RecordWrite counts one remote write (create, update, update_order, delete, blob_delete).
func RecordWrite(collection, action string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	recordWrites.WithLabelValues(collection, action, outcome).Inc()
}

// GinMiddleware records request latency keyed by the matched route template.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(started).Seconds())
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
