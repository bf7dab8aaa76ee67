// Prometheus instrumentation for the HTTP surface plus the domain counters
// the handlers feed. Labels stay bounded: the path label is the registered
// Gin route, not the raw URL, and the latency histogram omits status.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	// Response sizes here are dominated by small JSON bodies and the chat
	// stream, hence buckets from 200 B up to a few MiB.
	httpRespSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_response_size_bytes",
			Help: "Size of HTTP responses in bytes.",
			Buckets: []float64{
				200, 500, 1 << 10, 2 << 10, 5 << 10,
				10 << 10, 25 << 10, 50 << 10,
				100 << 10, 250 << 10, 500 << 10,
				1 << 20, 2 << 20, 5 << 20,
			},
		},
		[]string{"method", "path"},
	)

	// quotaDenials counts chat requests rejected by the daily usage gate.
	// The tier label has at most five values.
	quotaDenials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usage_quota_denials_total",
			Help: "Requests denied because the daily query quota was exhausted.",
		},
		[]string{"tier"},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize, quotaDenials)
}

// CountQuotaDenial records a usage-gate denial for the given tier.
func CountQuotaDenial(tier string) {
	quotaDenials.WithLabelValues(tier).Inc()
}

// Metrics instruments each request: http_requests_total by method, route,
// and status; the latency histogram by method and route; the in-flight
// gauge; and the response-size histogram when the writer reports a size.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		httpReqs.WithLabelValues(method, path, status).Inc()
		httpLat.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size >= 0 {
			httpRespSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}
