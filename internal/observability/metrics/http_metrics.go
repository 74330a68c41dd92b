package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPMetrics captures request counts and latencies for the /metrics endpoint.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inflight prometheus.Gauge
}

// NewHTTPMetrics registers HTTP server metrics on the default registry.
func NewHTTPMetrics(cfg Config) *HTTPMetrics {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "nexuscore"
	}
	constLabels := prometheus.Labels{"service": serviceName}

	return &HTTPMetrics{
		requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "nexuscore_http_requests_total",
			Help:        "Total HTTP requests by route, method and status.",
			ConstLabels: constLabels,
		}, []string{"route", "method", "status"}),
		duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "nexuscore_http_request_duration_seconds",
			Help:        "HTTP request latency by route and method.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}, []string{"route", "method"}),
		inflight: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "nexuscore_http_requests_in_flight",
			Help:        "In-flight HTTP requests.",
			ConstLabels: constLabels,
		}),
	}
}

// GinMiddleware instruments inbound HTTP requests.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		m.inflight.Inc()
		c.Next()
		m.inflight.Dec()

		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		m.requests.WithLabelValues(route, method, status).Inc()
		m.duration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}
