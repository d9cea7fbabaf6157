package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPMiddleware records request count, latency and in-flight requests on reg.
// The route label is the route template so ids do not explode cardinality.
// A nil reg yields a pass-through middleware. Panics are counted as 500 and
// passed on to the recovery middleware mounted before this one.
func HTTPMiddleware(reg *prometheus.Registry) gin.HandlerFunc {
	if reg == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookinventory_http_requests_total",
			Help: "Total number of HTTP requests processed.",
		},
		[]string{"method", "route", "status"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookinventory_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	requestsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bookinventory_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed.",
		},
	)

	reg.MustRegister(requestsTotal, requestDuration, requestsInFlight)

	return func(c *gin.Context) {
		requestsInFlight.Inc()
		defer requestsInFlight.Dec()
		start := time.Now()

		observe := func(status int) {
			route := c.FullPath()
			if route == "" {
				route = "unknown"
			}
			code := strconv.Itoa(status)
			requestsTotal.WithLabelValues(c.Request.Method, route, code).Inc()
			requestDuration.WithLabelValues(c.Request.Method, route, code).Observe(time.Since(start).Seconds())
		}

		defer func() {
			if r := recover(); r != nil {
				observe(http.StatusInternalServerError)
				panic(r)
			}
		}()

		c.Next()
		observe(c.Writer.Status())
	}
}

// Handler exposes reg in the Prometheus text format
func Handler(reg *prometheus.Registry) gin.HandlerFunc {
	h := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}
