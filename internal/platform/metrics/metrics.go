package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	dispenseTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_usage_records_total",
			Help: "Stock-decrementing inventory actions recorded.",
		},
		[]string{"kind"},
	)

	webhookCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diagnosis_webhook_calls_total",
			Help: "Outbound diagnosis webhook calls by outcome.",
		},
		[]string{"outcome"},
	)
)

// Init registers all collectors with the default registry. Call once.
func Init() {
	prometheus.MustRegister(httpInFlight, httpRequestsTotal, httpRequestDuration,
		dispenseTotal, webhookCallsTotal)
}

// Handler exposes the default registry for scraping.
func Handler() echo.HandlerFunc {
	h := promhttp.Handler()
	return func(c echo.Context) error {
		h.ServeHTTP(c.Response(), c.Request())
		return nil
	}
}

// Middleware instruments request counts, latency and in-flight gauge.
// Routed paths are used as the label so IDs do not explode cardinality.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			httpInFlight.Inc()
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if err != nil {
				if httpErr, ok := err.(*echo.HTTPError); ok {
					status = httpErr.Code
				} else {
					status = http.StatusInternalServerError
				}
			}

			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}
			labels := []string{c.Request().Method, path, strconv.Itoa(status)}
			httpRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
			httpRequestsTotal.WithLabelValues(labels...).Inc()
			httpInFlight.Dec()

			return err
		}
	}
}

// CountUsage records a stock-decrementing inventory action ("dispense" or
// "write_off").
func CountUsage(kind string) {
	dispenseTotal.WithLabelValues(kind).Inc()
}

// CountWebhookCall records an outbound webhook outcome ("ok", "http_error",
// "bad_payload", "unreachable").
func CountWebhookCall(outcome string) {
	webhookCallsTotal.WithLabelValues(outcome).Inc()
}
