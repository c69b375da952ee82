package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/gradeledger/core/extraction"
)

const metricsNamespace = "gradeledger"

type metrics struct {
	registry            *prometheus.Registry
	requests            *prometheus.CounterVec
	duration            *prometheus.HistogramVec
	ledgerOps           *prometheus.CounterVec
	recognitionFailures *prometheus.CounterVec
}

func newMetrics(reg *prometheus.Registry) *metrics {
	m := &metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		ledgerOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "ledger_operations_total",
			Help:      "Successful ledger operations by kind.",
		}, []string{"op"}),
		recognitionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "recognition_failures_total",
			Help:      "Grade card recognition failures by category.",
		}, []string{"category"}),
	}
	reg.MustRegister(
		m.requests, m.duration, m.ledgerOps, m.recognitionFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *metrics) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		start := time.Now()
		err := next(ctx)

		code := ctx.Response().Status
		if err != nil {
			// the error handler has not written the response yet
			code = statusOf(err)
		}
		route := ctx.Path()
		m.requests.WithLabelValues(route, ctx.Request().Method, strconv.Itoa(code)).Inc()
		m.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		return err
	}
}

func (m *metrics) op(name string) {
	m.ledgerOps.WithLabelValues(name).Inc()
}

func (m *metrics) recognitionFailure(cat extraction.Category) {
	m.recognitionFailures.WithLabelValues(string(cat)).Inc()
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
