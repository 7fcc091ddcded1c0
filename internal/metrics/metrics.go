package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "studio"

// Metrics owns a private registry.  A nil *Metrics is valid and records
// nothing, which is what the server uses when metrics are disabled.
type Metrics struct {
	registry   *prometheus.Registry
	httpReqCnt *prometheus.CounterVec
	httpDur    *prometheus.HistogramVec
	httpInfl   *prometheus.GaugeVec
	logins     *prometheus.CounterVec
	forbidden  *prometheus.CounterVec
	events     *prometheus.CounterVec
}

func New() *Metrics {
	r := prometheus.NewRegistry()
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	httpReqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total"}, []string{"method", "route", "status"})
	httpDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: "http_request_duration_seconds", Buckets: prometheus.DefBuckets}, []string{"method", "route", "status"})
	httpInfl := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: "http_requests_inflight"}, []string{"route"})
	r.MustRegister(httpReqCnt, httpDur, httpInfl)

	logins := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "login_attempts_total"}, []string{"result"})
	forbidden := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "forbidden_total"}, []string{"required_role"})
	events := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "events_published_total"}, []string{"type", "status"})
	r.MustRegister(logins, forbidden, events)

	return &Metrics{
		registry:   r,
		httpReqCnt: httpReqCnt,
		httpDur:    httpDur,
		httpInfl:   httpInfl,
		logins:     logins,
		forbidden:  forbidden,
		events:     events,
	}
}

// LoginAttempt counts a login by result ("success" or "failure").
func (m *Metrics) LoginAttempt(result string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result).Inc()
}

// Forbidden counts a request rejected by the role gate.
func (m *Metrics) Forbidden(requiredRole string) {
	if m == nil {
		return
	}
	m.forbidden.WithLabelValues(requiredRole).Inc()
}

// EventPublished counts a domain event publish attempt.
func (m *Metrics) EventPublished(eventType string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.events.WithLabelValues(eventType, status).Inc()
}

// Middleware records request count, latency and in-flight gauge per route.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if m == nil {
			return next
		}
		return func(c echo.Context) error {
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.httpInfl.WithLabelValues(route).Inc()
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else if !c.Response().Committed {
					status = http.StatusInternalServerError
				}
			}
			code := strconv.Itoa(status)
			m.httpReqCnt.WithLabelValues(c.Request().Method, route, code).Inc()
			m.httpDur.WithLabelValues(c.Request().Method, route, code).Observe(time.Since(start).Seconds())
			m.httpInfl.WithLabelValues(route).Dec()
			return err
		}
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
