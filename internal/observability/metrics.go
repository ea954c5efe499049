package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the portal's prometheus collectors on a private registry.
type Metrics struct {
	registry       *prometheus.Registry
	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	errors         *prometheus.CounterVec
	loginFailures  prometheus.Counter
	lockouts       prometheus.Counter
	postsPublished *prometheus.CounterVec
	emailFailures  *prometheus.CounterVec
	schedulerRuns  *prometheus.CounterVec
}

// NewMetrics registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_http_errors_total",
			Help: "Errors rendered by the API, by error code.",
		}, []string{"method", "route", "code"}),
		loginFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_login_failures_total",
			Help: "Failed password checks during login.",
		}),
		lockouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_account_lockouts_total",
			Help: "Accounts locked after repeated login failures.",
		}),
		postsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_posts_published_total",
			Help: "Posts moved to PUBLISHED.",
		}, []string{"trigger"}),
		emailFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_email_failures_total",
			Help: "Email deliveries that failed.",
		}, []string{"kind"}),
		schedulerRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_scheduler_runs_total",
			Help: "Scheduled publishing sweeps by outcome.",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.duration, m.errors,
		m.loginFailures, m.lockouts, m.postsPublished, m.emailFailures, m.schedulerRuns,
	)
	return m
}

// Handler exposes the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordRequest observes a completed request.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordError counts a rendered error code.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(method, route, code).Inc()
}

func (m *Metrics) LoginFailed() {
	if m == nil {
		return
	}
	m.loginFailures.Inc()
}

func (m *Metrics) AccountLocked() {
	if m == nil {
		return
	}
	m.lockouts.Inc()
}

// PostsPublished counts promotions; trigger is "manual" or "schedule".
func (m *Metrics) PostsPublished(trigger string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.postsPublished.WithLabelValues(trigger).Add(float64(n))
}

func (m *Metrics) EmailFailed(kind string) {
	if m == nil {
		return
	}
	m.emailFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) SchedulerRun(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.schedulerRuns.WithLabelValues(outcome).Inc()
}
