// Package telemetry owns the Prometheus registry and the OpenTelemetry
// tracer provider shared by the API client, the controllers and the web
// server.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is a private Prometheus registry with the dashboard's collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests   *prometheus.CounterVec
	apiLatency    *prometheus.HistogramVec
	intents       *prometheus.CounterVec
	notices       *prometheus.CounterVec
	httpResponses *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors.
func NewMetrics() (*Metrics, error) {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vulntriage_api_requests_total",
			Help: "Backend API requests by endpoint, method and status class",
		},
		[]string{"endpoint", "method", "status"},
	)

	m.apiLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vulntriage_api_request_duration_seconds",
			Help:    "Backend API request latency in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		},
		[]string{"endpoint", "method"},
	)

	m.intents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vulntriage_intents_total",
			Help: "User intents dispatched per view",
		},
		[]string{"view", "intent"},
	)

	m.notices = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vulntriage_notices_total",
			Help: "Notifications shown to users by kind",
		},
		[]string{"kind"},
	)

	m.httpResponses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vulntriage_http_responses_total",
			Help: "Dashboard HTTP responses by route and status code",
		},
		[]string{"route", "code"},
	)

	collectors := []prometheus.Collector{
		m.apiRequests,
		m.apiLatency,
		m.intents,
		m.notices,
		m.httpResponses,
	}

	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveAPICall records one backend round trip. A zero status means the
// request never produced a response.
func (m *Metrics) ObserveAPICall(endpoint, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(endpoint, method, statusClass(status)).Inc()
	m.apiLatency.WithLabelValues(endpoint, method).Observe(elapsed.Seconds())
}

// IntentDispatched counts a user intent handled by a view controller.
func (m *Metrics) IntentDispatched(view, intent string) {
	if m == nil {
		return
	}
	m.intents.WithLabelValues(view, intent).Inc()
}

// NoticeShown counts a notification pushed to a user.
func (m *Metrics) NoticeShown(kind string) {
	if m == nil {
		return
	}
	m.notices.WithLabelValues(kind).Inc()
}

// HTTPResponse counts a response written by the dashboard server.
func (m *Metrics) HTTPResponse(route string, code int) {
	if m == nil {
		return
	}
	m.httpResponses.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

func statusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}
