package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "space"

// Upstream call outcomes
const (
	OutcomeOK          = "ok"
	OutcomeCacheHit    = "cache_hit"
	OutcomeError       = "error"
	OutcomeCircuitOpen = "circuit_open"
)

// Metrics 服务指标集合
// Collectors are registered on the Registerer passed to New, so tests can
// use a private registry.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	TelemetrySessions  prometheus.Gauge
	TelemetrySent      prometheus.Counter
	TelemetryDropped   prometheus.Counter
	TelemetryInbound   *prometheus.CounterVec
	TelemetryRecovered prometheus.Counter

	UpstreamCallsTotal *prometheus.CounterVec
	EventsPublished    *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		TelemetrySessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "telemetry_sessions",
				Help:      "Number of open telemetry WebSocket sessions",
			},
		),
		TelemetrySent: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "telemetry_messages_sent_total",
				Help:      "Telemetry samples delivered to clients",
			},
		),
		TelemetryDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "telemetry_messages_dropped_total",
				Help:      "Telemetry samples dropped because the send failed",
			},
		),
		TelemetryInbound: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "telemetry_inbound_messages_total",
				Help:      "Client messages received on telemetry sessions by type",
			},
			[]string{"type"},
		),
		TelemetryRecovered: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "telemetry_tick_panics_total",
				Help:      "Ticks that panicked during sample generation and were recovered",
			},
		),
		UpstreamCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_calls_total",
				Help:      "Calls to the NASA API by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Change events published by collection and result",
			},
			[]string{"collection", "result"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.TelemetrySessions,
		m.TelemetrySent,
		m.TelemetryDropped,
		m.TelemetryInbound,
		m.TelemetryRecovered,
		m.UpstreamCallsTotal,
		m.EventsPublished,
	)
	return m
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) UpstreamCall(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.UpstreamCallsTotal.WithLabelValues(endpoint, outcome).Inc()
}

func (m *Metrics) EventPublished(collection string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.EventsPublished.WithLabelValues(collection, result).Inc()
}

// Handler returns the Prometheus scrape handler for the given gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Telemetry session hooks.

func (m *Metrics) SessionOpened()  { m.TelemetrySessions.Inc() }
func (m *Metrics) SessionClosed()  { m.TelemetrySessions.Dec() }
func (m *Metrics) MessageSent()    { m.TelemetrySent.Inc() }
func (m *Metrics) MessageDropped() { m.TelemetryDropped.Inc() }
func (m *Metrics) TickRecovered()  { m.TelemetryRecovered.Inc() }

func (m *Metrics) InboundMessage(kind string) {
	m.TelemetryInbound.WithLabelValues(kind).Inc()
}
