package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the service collectors. A nil *Metrics is valid and records
// nothing, which keeps unit tests free of registry setup.
type Metrics struct {
	registry *prometheus.Registry

	Transitions    *prometheus.CounterVec
	RefundOutcomes *prometheus.CounterVec
	RefundLatency  *prometheus.HistogramVec
	Notifications  *prometheus.CounterVec
	Requests       *prometheus.CounterVec
	LatencyMS      *prometheus.HistogramVec
	DBPool         *prometheus.GaugeVec
}

func New(service string) *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "return_transitions_total",
			Help:        "Successful return request status transitions",
			ConstLabels: prometheus.Labels{"service": service},
		}, []string{"from", "to"}),
		RefundOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "refund_outcomes_total",
			Help:        "Refund orchestration results",
			ConstLabels: prometheus.Labels{"service": service},
		}, []string{"kind", "outcome"}),
		RefundLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "refund_provider_latency_ms",
			Help:        "Payment provider refund call latency in ms",
			ConstLabels: prometheus.Labels{"service": service},
			Buckets:     []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 20000},
		}, []string{"kind"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "notifications_total",
			Help:        "Notification persistence and push attempts",
			ConstLabels: prometheus.Labels{"service": service},
		}, []string{"stage", "result"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "HTTP requests",
			ConstLabels: prometheus.Labels{"service": service},
		}, []string{"route", "code"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_latency_ms",
			Help:        "HTTP request latency in ms",
			ConstLabels: prometheus.Labels{"service": service},
			Buckets:     []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
		DBPool: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "db_pool_connections",
			Help:        "Postgres pool connections by state",
			ConstLabels: prometheus.Labels{"service": service},
		}, []string{"state"}),
	}

	reg.MustRegister(
		m.Transitions,
		m.RefundOutcomes,
		m.RefundLatency,
		m.Notifications,
		m.Requests,
		m.LatencyMS,
		m.DBPool,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler exposes the registry for scraping
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) ObserveRefund(kind, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.RefundOutcomes.WithLabelValues(kind, outcome).Inc()
	if took > 0 {
		m.RefundLatency.WithLabelValues(kind).Observe(float64(took.Milliseconds()))
	}
}

func (m *Metrics) ObserveNotification(stage, result string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(stage, result).Inc()
}

func (m *Metrics) ObserveRequest(route, code string, took time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(route, code).Inc()
	m.LatencyMS.WithLabelValues(route).Observe(float64(took.Milliseconds()))
}

func (m *Metrics) SetPoolStats(total, idle, acquired int32) {
	if m == nil {
		return
	}
	m.DBPool.WithLabelValues("total").Set(float64(total))
	m.DBPool.WithLabelValues("idle").Set(float64(idle))
	m.DBPool.WithLabelValues("acquired").Set(float64(acquired))
}
