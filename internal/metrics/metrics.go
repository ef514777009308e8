package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/eventbus"
)

const namespace = "webshop"

// BusMetrics counts bus traffic. It implements eventbus.Observer.
type BusMetrics struct {
	Published       *prometheus.CounterVec
	PublishFailures *prometheus.CounterVec
	HandlerFailures *prometheus.CounterVec
	HandlerLatency  *prometheus.HistogramVec
}

var _ eventbus.Observer = (*BusMetrics)(nil)

func NewBusMetrics(reg prometheus.Registerer) *BusMetrics {
	m := &BusMetrics{
		Published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of domain events published.",
		}, []string{"bus", "event_type"}),
		PublishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_publish_failures_total",
			Help:      "Total number of domain events the bus failed to publish.",
		}, []string{"bus", "event_type"}),
		HandlerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_handler_failures_total",
			Help:      "Total number of failed or panicking event handler runs.",
		}, []string{"event_type"}),
		HandlerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_handler_duration_ms",
			Help:      "Event handler latency in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		}, []string{"event_type"}),
	}
	reg.MustRegister(m.Published, m.PublishFailures, m.HandlerFailures, m.HandlerLatency)
	return m
}

func (m *BusMetrics) EventPublished(bus, eventType string) {
	m.Published.WithLabelValues(bus, eventType).Inc()
}

func (m *BusMetrics) PublishFailed(bus, eventType string) {
	m.PublishFailures.WithLabelValues(bus, eventType).Inc()
}

func (m *BusMetrics) HandlerSucceeded(eventType, _ string, took time.Duration) {
	m.HandlerLatency.WithLabelValues(eventType).Observe(ms(took))
}

func (m *BusMetrics) HandlerFailed(eventType, _ string, took time.Duration) {
	m.HandlerFailures.WithLabelValues(eventType).Inc()
	m.HandlerLatency.WithLabelValues(eventType).Observe(ms(took))
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

func NewServerMetrics(reg prometheus.Registerer) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})

	reg.MustRegister(requests, latency)
	return &ServerMetrics{Requests: requests, LatencyMS: latency}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
