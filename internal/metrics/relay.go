package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Tyrowin/echorelay/internal/relay"
)

// RelayMetrics holds Prometheus metrics for connections and broadcasts. It
// implements relay.Observer.
type RelayMetrics struct {
	ActiveConnections prometheus.Gauge
	ConnectionsClosed *prometheus.CounterVec
	MessagesReceived  prometheus.Counter
	MessagesDropped   prometheus.Counter
	Deliveries        *prometheus.CounterVec
}

var _ relay.Observer = (*RelayMetrics)(nil)

// NewRelayMetrics creates and registers relay metrics on the given registry.
func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	m := &RelayMetrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "connections",
			Name:      "active",
			Help:      "Number of registered connections.",
		}),
		ConnectionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connections",
			Name:      "closed_total",
			Help:      "Total number of closed connections by outcome.",
		}, []string{"outcome"}),
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messages",
			Name:      "received_total",
			Help:      "Total number of inbound messages.",
		}),
		MessagesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messages",
			Name:      "dropped_total",
			Help:      "Total number of inbound messages discarded by rate limiting.",
		}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Total number of per-member broadcast deliveries by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.ActiveConnections,
		m.ConnectionsClosed,
		m.MessagesReceived,
		m.MessagesDropped,
		m.Deliveries,
	)
	return m
}

func (m *RelayMetrics) ConnectionOpened() {
	m.ActiveConnections.Inc()
}

func (m *RelayMetrics) ConnectionClosed(outcome relay.Outcome) {
	m.ActiveConnections.Dec()
	m.ConnectionsClosed.WithLabelValues(outcome.String()).Inc()
}

func (m *RelayMetrics) MessageReceived() {
	m.MessagesReceived.Inc()
}

func (m *RelayMetrics) MessageDropped() {
	m.MessagesDropped.Inc()
}

func (m *RelayMetrics) Delivered() {
	m.Deliveries.WithLabelValues("ok").Inc()
}

func (m *RelayMetrics) DeliveryFailed() {
	m.Deliveries.WithLabelValues("failed").Inc()
}
