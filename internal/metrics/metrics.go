// Package metrics provides Prometheus metrics for udpshare.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "udpshare"
)

// Dispatch failure reasons.
const (
	ReasonError = "error"
	ReasonPanic = "panic"
)

// Metrics contains all Prometheus metrics for the UDP manager.
type Metrics struct {
	// Socket metrics
	SocketsOpen  prometheus.Gauge
	SocketBinds  prometheus.Counter
	SocketCloses prometheus.Counter
	BindErrors   prometheus.Counter

	// Listener metrics
	ListenersActive prometheus.Gauge
	Subscribes      prometheus.Counter
	Unsubscribes    prometheus.Counter

	// Data transfer metrics
	DatagramsReceived prometheus.Counter
	BytesReceived     prometheus.Counter
	DatagramsSent     prometheus.Counter
	BytesSent         prometheus.Counter
	SendErrors        prometheus.Counter
	ReadErrors        prometheus.Counter

	// Dispatch metrics
	DispatchErrors  *prometheus.CounterVec
	DispatchLatency prometheus.Histogram
}

var (
	defaultMetrics *Metrics
	metricsOnce    sync.Once
)

// Default returns the default metrics instance registered with the default
// Prometheus registerer.
func Default() *Metrics {
	metricsOnce.Do(func() {
		defaultMetrics = NewMetrics()
	})
	return defaultMetrics
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates a new Metrics instance with a custom registry.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SocketsOpen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sockets_open",
			Help:      "Number of currently bound UDP sockets",
		}),
		SocketBinds: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "socket_binds_total",
			Help:      "Total number of UDP sockets bound",
		}),
		SocketCloses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "socket_closes_total",
			Help:      "Total number of UDP sockets closed",
		}),
		BindErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bind_errors_total",
			Help:      "Total number of failed binds",
		}),

		ListenersActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "listeners_active",
			Help:      "Number of currently registered listeners",
		}),
		Subscribes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscribes_total",
			Help:      "Total number of successful subscribes",
		}),
		Unsubscribes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unsubscribes_total",
			Help:      "Total number of listeners released",
		}),

		DatagramsReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datagrams_received_total",
			Help:      "Total number of datagrams read from bound sockets",
		}),
		BytesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_received_total",
			Help:      "Total payload bytes read from bound sockets",
		}),
		DatagramsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datagrams_sent_total",
			Help:      "Total number of datagrams sent",
		}),
		BytesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_sent_total",
			Help:      "Total payload bytes sent",
		}),
		SendErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_errors_total",
			Help:      "Total number of failed sends",
		}),
		ReadErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "read_errors_total",
			Help:      "Total number of transient socket read errors",
		}),

		DispatchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_errors_total",
			Help:      "Total listener failures during dispatch by reason",
		}, []string{"reason"}),
		DispatchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_latency_seconds",
			Help:      "Time to deliver one datagram to every listener of its socket",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1, .5},
		}),
	}
}

// RecordBind records a newly bound socket.
func (m *Metrics) RecordBind() {
	m.SocketsOpen.Inc()
	m.SocketBinds.Inc()
}

// RecordBindError records a failed bind.
func (m *Metrics) RecordBindError() {
	m.BindErrors.Inc()
}

// RecordSocketClose records a closed socket.
func (m *Metrics) RecordSocketClose() {
	m.SocketsOpen.Dec()
	m.SocketCloses.Inc()
}

// RecordSubscribe records a new listener.
func (m *Metrics) RecordSubscribe() {
	m.ListenersActive.Inc()
	m.Subscribes.Inc()
}

// RecordUnsubscribe records a released listener.
func (m *Metrics) RecordUnsubscribe() {
	m.ListenersActive.Dec()
	m.Unsubscribes.Inc()
}

// RecordReceive records one inbound datagram.
func (m *Metrics) RecordReceive(bytes int) {
	m.DatagramsReceived.Inc()
	m.BytesReceived.Add(float64(bytes))
}

// RecordSend records one outbound datagram.
func (m *Metrics) RecordSend(bytes int) {
	m.DatagramsSent.Inc()
	m.BytesSent.Add(float64(bytes))
}

// RecordSendError records a failed send.
func (m *Metrics) RecordSendError() {
	m.SendErrors.Inc()
}

// RecordReadError records a transient read error.
func (m *Metrics) RecordReadError() {
	m.ReadErrors.Inc()
}

// RecordDispatchError records a listener failure.
func (m *Metrics) RecordDispatchError(reason string) {
	m.DispatchErrors.WithLabelValues(reason).Inc()
}

// RecordDispatch records the time taken to fan out one datagram.
func (m *Metrics) RecordDispatch(latencySeconds float64) {
	m.DispatchLatency.Observe(latencySeconds)
}
