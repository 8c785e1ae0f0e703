package gateway

import "github.com/prometheus/client_golang/prometheus"

// Drop reasons recorded on the dropped-packets counter.
const (
	DropReasonDecode    = "decode"
	DropReasonNoHandler = "no_handler"
	DropReasonRejected  = "rejected"
	DropReasonUnrouted  = "unrouted"
)

// Metrics holds the gateway's pipeline counters.
type Metrics struct {
	PacketsReceived prometheus.Counter
	PacketsDropped  *prometheus.CounterVec
	SinkSends       *prometheus.CounterVec
}

// NewMetrics creates the gateway counters, unregistered.
func NewMetrics() *Metrics {
	return &Metrics{
		PacketsReceived: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "loxgate",
				Subsystem: "packets",
				Name:      "received_total",
				Help:      "Total number of packets received on the UDP listeners",
			},
		),
		PacketsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "loxgate",
				Subsystem: "packets",
				Name:      "dropped_total",
				Help:      "Total number of packets dropped before dispatch",
			},
			[]string{"reason"},
		),
		SinkSends: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "loxgate",
				Subsystem: "sink",
				Name:      "sends_total",
				Help:      "Total number of dispatch attempts per sink",
			},
			[]string{"sink", "status"},
		),
	}
}

// Register registers all counters with the given registerer.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.PacketsReceived, m.PacketsDropped, m.SinkSends} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// RecordReceived increments the received-packets counter.
func (m *Metrics) RecordReceived() {
	m.PacketsReceived.Inc()
}

// RecordDropped increments the dropped-packets counter for a reason.
func (m *Metrics) RecordDropped(reason string) {
	m.PacketsDropped.WithLabelValues(reason).Inc()
}

// RecordSinkSend increments the per-sink dispatch counter.
func (m *Metrics) RecordSinkSend(sink string, ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	m.SinkSends.WithLabelValues(sink, status).Inc()
}
