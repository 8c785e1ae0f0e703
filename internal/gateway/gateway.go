package gateway

import (
	"errors"

	"github.com/nerrad567/loxgate/internal/handler"
	"github.com/nerrad567/loxgate/internal/protocol"
)

// SinkRegistry is the dispatch surface of the output manager.
type SinkRegistry interface {
	// Send delivers a reading to the named sink, reporting failure
	// through the error return.
	Send(name string, r *protocol.Reading) error
}

// Logger is the minimal logging surface the gateway needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}
func (noopLogger) Error(string, ...any) {}

// Gateway runs the packet pipeline: decode, handler normalisation,
// routing, dispatch.
type Gateway struct {
	decoder  *protocol.Decoder
	handlers *handler.Registry
	routing  *RoutingTable
	sinks    SinkRegistry
	metrics  *Metrics
	logger   Logger
}

// New builds a gateway over the given pipeline stages. metrics and
// logger may be nil.
func New(decoder *protocol.Decoder, handlers *handler.Registry, routing *RoutingTable, sinks SinkRegistry, metrics *Metrics, logger Logger) *Gateway {
	if metrics == nil {
		metrics = NewMetrics()
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Gateway{
		decoder:  decoder,
		handlers: handlers,
		routing:  routing,
		sinks:    sinks,
		metrics:  metrics,
		logger:   logger,
	}
}

// Routing returns the gateway's routing table.
func (g *Gateway) Routing() *RoutingTable { return g.routing }

// HandlerTypes returns the registered device-type tokens, sorted.
func (g *Gateway) HandlerTypes() []string { return g.handlers.Types() }

// HandlePacket runs one packet through the full pipeline and returns the
// per-sink dispatch results, keyed by sink name. A packet dropped before
// dispatch returns an empty map. HandlePacket never panics on packet
// content; every failure is counted, logged, and absorbed.
func (g *Gateway) HandlePacket(line string) map[string]bool {
	g.metrics.RecordReceived()

	reading, err := g.decoder.Decode(line)
	if err != nil {
		g.metrics.RecordDropped(DropReasonDecode)
		g.logger.Warn("packet dropped: decode failed", "error", err, "packet", line)
		return map[string]bool{}
	}

	if err := g.handlers.Process(reading); err != nil {
		reason := DropReasonRejected
		if errors.Is(err, handler.ErrNoHandler) {
			reason = DropReasonNoHandler
		}
		g.metrics.RecordDropped(reason)
		g.logger.Warn("packet dropped: handler failed",
			"error", err, "device_type", reading.DeviceType, "device_id", reading.DeviceID)
		return map[string]bool{}
	}

	outputs := g.routing.Outputs(reading.DeviceType)
	if len(outputs) == 0 {
		g.metrics.RecordDropped(DropReasonUnrouted)
		g.logger.Debug("packet dropped: no route", "device_type", reading.DeviceType)
		return map[string]bool{}
	}

	return g.Dispatch(reading, outputs)
}

// Dispatch fans a reading out to the named sinks. Every sink is
// attempted regardless of earlier failures, and the result map covers
// exactly the given names. A name listed twice is sent twice; its map
// entry reflects the last attempt.
func (g *Gateway) Dispatch(reading *protocol.Reading, outputs []string) map[string]bool {
	results := make(map[string]bool, len(outputs))
	for _, name := range outputs {
		err := g.sinks.Send(name, reading)
		ok := err == nil
		results[name] = ok
		g.metrics.RecordSinkSend(name, ok)
		if err != nil {
			g.logger.Warn("sink send failed",
				"sink", name, "device_type", reading.DeviceType, "device_id", reading.DeviceID, "error", err)
		}
	}
	return results
}
