package gateway

import (
	"errors"
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nerrad567/loxgate/internal/handler"
	"github.com/nerrad567/loxgate/internal/infrastructure/config"
	"github.com/nerrad567/loxgate/internal/protocol"
)

// fakeSinks scripts per-sink outcomes for dispatch tests. Sinks not in
// the errs map succeed; a missing sink entry in available fails with
// ErrSinkUnavailable semantics.
type fakeSinks struct {
	available map[string]bool
	errs      map[string]error
	sent      []string
}

func (f *fakeSinks) Send(name string, _ *protocol.Reading) error {
	f.sent = append(f.sent, name)
	if !f.available[name] {
		return errors.New("sink unavailable")
	}
	return f.errs[name]
}

func testGateway(sinks *fakeSinks, routing config.RoutingConfig) (*Gateway, *Metrics) {
	metrics := NewMetrics()
	g := New(
		protocol.NewDecoder(),
		handler.NewRegistry(),
		NewRoutingTable(routing),
		sinks,
		metrics,
		nil,
	)
	return g, metrics
}

func lightRouting(outputs ...string) config.RoutingConfig {
	return config.RoutingConfig{
		"ph": {Outputs: outputs},
	}
}

func TestHandlePacketDispatches(t *testing.T) {
	sinks := &fakeSinks{available: map[string]bool{"hue": true, "mqtt": true}}
	g, _ := testGateway(sinks, lightRouting("hue", "mqtt"))

	results := g.HandlePacket("1694083200;udplight;ph9.100050025")

	want := map[string]bool{"hue": true, "mqtt": true}
	if !reflect.DeepEqual(results, want) {
		t.Errorf("results = %v, want %v", results, want)
	}
}

func TestHandlePacketFailureIsolation(t *testing.T) {
	// Three routed sinks, one connected: every sink is attempted and the
	// result map covers all three.
	sinks := &fakeSinks{
		available: map[string]bool{"hue": false, "telegraf": true, "mqtt": false},
	}
	g, metrics := testGateway(sinks, lightRouting("hue", "telegraf", "mqtt"))

	results := g.HandlePacket("1694083200;udplight;ph9.100050025")

	want := map[string]bool{"hue": false, "telegraf": true, "mqtt": false}
	if !reflect.DeepEqual(results, want) {
		t.Errorf("results = %v, want %v", results, want)
	}
	if len(sinks.sent) != 3 {
		t.Errorf("send attempts = %d, want 3", len(sinks.sent))
	}

	if got := testutil.ToFloat64(metrics.SinkSends.WithLabelValues("telegraf", "ok")); got != 1 {
		t.Errorf("telegraf ok sends = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.SinkSends.WithLabelValues("hue", "error")); got != 1 {
		t.Errorf("hue error sends = %v, want 1", got)
	}
}

func TestHandlePacketDropsBadPackets(t *testing.T) {
	tests := []struct {
		name       string
		packet     string
		wantReason string
	}{
		{"malformed line", "not a packet", DropReasonDecode},
		{"bad payload range", "100;src;ph9.150000000", DropReasonDecode},
		{"unknown device type", "100;src;xx9.42", DropReasonDecode},
		{"unrouted type", "100;src;pm1.42", DropReasonUnrouted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sinks := &fakeSinks{available: map[string]bool{"hue": true}}
			g, metrics := testGateway(sinks, lightRouting("hue"))

			results := g.HandlePacket(tt.packet)

			if len(results) != 0 {
				t.Errorf("results = %v, want empty", results)
			}
			if len(sinks.sent) != 0 {
				t.Errorf("sinks attempted: %v, want none", sinks.sent)
			}
			if got := testutil.ToFloat64(metrics.PacketsDropped.WithLabelValues(tt.wantReason)); got != 1 {
				t.Errorf("dropped{%s} = %v, want 1", tt.wantReason, got)
			}
		})
	}
}

func TestHandlePacketNoHandler(t *testing.T) {
	// Structured packets can carry types with no registered handler.
	sinks := &fakeSinks{available: map[string]bool{"telegraf": true}}
	g, metrics := testGateway(sinks, config.RoutingConfig{
		"tm": {Outputs: []string{"telegraf"}},
	})

	results := g.HandlePacket(`100;src;{"type":"tm","id":"2","value":{"temp":21.5}}`)

	if len(results) != 0 {
		t.Errorf("results = %v, want empty", results)
	}
	if got := testutil.ToFloat64(metrics.PacketsDropped.WithLabelValues(DropReasonNoHandler)); got != 1 {
		t.Errorf("dropped{no_handler} = %v, want 1", got)
	}
}

func TestHandlePacketCountsReceived(t *testing.T) {
	g, metrics := testGateway(&fakeSinks{}, config.RoutingConfig{})

	g.HandlePacket("garbage")
	g.HandlePacket("100;src;ph1.0")

	if got := testutil.ToFloat64(metrics.PacketsReceived); got != 2 {
		t.Errorf("received = %v, want 2", got)
	}
}

func TestDispatchDuplicateSink(t *testing.T) {
	sinks := &fakeSinks{available: map[string]bool{"hue": true}}
	g, _ := testGateway(sinks, config.RoutingConfig{})

	results := g.Dispatch(&protocol.Reading{DeviceType: "ph"}, []string{"hue", "hue"})

	if len(sinks.sent) != 2 {
		t.Errorf("send attempts = %d, want 2", len(sinks.sent))
	}
	if !reflect.DeepEqual(results, map[string]bool{"hue": true}) {
		t.Errorf("results = %v, want single hue entry", results)
	}
}

func TestMetricsRegister(t *testing.T) {
	metrics := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	// Double registration must surface the collision.
	if err := metrics.Register(reg); err == nil {
		t.Error("second Register() succeeded, want duplicate error")
	}
}

func TestRoutingTable(t *testing.T) {
	table := NewRoutingTable(config.RoutingConfig{
		"ph": {Outputs: []string{"hue", "mqtt"}},
		"pm": {Outputs: []string{"telegraf"}},
		"tm": {},
	})

	if got := table.Outputs("ph"); !reflect.DeepEqual(got, []string{"hue", "mqtt"}) {
		t.Errorf("Outputs(ph) = %v", got)
	}
	if got := table.Outputs("zz"); got != nil {
		t.Errorf("Outputs(zz) = %v, want nil", got)
	}
	if got := table.Types(); !reflect.DeepEqual(got, []string{"ph", "pm", "tm"}) {
		t.Errorf("Types() = %v", got)
	}

	// Snapshot is a copy, not a view.
	snapshot := table.Snapshot()
	snapshot["ph"][0] = "mutated"
	if table.Outputs("ph")[0] != "hue" {
		t.Error("Snapshot() shares backing storage with the table")
	}
}
