package output

import (
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/loxgate/internal/protocol"
)

// testTelegrafListener opens a loopback UDP socket and returns a
// connected sink plus a receive function for the next datagram.
func testTelegrafListener(t *testing.T) (*TelegrafSink, func() string) {
	t.Helper()

	listener, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	sink := NewTelegrafSink("telegraf", listener.LocalAddr().String(), nil)
	sink.now = func() time.Time { return time.Unix(1694083200, 0) }
	if err := sink.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(sink.Disconnect)

	receive := func() string {
		buf := make([]byte, 2048)
		listener.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
		n, _, err := listener.ReadFrom(buf)
		if err != nil {
			t.Fatalf("read datagram: %v", err)
		}
		return string(buf[:n])
	}
	return sink, receive
}

func TestTelegrafSendLight(t *testing.T) {
	sink, receive := testTelegrafListener(t)

	err := sink.Send(&protocol.Reading{
		DeviceType: "ph",
		DeviceID:   "9",
		Source:     "udplight",
		Value: map[string]any{
			"mode": protocol.ModeRGB,
			"r":    int64(63), "g": int64(127), "b": int64(255),
		},
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	want := `loxone,device_id=9,device_type=ph,source=udplight b=255i,brightness=255i,g=127i,mode="rgb",r=63i 1694083200000000000` + "\n"
	if got := receive(); got != want {
		t.Errorf("datagram = %q, want %q", got, want)
	}
}

func TestTelegrafSendCCT(t *testing.T) {
	sink, receive := testTelegrafListener(t)

	err := sink.Send(&protocol.Reading{
		DeviceType: "ph",
		DeviceID:   "4",
		Source:     "udplight",
		Value: map[string]any{
			"mode":       protocol.ModeCCT,
			"brightness": int64(100),
			"kelvin":     int64(3000),
		},
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	want := `loxone,device_id=4,device_type=ph,source=udplight brightness=100i,kelvin=3000i,mode="cct" 1694083200000000000` + "\n"
	if got := receive(); got != want {
		t.Errorf("datagram = %q, want %q", got, want)
	}
}

func TestTelegrafSendPower(t *testing.T) {
	sink, receive := testTelegrafListener(t)

	err := sink.Send(&protocol.Reading{
		DeviceType: "pm",
		DeviceID:   "1",
		Source:     "meter",
		Value: map[string]any{
			"power":   123.5,
			"voltage": 230.5,
			"current": 1.75,
			"energy":  99.25,
			"pf":      0.98, // not a standard electrical field, dropped
		},
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	want := `loxone,device_id=1,device_type=pm,source=meter current=1.75,energy=99.25,power=123.5,voltage=230.5 1694083200000000000` + "\n"
	if got := receive(); got != want {
		t.Errorf("datagram = %q, want %q", got, want)
	}
}

func TestTelegrafSendGenericType(t *testing.T) {
	sink, receive := testTelegrafListener(t)

	err := sink.Send(&protocol.Reading{
		DeviceType: "tm",
		DeviceID:   "2",
		Source:     "sensor",
		Value: map[string]any{
			"temp":  21.5,
			"state": "ok",
		},
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	got := receive()
	if !strings.HasPrefix(got, "loxone,device_id=2,device_type=tm,source=sensor ") {
		t.Errorf("datagram = %q, want tm tags", got)
	}
	if !strings.Contains(got, "temp=21.5") || !strings.Contains(got, `state="ok"`) {
		t.Errorf("datagram = %q, want temp and state fields", got)
	}
}

func TestTelegrafSendDefaultsSourceTag(t *testing.T) {
	sink, receive := testTelegrafListener(t)

	err := sink.Send(&protocol.Reading{
		DeviceType: "pm",
		DeviceID:   "1",
		Value:      map[string]any{"power": 1.5},
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got := receive(); !strings.Contains(got, "source=unknown") {
		t.Errorf("datagram = %q, want source=unknown tag", got)
	}
}

func TestTelegrafSendNoFields(t *testing.T) {
	sink, _ := testTelegrafListener(t)

	// Raw power passthrough carries no standard electrical fields.
	err := sink.Send(&protocol.Reading{
		DeviceType: "pm",
		DeviceID:   "1",
		Value:      map[string]any{"raw": int64(123456789)},
	})
	if !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Send() = %v, want ErrPublishFailed", err)
	}
}

func TestTelegrafSendNotConnected(t *testing.T) {
	sink := NewTelegrafSink("telegraf", "127.0.0.1:8094", nil)
	err := sink.Send(&protocol.Reading{DeviceType: "pm", Value: map[string]any{"power": 1.0}})
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send() = %v, want ErrNotConnected", err)
	}
}

func TestTelegrafDisconnectIdempotent(t *testing.T) {
	sink, _ := testTelegrafListener(t)
	sink.Disconnect()
	sink.Disconnect()
	if sink.conn != nil {
		t.Error("conn not cleared after Disconnect")
	}
}
