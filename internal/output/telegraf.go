package output

import (
	"fmt"
	"net"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/loxgate/internal/protocol"
)

// telegrafMeasurement is the measurement name every datagram carries.
const telegrafMeasurement = "loxone"

// TelegrafSink emits readings as InfluxDB line protocol datagrams to a
// Telegraf socket listener. One reading becomes one datagram; delivery is
// fire-and-forget UDP.
type TelegrafSink struct {
	name   string
	addr   string
	conn   net.Conn
	now    func() time.Time
	logger Logger
}

// NewTelegrafSink builds a sink targeting the given "host:port" UDP
// address.
func NewTelegrafSink(name, addr string, logger Logger) *TelegrafSink {
	return &TelegrafSink{
		name:   name,
		addr:   addr,
		now:    time.Now,
		logger: orNoop(logger),
	}
}

// Name returns the sink's configured name.
func (s *TelegrafSink) Name() string { return s.name }

// Connect resolves the target address and opens the UDP socket.
func (s *TelegrafSink) Connect() error {
	conn, err := net.Dial("udp", s.addr)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}
	s.conn = conn
	s.logger.Info("telegraf socket open", "sink", s.name, "addr", s.addr)
	return nil
}

// Send encodes the reading as one line protocol datagram, timestamped
// with the current wall clock in nanoseconds, and writes it to the
// socket.
func (s *TelegrafSink) Send(r *protocol.Reading) error {
	if s.conn == nil {
		return fmt.Errorf("%w: telegraf sink %q", ErrNotConnected, s.name)
	}

	fields := telegrafFields(r)
	if len(fields) == 0 {
		return fmt.Errorf("%w: reading has no telegraf fields", ErrPublishFailed)
	}

	source := r.Source
	if source == "" {
		source = "unknown"
	}
	point := write.NewPoint(
		telegrafMeasurement,
		map[string]string{
			"device_type": r.DeviceType,
			"device_id":   r.DeviceID,
			"source":      source,
		},
		fields,
		s.now(),
	)

	// Sorted tags and fields keep the datagram layout stable.
	line := write.PointToLineProtocol(point.SortTags().SortFields(), time.Nanosecond)
	if _, err := s.conn.Write([]byte(line)); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	s.logger.Debug("telegraf datagram sent", "sink", s.name, "bytes", len(line))
	return nil
}

// Disconnect closes the socket. Safe to call repeatedly.
func (s *TelegrafSink) Disconnect() {
	if s.conn != nil {
		s.conn.Close() //nolint:errcheck // UDP close has nothing to report
		s.conn = nil
	}
}

// telegrafFields builds the per-device-type field set. Light readings
// carry their colour channels as integers plus the mode; power readings
// carry the standard electrical quantities as floats. Any other type
// falls back to emitting every numeric or string item of the value.
func telegrafFields(r *protocol.Reading) map[string]any {
	fields := make(map[string]any)

	switch r.DeviceType {
	case protocol.DeviceTypeLight:
		mode, _ := r.Value["mode"].(string)
		switch mode {
		case protocol.ModeRGB:
			red := int64(intField(r.Value, "r"))
			green := int64(intField(r.Value, "g"))
			blue := int64(intField(r.Value, "b"))
			bri := red
			if green > bri {
				bri = green
			}
			if blue > bri {
				bri = blue
			}
			fields["r"] = red
			fields["g"] = green
			fields["b"] = blue
			fields["brightness"] = bri
			fields["mode"] = mode
		case protocol.ModeCCT:
			fields["brightness"] = int64(intField(r.Value, "brightness"))
			fields["kelvin"] = int64(intField(r.Value, "kelvin"))
			fields["mode"] = mode
		}
	case protocol.DeviceTypePower:
		for _, key := range []string{"power", "voltage", "current", "energy"} {
			if v, ok := floatItem(r.Value[key]); ok {
				fields[key] = v
			}
		}
	default:
		for key, item := range r.Value {
			switch v := item.(type) {
			case float64:
				fields[key] = v
			case int64:
				fields[key] = v
			case int:
				fields[key] = int64(v)
			case string:
				fields[key] = v
			}
		}
	}
	return fields
}

func floatItem(item any) (float64, bool) {
	switch v := item.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}
