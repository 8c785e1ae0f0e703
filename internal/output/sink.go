package output

import "github.com/nerrad567/loxgate/internal/protocol"

// Built-in sink names. Routing entries and the outputs configuration
// section refer to sinks by these names.
const (
	SinkHue      = "hue"
	SinkTelegraf = "telegraf"
	SinkMQTT     = "mqtt"
)

// Sink is the contract every output integration satisfies.
//
// Connect establishes the sink's transport. Send delivers one processed
// reading and reports failure through its error return; it must not
// panic. Disconnect tears the transport down and is safe to call
// repeatedly, including when Connect never succeeded.
type Sink interface {
	// Name returns the sink's configured name.
	Name() string

	// Connect establishes the sink's connection.
	Connect() error

	// Send delivers one reading to the sink's destination.
	Send(r *protocol.Reading) error

	// Disconnect tears down the sink's connection.
	Disconnect()
}

// Resilient is implemented by sinks that retry their own connection in
// the background after a failure. The manager keeps such sinks active
// even when their initial connect fails.
type Resilient interface {
	// Retrying reports whether a background reconnection worker is
	// currently running.
	Retrying() bool
}

// Logger is the minimal logging surface the output package needs.
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

func orNoop(l Logger) Logger {
	if l == nil {
		return noopLogger{}
	}
	return l
}
