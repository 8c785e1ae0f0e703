package output

import "errors"

var (
	// ErrNotConnected is returned from Send when the sink's transport is
	// not currently connected.
	ErrNotConnected = errors.New("output: not connected")

	// ErrConnectFailed is returned when establishing a sink connection
	// fails.
	ErrConnectFailed = errors.New("output: connect failed")

	// ErrPublishFailed is returned when a connected sink fails to deliver
	// a reading.
	ErrPublishFailed = errors.New("output: publish failed")

	// ErrSinkUnavailable is returned when a reading is routed to a sink
	// name that is not among the active sinks.
	ErrSinkUnavailable = errors.New("output: sink unavailable")

	// ErrUnknownSinkType is returned by the manager when configuration
	// names a sink with no registered constructor.
	ErrUnknownSinkType = errors.New("output: unknown sink type")
)
