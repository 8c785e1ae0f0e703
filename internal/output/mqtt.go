package output

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/loxgate/internal/infrastructure/config"
	"github.com/nerrad567/loxgate/internal/protocol"
)

// ConnState is the broker sink's connection state.
type ConnState int

const (
	// StateDisconnected means no connection exists and no worker is
	// trying to establish one.
	StateDisconnected ConnState = iota

	// StateConnecting means a synchronous connect is in flight.
	StateConnecting

	// StateConnected means the transport is up and publishes may proceed.
	StateConnected

	// StateReconnecting means a background worker is retrying the
	// connection on the backoff schedule.
	StateReconnecting
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Transport is the broker wire client behind the MQTT sink. It exists so
// tests can drive the sink's state machine without a live broker.
type Transport interface {
	Connect() error
	Publish(topic string, qos byte, payload []byte) error
	IsConnected() bool
	Disconnect()

	// SetConnectionLostHandler registers the callback invoked when an
	// established connection drops unexpectedly. A clean Disconnect must
	// not trigger it.
	SetConnectionLostHandler(fn func(err error))
}

// defaultJoinTimeout bounds how long Disconnect waits for the
// reconnection worker to acknowledge the stop signal.
const defaultJoinTimeout = 5 * time.Second

// topicCategories maps device type tokens to the human-readable topic
// segment published under "<prefix>/type/". Unlisted types publish under
// their raw token.
var topicCategories = map[string]string{
	protocol.DeviceTypeLight: "hue",
	protocol.DeviceTypePower: "powermeter",
}

// MQTTSink republishes the original packet text of each reading to an
// MQTT broker. It owns its reconnection lifecycle: a lost connection or
// failed connect starts a single background worker that retries on a
// fixed short interval for an initial run of attempts, then on a long
// interval for the remainder of that worker's lifetime.
type MQTTSink struct {
	name        string
	transport   Transport
	topicPrefix string
	qos         byte

	shortInterval   time.Duration
	longInterval    time.Duration
	initialAttempts int
	joinTimeout     time.Duration

	mu          sync.Mutex
	state       ConnState
	attempts    int
	pendingLost bool          // transport dropped while a connect was in flight
	stopCh      chan struct{} // closed by Disconnect to stop the worker
	loopDone    chan struct{} // non-nil while a worker is alive

	logger Logger
}

// NewMQTTSink builds a broker sink over a paho transport configured from
// cfg. The returned sink is disconnected; call Connect to bring it up.
func NewMQTTSink(name string, cfg config.OutputConfig, logger Logger) *MQTTSink {
	return newMQTTSinkWithTransport(name, cfg, newPahoTransport(cfg), logger)
}

func newMQTTSinkWithTransport(name string, cfg config.OutputConfig, transport Transport, logger Logger) *MQTTSink {
	prefix := cfg.TopicPrefix
	if prefix == "" {
		prefix = "loxone"
	}
	s := &MQTTSink{
		name:            name,
		transport:       transport,
		topicPrefix:     prefix,
		qos:             byte(cfg.QoS),
		shortInterval:   cfg.Reconnect.ShortInterval(),
		longInterval:    cfg.Reconnect.LongInterval(),
		initialAttempts: cfg.Reconnect.RetryInitialAttempts,
		joinTimeout:     defaultJoinTimeout,
		state:           StateDisconnected,
		logger:          orNoop(logger),
	}
	if transport != nil {
		transport.SetConnectionLostHandler(s.handleConnectionLost)
	}
	return s
}

// Name returns the sink's configured name.
func (s *MQTTSink) Name() string { return s.name }

// State returns the current connection state.
func (s *MQTTSink) State() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Retrying reports whether the reconnection worker is running.
func (s *MQTTSink) Retrying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loopDone != nil
}

// Connect attempts a synchronous broker connection. When already
// connected it is a no-op. When the connect fails the sink starts its
// reconnection worker and returns the error; the sink remains usable and
// will come up in the background.
func (s *MQTTSink) Connect() error {
	s.mu.Lock()
	switch {
	case s.state == StateConnected:
		s.mu.Unlock()
		return nil
	case s.loopDone != nil:
		s.mu.Unlock()
		return fmt.Errorf("%w: reconnection already in progress", ErrConnectFailed)
	}
	s.state = StateConnecting
	s.pendingLost = false
	s.mu.Unlock()

	err := s.transport.Connect()
	if err == nil {
		s.mu.Lock()
		lost := s.pendingLost
		s.pendingLost = false
		if !lost {
			s.state = StateConnected
			s.attempts = 0
			s.mu.Unlock()
			s.logger.Info("broker connected", "sink", s.name)
			return nil
		}
		s.mu.Unlock()
		err = errLostDuringSetup
	}

	s.logger.Warn("broker connect failed", "sink", s.name, "error", err)
	s.startReconnectLoop()
	return fmt.Errorf("%w: %w", ErrConnectFailed, err)
}

// Send publishes the reading's original packet text to
// "<prefix>/type/<category>". Readings built without a raw packet fall
// back to reconstructing one from the reading's fields.
func (s *MQTTSink) Send(r *protocol.Reading) error {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	if state != StateConnected || !s.transport.IsConnected() {
		return fmt.Errorf("%w: broker sink %q in state %s", ErrNotConnected, s.name, state)
	}

	payload := r.RawPacket
	if payload == "" {
		payload = reconstructPacket(r)
	}
	if payload == "" {
		return fmt.Errorf("%w: reading has no publishable packet text", ErrPublishFailed)
	}

	topic := s.topicPrefix + "/type/" + topicCategory(r.DeviceType)
	if err := s.transport.Publish(topic, s.qos, []byte(payload)); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	s.logger.Debug("published packet", "sink", s.name, "topic", topic)
	return nil
}

// Disconnect stops the reconnection worker if one is running, waits a
// bounded time for it to exit, and tears the transport down. Safe to call
// repeatedly and when Connect never succeeded.
func (s *MQTTSink) Disconnect() {
	s.mu.Lock()
	stop, done := s.stopCh, s.loopDone
	s.stopCh = nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	if done != nil {
		select {
		case <-done:
		case <-time.After(s.joinTimeout):
			s.logger.Warn("reconnect worker did not stop in time", "sink", s.name, "timeout", s.joinTimeout)
		}
	}

	s.transport.Disconnect()

	s.mu.Lock()
	s.state = StateDisconnected
	s.pendingLost = false
	s.mu.Unlock()
	s.logger.Info("broker disconnected", "sink", s.name)
}

// errLostDuringSetup marks a connect attempt whose transport came up and
// dropped again before the sink could record it as connected.
var errLostDuringSetup = errors.New("connection lost before setup completed")

// handleConnectionLost is invoked by the transport when a connection
// drops without a clean Disconnect. A drop that lands while a connect
// attempt is still in flight is flagged so the attempt cannot declare
// the dead transport connected.
func (s *MQTTSink) handleConnectionLost(err error) {
	s.mu.Lock()
	switch s.state {
	case StateConnecting, StateReconnecting:
		s.pendingLost = true
		s.mu.Unlock()
		return
	case StateConnected:
		s.state = StateDisconnected
	default:
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.logger.Warn("broker connection lost", "sink", s.name, "error", err)
	s.startReconnectLoop()
}

// startReconnectLoop starts the background worker unless one is already
// alive. At most one worker exists at any time.
func (s *MQTTSink) startReconnectLoop() {
	s.mu.Lock()
	if s.loopDone != nil {
		s.mu.Unlock()
		return
	}
	s.state = StateReconnecting
	s.stopCh = make(chan struct{})
	s.loopDone = make(chan struct{})
	stop, done := s.stopCh, s.loopDone
	s.mu.Unlock()

	go s.reconnectLoop(stop, done)
}

func (s *MQTTSink) reconnectLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer func() {
		s.mu.Lock()
		s.loopDone = nil
		s.mu.Unlock()
	}()

	for attempt := 1; ; attempt++ {
		select {
		case <-stop:
			return
		default:
		}

		s.mu.Lock()
		s.attempts = attempt
		s.pendingLost = false
		s.mu.Unlock()

		s.logger.Info("broker reconnect attempt", "sink", s.name, "attempt", attempt)
		err := s.transport.Connect()
		if err == nil {
			s.mu.Lock()
			lost := s.pendingLost
			s.pendingLost = false
			if !lost {
				s.state = StateConnected
				s.attempts = 0
				s.mu.Unlock()
				s.logger.Info("broker reconnected", "sink", s.name, "attempts", attempt)
				return
			}
			s.mu.Unlock()
			err = errLostDuringSetup
		}
		s.logger.Warn("broker reconnect failed", "sink", s.name, "attempt", attempt, "error", err)

		select {
		case <-stop:
			return
		case <-time.After(s.retryInterval(attempt)):
		}
	}
}

// retryInterval returns the delay to wait after the given attempt number
// (1-based). The first initialAttempts attempts use the short interval;
// every attempt after that uses the long interval.
func (s *MQTTSink) retryInterval(attempt int) time.Duration {
	if attempt <= s.initialAttempts {
		return s.shortInterval
	}
	return s.longInterval
}

func topicCategory(deviceType string) string {
	if c, ok := topicCategories[deviceType]; ok {
		return c
	}
	return deviceType
}

// reconstructPacket rebuilds the wire text "<ts>;<src>;<data>" for
// readings that were not produced by the packet decoder. It only handles
// raw passthrough values; anything richer must carry RawPacket.
func reconstructPacket(r *protocol.Reading) string {
	data := r.RawPayload
	if data == "" {
		raw, ok := r.Value["raw"]
		if !ok {
			raw, ok = r.Value["raw_value"]
		}
		if !ok {
			return ""
		}
		data = fmt.Sprintf("%s%s.%v", r.DeviceType, r.DeviceID, raw)
	}
	return fmt.Sprintf("%s;%s;%s", r.Timestamp, r.Source, data)
}
