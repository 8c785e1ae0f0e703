package output

import (
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/nerrad567/loxgate/internal/infrastructure/config"
)

// Connection constants for the paho transport.
const (
	// defaultConnectTimeout is the maximum time to wait for a broker
	// connection.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout is the maximum time to wait for publish
	// acknowledgment.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations
	// on disconnect.
	defaultDisconnectQuiesce = 1000 // milliseconds

	// defaultBrokerPort is the standard MQTT plaintext port.
	defaultBrokerPort = 1883

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 60 * time.Second

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12
)

// pahoTransport adapts the eclipse paho client to the Transport
// interface. Paho's own auto-reconnect is disabled; the MQTT sink owns
// reconnection so the retry schedule stays under one state machine.
type pahoTransport struct {
	client         pahomqtt.Client
	connectTimeout time.Duration
	publishTimeout time.Duration

	mu     sync.RWMutex
	onLost func(err error)
}

func newPahoTransport(cfg config.OutputConfig) *pahoTransport {
	t := &pahoTransport{
		connectTimeout: defaultConnectTimeout,
		publishTimeout: defaultPublishTimeout,
	}

	opts := pahomqtt.NewClientOptions()

	scheme := "tcp"
	if cfg.TLS {
		scheme = "ssl"
		opts.SetTLSConfig(&tls.Config{MinVersion: tlsMinVersion})
	}
	port := cfg.Port
	if port == 0 {
		port = defaultBrokerPort
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, port))

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "loxgate-" + uuid.NewString()[:8]
	}
	opts.SetClientID(clientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(t.connectTimeout)

	keepalive := defaultKeepAlive
	if cfg.Keepalive > 0 {
		keepalive = time.Duration(cfg.Keepalive) * time.Second
	}
	opts.SetKeepAlive(keepalive)

	// Paho only invokes this for unexpected drops, never for a clean
	// Disconnect call.
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		t.mu.RLock()
		fn := t.onLost
		t.mu.RUnlock()
		if fn != nil {
			fn(err)
		}
	})

	t.client = pahomqtt.NewClient(opts)
	return t
}

func (t *pahoTransport) SetConnectionLostHandler(fn func(err error)) {
	t.mu.Lock()
	t.onLost = fn
	t.mu.Unlock()
}

func (t *pahoTransport) Connect() error {
	token := t.client.Connect()
	if !token.WaitTimeout(t.connectTimeout) {
		return fmt.Errorf("connect timed out after %s", t.connectTimeout)
	}
	return token.Error()
}

func (t *pahoTransport) Publish(topic string, qos byte, payload []byte) error {
	token := t.client.Publish(topic, qos, false, payload)
	if !token.WaitTimeout(t.publishTimeout) {
		return fmt.Errorf("publish timed out after %s", t.publishTimeout)
	}
	return token.Error()
}

func (t *pahoTransport) IsConnected() bool {
	return t.client.IsConnected()
}

func (t *pahoTransport) Disconnect() {
	if t.client.IsConnected() {
		t.client.Disconnect(defaultDisconnectQuiesce)
	}
}
