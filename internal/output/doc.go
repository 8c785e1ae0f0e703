// Package output provides the gateway's output sinks.
//
// A sink is an independent integration owning its own connection
// lifecycle behind a single contract:
//
//	Connect() error
//	Send(*protocol.Reading) error
//	Disconnect()
//
// Send reports transport-level failure through its error return and never
// panics; Disconnect is safe to call repeatedly and from a state where
// Connect never succeeded. Three sinks are built in:
//
//   - "hue": commands a Philips Hue style light bridge over its REST API
//   - "telegraf": emits InfluxDB line protocol datagrams to a Telegraf
//     socket listener
//   - "mqtt": republishes the original packet text to an MQTT broker,
//     with a background reconnection state machine (the only concurrent
//     component in the gateway core)
//
// The Manager builds enabled sinks from configuration through an explicit
// constructor table, connects them, and owns their shutdown. Sinks are
// selected per reading by the routing table in the gateway package.
package output
