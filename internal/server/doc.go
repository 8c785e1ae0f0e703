// Package server runs the gateway's UDP listeners.
//
// Every configured port is bound on the same address and served by its
// own goroutine. Each datagram is one packet: the raw bytes are echoed
// back to the sender as a receipt acknowledgment, then the packet text is
// handed to the pipeline. Close stops every listener and waits for the
// serve goroutines to drain.
package server
