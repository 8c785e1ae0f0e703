// Package gateway wires the packet pipeline together: decode, handler
// normalisation, routing, and fan-out dispatch to output sinks.
//
// The pipeline is fail-closed per stage. A packet that fails to decode,
// finds no handler, or is rejected by its handler is counted and dropped;
// it never reaches dispatch. Dispatch isolates sink failures from each
// other: every routed sink is attempted and reports its own success or
// failure, so one dead integration never blocks the others.
package gateway
