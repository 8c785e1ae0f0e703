package gateway

import (
	"sort"

	"github.com/nerrad567/loxgate/internal/infrastructure/config"
)

// RoutingTable maps device-type tokens to an ordered list of output sink
// names. It is built once from configuration and read-only afterwards.
type RoutingTable struct {
	routes map[string][]string
}

// NewRoutingTable builds the table from the routing configuration
// section. Entries with an empty output list are kept; they route
// nowhere, which is a valid way to silence a device type.
func NewRoutingTable(cfg config.RoutingConfig) *RoutingTable {
	routes := make(map[string][]string, len(cfg))
	for deviceType, entry := range cfg {
		outputs := make([]string, len(entry.Outputs))
		copy(outputs, entry.Outputs)
		routes[deviceType] = outputs
	}
	return &RoutingTable{routes: routes}
}

// Outputs returns the sink names for a device type, in configuration
// order. An unrouted type returns nil.
func (t *RoutingTable) Outputs(deviceType string) []string {
	return t.routes[deviceType]
}

// Types returns every routed device type, sorted.
func (t *RoutingTable) Types() []string {
	types := make([]string, 0, len(t.routes))
	for deviceType := range t.routes {
		types = append(types, deviceType)
	}
	sort.Strings(types)
	return types
}

// Snapshot returns a copy of the full table for status reporting.
func (t *RoutingTable) Snapshot() map[string][]string {
	snapshot := make(map[string][]string, len(t.routes))
	for deviceType, outputs := range t.routes {
		c := make([]string, len(outputs))
		copy(c, outputs)
		snapshot[deviceType] = c
	}
	return snapshot
}
