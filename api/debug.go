// Package api
// Author: momentics
//
// Live debug support for running servers.

package api

// Debug exposes runtime introspection.
type Debug interface {
	// DumpState emits a snapshot of system state for diagnostics.
	DumpState() map[string]any

	// DumpJSON renders DumpState as JSON.
	DumpJSON() ([]byte, error)

	// RegisterProbe dynamically registers new debug probes.
	RegisterProbe(name string, fn func() any)
}
