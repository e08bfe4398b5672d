// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics and debug introspection for a running loopws server.
//
// Provides concurrent-safe state handling primitives including:
//   - Counters and gauges readable as one snapshot
//   - Named debug probes rendered as a map or as JSON
//   - Platform probes, build-tag-partitioned
package control
