// Package session
// Author: momentics <momentics@gmail.com>
//
// Registry of live connections keyed by transport handle.
// The registry is sharded so that statistics and debug probes may read it
// from any goroutine while the event loop mutates it.

package session
