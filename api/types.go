// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations, DTOs, and constants.

package api

import "time"

// ConnState enumerates the lifecycle of a WebSocket connection. Transitions
// are linear: Handshaking, Open, Closing, Closed.
type ConnState int32

const (
	StateHandshaking ConnState = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateHandshaking:
		return "handshaking"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ConnStats is a snapshot of per-connection traffic counters.
type ConnStats struct {
	FramesReceived int64
	FramesSent     int64
	BytesReceived  int64
	BytesSent      int64
}

// ServerStats provides a standard layout for server health reporting.
type ServerStats struct {
	OpenConnections int
	Accepted        int64
	Messages        int64
	StartedAt       time.Time
}
