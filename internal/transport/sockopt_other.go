// internal/transport/sockopt_other.go
//go:build !linux
// +build !linux

//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"net"
	"syscall"
)

// listenControl leaves socket options at the platform defaults.
func listenControl(reusePort bool) func(network, address string, rc syscall.RawConn) error {
	return nil
}

func setNoDelay(nc net.Conn) error {
	if tc, ok := nc.(*net.TCPConn); ok {
		return tc.SetNoDelay(true)
	}
	return nil
}
