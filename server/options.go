// File: server/options.go
// Package server defines functional options for the Server.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"log"

	"github.com/momentics/loopws/api"
	"github.com/momentics/loopws/control"
)

// ProviderFactory builds the transport provider. exec is the server's event
// loop; every completion the provider reports must be posted to it.
type ProviderFactory func(exec api.Executor) api.Provider

// ServerOption customizes server initialization.
type ServerOption func(*Server)

// WithProvider replaces the TCP provider.
func WithProvider(f ProviderFactory) ServerOption {
	return func(s *Server) {
		s.newProvider = f
	}
}

// WithLogger overrides Config.Logger.
func WithLogger(l *log.Logger) ServerOption {
	return func(s *Server) {
		s.log = l
	}
}

// WithMetrics shares a metrics registry with the server.
func WithMetrics(m *control.MetricsRegistry) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithDebug shares a debug probe registry with the server.
func WithDebug(d *control.DebugProbes) ServerOption {
	return func(s *Server) {
		s.debug = d
	}
}
