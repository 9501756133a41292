// File: server/options.go
// Package server defines functional options for the echo Server.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"go.uber.org/zap"

	"github.com/momentics/hioload-echo/control"
)

// Option customizes server initialization.
type Option func(*Server)

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics shares a Metrics instance, e.g. with the admin endpoint.
func WithMetrics(m *control.Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithProbes registers the server's debug probes on dp.
func WithProbes(dp *control.DebugProbes) Option {
	return func(s *Server) {
		s.probes = dp
	}
}
