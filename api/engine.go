// File: api/engine.go
// Package api defines the contract shared by the echo engines.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "context"

// Engine serves echo connections until its context is cancelled.
type Engine interface {
	// Serve blocks until ctx is cancelled or a fatal error occurs, then
	// releases every connection and listening socket before returning.
	Serve(ctx context.Context) error

	// ActiveConnections reports live connections. Safe for concurrent use.
	ActiveConnections() int64
}
