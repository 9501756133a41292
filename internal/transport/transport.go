// Package transport
// Author: momentics <momentics@gmail.com>
//
// Platform-independent entry point for listener creation.

package transport

import "github.com/momentics/hioload-echo/api"

// DefaultBacklog is the listen(2) backlog used when none is configured.
const DefaultBacklog = 1024

// Listen opens a non-blocking TCP listener on addr.
// An empty host (":3000") binds all IPv4 interfaces.
func Listen(addr string, backlog int) (api.Listener, error) {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	return listen(addr, backlog)
}
