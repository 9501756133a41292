//go:build !linux
// +build !linux

// Package transport
// Author: momentics <momentics@gmail.com>
//
// Stub for platforms without the raw socket implementation.

package transport

import (
	"fmt"

	"github.com/momentics/hioload-echo/api"
)

func listen(addr string, _ int) (api.Listener, error) {
	return nil, fmt.Errorf("listen %s: %w", addr, api.ErrNotSupported)
}
