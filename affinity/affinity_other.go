//go:build !linux

// File: affinity/affinity_other.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for platforms without thread affinity support.

package affinity

import (
	"fmt"

	"github.com/momentics/hioload-echo/api"
)

func setAffinityPlatform(int) (func() error, error) {
	return nil, fmt.Errorf("affinity: %w", api.ErrNotSupported)
}

// Current is unavailable on this platform.
func Current() ([]int, error) {
	return nil, fmt.Errorf("affinity: %w", api.ErrNotSupported)
}
