// control/debug.go
// Author: momentics <momentics@gmail.com>
//
// Named debug probes for runtime introspection.

package control

import (
	"fmt"
	"sort"
	"sync"

	"github.com/momentics/hioload-echo/api"
)

// Probe returns a point-in-time value. It must be safe to call from any
// goroutine.
type Probe func() any

// DebugProbes holds registered probe functions.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]Probe
}

// NewDebugProbes creates a probe registry.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{
		probes: make(map[string]Probe),
	}
}

// RegisterProbe inserts a named probe; names are unique.
func (dp *DebugProbes) RegisterProbe(name string, fn Probe) error {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	if _, ok := dp.probes[name]; ok {
		return fmt.Errorf("probe %q: %w", name, api.ErrAlreadyExists)
	}
	dp.probes[name] = fn
	return nil
}

// Names lists registered probes in sorted order.
func (dp *DebugProbes) Names() []string {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	names := make([]string, 0, len(dp.probes))
	for k := range dp.probes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// DumpState returns output of all probes.
func (dp *DebugProbes) DumpState() map[string]any {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	out := make(map[string]any, len(dp.probes))
	for k, fn := range dp.probes {
		out[k] = fn()
	}
	return out
}
