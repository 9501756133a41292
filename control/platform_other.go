//go:build !linux
// +build !linux

// control/platform_other.go
// Author: momentics <momentics@gmail.com>

package control

import (
	"os"
	"runtime"
)

// RegisterPlatformProbes adds process-level probes.
func RegisterPlatformProbes(dp *DebugProbes) {
	_ = dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	_ = dp.RegisterProbe("platform.goroutines", func() any {
		return runtime.NumGoroutine()
	})
	_ = dp.RegisterProbe("platform.pid", func() any {
		return os.Getpid()
	})
}
