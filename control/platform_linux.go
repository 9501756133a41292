//go:build linux
// +build linux

// control/platform_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific debug probe integrations.

package control

import (
	"os"
	"runtime"

	"golang.org/x/sys/unix"
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
	_ = dp.RegisterProbe("platform.nofile_limit", func() any {
		var lim unix.Rlimit
		if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
			return nil
		}
		return lim.Cur
	})
}
