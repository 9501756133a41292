//go:build linux

// File: affinity/affinity_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific implementation for setting thread CPU affinity.

package affinity

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-echo/api"
)

// setAffinityPlatform binds the calling thread (tid 0) to cpuID and
// returns a func restoring the previous mask.
func setAffinityPlatform(cpuID int) (func() error, error) {
	if cpuID < 0 {
		return nil, fmt.Errorf("affinity: cpu %d: %w", cpuID, api.ErrInvalidArgument)
	}
	var prev unix.CPUSet
	if err := unix.SchedGetaffinity(0, &prev); err != nil {
		return nil, os.NewSyscallError("sched_getaffinity", err)
	}
	var set unix.CPUSet
	set.Set(cpuID)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return nil, fmt.Errorf("affinity: cpu %d: %w", cpuID, os.NewSyscallError("sched_setaffinity", err))
	}
	return func() error {
		return unix.SchedSetaffinity(0, &prev)
	}, nil
}

// Current returns the CPUs the calling thread may run on.
func Current() ([]int, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return nil, os.NewSyscallError("sched_getaffinity", err)
	}
	var cpus []int
	for i := 0; i < len(set)*64; i++ {
		if set.IsSet(i) {
			cpus = append(cpus, i)
		}
	}
	return cpus, nil
}
