// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are located
// in separate files guarded by build tags.

package affinity

import "runtime"

// Pin locks the calling goroutine to its OS thread and restricts that
// thread to cpuID. release restores the previous mask and unlocks the
// thread; it must be called from the same goroutine.
func Pin(cpuID int) (release func(), err error) {
	runtime.LockOSThread()
	restore, err := setAffinityPlatform(cpuID)
	if err != nil {
		runtime.UnlockOSThread()
		return nil, err
	}
	return func() {
		// A thread whose mask cannot be restored stays locked so the
		// runtime retires it with the goroutine.
		if restore() == nil {
			runtime.UnlockOSThread()
		}
	}, nil
}
