// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral helpers shared by the multiplexer implementations.

package reactor

// DefaultMaxEvents is the batch size used when none is configured.
const DefaultMaxEvents = 128

func normalizeMaxEvents(n int) int {
	if n <= 0 {
		return DefaultMaxEvents
	}
	return n
}
