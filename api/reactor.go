// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Defines the abstract interface for readiness multiplexers used by the
// single-threaded echo reactor.

package api

// Interest is the single readiness kind a socket is registered for.
type Interest uint8

const (
	InterestAccept Interest = iota + 1
	InterestRead
	InterestWrite
)

func (i Interest) String() string {
	switch i {
	case InterestAccept:
		return "accept"
	case InterestRead:
		return "read"
	case InterestWrite:
		return "write"
	default:
		return "none"
	}
}

// EventKind tags a readiness Event.
type EventKind uint8

const (
	EventAccept EventKind = iota + 1
	EventRead
	EventWrite
)

func (k EventKind) String() string {
	switch k {
	case EventAccept:
		return "accept"
	case EventRead:
		return "read"
	case EventWrite:
		return "write"
	default:
		return "invalid"
	}
}

// Event is one readiness notification returned by Multiplexer.Wait.
type Event struct {
	Kind EventKind
	ID   ConnID
}

// Multiplexer blocks until registered sockets become ready.
//
// Each socket holds exactly one Interest at a time. Reregister replaces
// it; it never adds to it. Implementations are owned by one goroutine,
// except Wake and Len which are safe to call from anywhere.
type Multiplexer interface {
	// Register starts watching p for interest.
	Register(p Pollable, interest Interest) error

	// Reregister replaces the interest of an already registered p.
	Reregister(p Pollable, interest Interest) error

	// Deregister stops watching p. It must be called before p is closed.
	Deregister(p Pollable) error

	// Wait blocks until at least one event is ready (or Wake is called)
	// and fills events. It returns the number of events written.
	Wait(events []Event) (int, error)

	// Wake interrupts a blocked Wait.
	Wake() error

	// Len reports the number of live registrations.
	Len() int

	Close() error
}
