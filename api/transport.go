// File: api/transport.go
// Author: momentics <momentics@gmail.com>
//
// Non-blocking socket primitives consumed by the reactor core.

package api

import "net"

// ConnID is an opaque, comparable connection identity.
// It is never reused within a process and is not an OS handle.
type ConnID uint64

// ListenerID is the identity reserved for the listening socket.
const ListenerID ConnID = 0

// Pollable is anything a Multiplexer can watch.
type Pollable interface {
	// ID returns the identity reported back in readiness events.
	ID() ConnID

	// Fd returns the OS-level descriptor.
	Fd() int
}

// Socket is a connected, non-blocking stream socket.
//
// Read and Write never block: a would-block condition is reported
// as (0, nil). Read reports end-of-stream as io.EOF.
type Socket interface {
	Pollable

	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error

	// RemoteAddr returns the peer address, if known.
	RemoteAddr() net.Addr
}

// Listener is a non-blocking listening socket.
type Listener interface {
	Pollable

	// Accept returns the next pending connection, or ErrWouldBlock
	// when none is pending.
	Accept() (Socket, error)

	// Addr returns the bound local address.
	Addr() net.Addr

	Close() error
}
