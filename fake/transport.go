// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Provides predictable, controllable behavior for the socket and
// multiplexer contracts in api.

package fake

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/momentics/hioload-echo/api"
)

// Socket is an in-memory api.Socket.
//
// Reads are served chunk by chunk from queued input, so one Feed call
// equals one read event worth of bytes. Writes can be capped per call
// to simulate a peer that drains slowly.
type Socket struct {
	mu sync.Mutex

	id     api.ConnID
	fd     int
	remote net.Addr

	input  [][]byte
	eof    bool
	closed bool

	readErr  error
	writeErr error
	caps     []int

	written    bytes.Buffer
	writeCalls int
	closeCalls int
}

// NewSocket returns a Socket with the given identity.
func NewSocket(id api.ConnID) *Socket {
	return &Socket{
		id:     id,
		fd:     1000 + int(id),
		remote: &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 40000 + int(id)},
	}
}

// ID implements api.Pollable.
func (s *Socket) ID() api.ConnID { return s.id }

// Fd implements api.Pollable.
func (s *Socket) Fd() int { return s.fd }

// RemoteAddr implements api.Socket.
func (s *Socket) RemoteAddr() net.Addr { return s.remote }

// Read implements api.Socket.Read.
func (s *Socket) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, api.ErrClosed
	}
	if s.readErr != nil {
		return 0, s.readErr
	}
	if len(s.input) > 0 {
		n := copy(p, s.input[0])
		if n == len(s.input[0]) {
			s.input = s.input[1:]
		} else {
			s.input[0] = s.input[0][n:]
		}
		return n, nil
	}
	if s.eof {
		return 0, io.EOF
	}
	return 0, nil
}

// Write implements api.Socket.Write.
func (s *Socket) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, api.ErrClosed
	}
	s.writeCalls++
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	n := len(p)
	if len(s.caps) > 0 {
		if c := s.caps[0]; c >= 0 && c < n {
			n = c
		}
		s.caps = s.caps[1:]
	}
	s.written.Write(p[:n])
	return n, nil
}

// Close implements api.Socket.Close.
func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeCalls++
	if s.closed {
		return api.ErrClosed
	}
	s.closed = true
	return nil
}

// Feed queues data to be returned by one future Read.
func (s *Socket) Feed(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = append(s.input, append([]byte(nil), data...))
}

// SetEOF makes Read report io.EOF once the queued input is consumed.
func (s *Socket) SetEOF() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eof = true
}

// SetReadError configures the socket to fail every Read.
func (s *Socket) SetReadError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readErr = err
}

// SetWriteError configures the socket to fail every Write.
func (s *Socket) SetWriteError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

// LimitWrites caps the next Write calls, one cap per call.
// A negative cap means unlimited; once the caps run out writes are unlimited.
func (s *Socket) LimitWrites(caps ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caps = append(s.caps, caps...)
}

// Written returns a copy of every byte accepted by Write.
func (s *Socket) Written() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.written.Bytes()...)
}

// WriteCalls reports how many times Write was invoked on an open socket.
func (s *Socket) WriteCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeCalls
}

// Closed reports whether Close was called.
func (s *Socket) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// CloseCalls reports how many times Close was called.
func (s *Socket) CloseCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCalls
}

func (s *Socket) String() string {
	return fmt.Sprintf("fake.Socket(%d)", s.id)
}

// Listener is an in-memory api.Listener.
type Listener struct {
	mu        sync.Mutex
	pending   []api.Socket
	acceptErr error
	closed    bool
}

// NewListener returns an empty Listener.
func NewListener() *Listener {
	return &Listener{}
}

// ID implements api.Pollable.
func (l *Listener) ID() api.ConnID { return api.ListenerID }

// Fd implements api.Pollable.
func (l *Listener) Fd() int { return 3 }

// Addr implements api.Listener.
func (l *Listener) Addr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4zero, Port: 3000}
}

// Accept implements api.Listener.Accept.
func (l *Listener) Accept() (api.Socket, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, api.ErrClosed
	}
	if l.acceptErr != nil {
		err := l.acceptErr
		l.acceptErr = nil
		return nil, err
	}
	if len(l.pending) == 0 {
		return nil, api.ErrWouldBlock
	}
	s := l.pending[0]
	l.pending = l.pending[1:]
	return s, nil
}

// Close implements api.Listener.Close.
func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

// Enqueue makes socks available to Accept, in order.
func (l *Listener) Enqueue(socks ...api.Socket) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = append(l.pending, socks...)
}

// FailNextAccept makes the next Accept return err.
func (l *Listener) FailNextAccept(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.acceptErr = err
}

// Closed reports whether Close was called.
func (l *Listener) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}
