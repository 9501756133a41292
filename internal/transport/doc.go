// File: internal/transport/doc.go
// Package transport
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Raw non-blocking TCP sockets for the echo reactor.
// Accept, read and write never block: would-block surfaces as
// api.ErrWouldBlock on accept and as zero progress on read/write.
// The Linux implementation talks to the kernel through golang.org/x/sys/unix,
// bypassing the Go runtime poller so that readiness is owned entirely by
// the reactor's own epoll instance.

package transport
