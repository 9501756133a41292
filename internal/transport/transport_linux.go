// internal/transport/transport_linux.go
//go:build linux
// +build linux

//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux non-blocking sockets via golang.org/x/sys/unix.

package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-echo/api"
)

type linuxListener struct {
	fd     int
	addr   net.Addr
	next   api.ConnID
	closed bool
}

func listen(addr string, backlog int) (api.Listener, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}
	family, sa := toSockaddr(tcpAddr)

	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("socket create: %w", err)
	}
	fail := func(op string, err error) (api.Listener, error) {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("%s %s: %w", op, addr, os.NewSyscallError(op, err))
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fail("setsockopt", err)
	}
	if err := unix.Bind(fd, sa); err != nil {
		return fail("bind", err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		return fail("listen", err)
	}
	local, err := unix.Getsockname(fd)
	if err != nil {
		return fail("getsockname", err)
	}
	return &linuxListener{fd: fd, addr: fromSockaddr(local)}, nil
}

func toSockaddr(a *net.TCPAddr) (int, unix.Sockaddr) {
	if a.IP == nil || a.IP.To4() != nil {
		sa := &unix.SockaddrInet4{Port: a.Port}
		if ip4 := a.IP.To4(); ip4 != nil {
			copy(sa.Addr[:], ip4)
		}
		return unix.AF_INET, sa
	}
	sa := &unix.SockaddrInet6{Port: a.Port}
	copy(sa.Addr[:], a.IP.To16())
	return unix.AF_INET6, sa
}

func fromSockaddr(sa unix.Sockaddr) net.Addr {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IPv4(v.Addr[0], v.Addr[1], v.Addr[2], v.Addr[3]), Port: v.Port}
	case *unix.SockaddrInet6:
		ip := make(net.IP, net.IPv6len)
		copy(ip, v.Addr[:])
		return &net.TCPAddr{IP: ip, Port: v.Port}
	default:
		return nil
	}
}

func (l *linuxListener) ID() api.ConnID { return api.ListenerID }

func (l *linuxListener) Fd() int { return l.fd }

func (l *linuxListener) Addr() net.Addr { return l.addr }

// Accept takes one pending connection off the backlog.
func (l *linuxListener) Accept() (api.Socket, error) {
	if l.closed {
		return nil, api.ErrClosed
	}
	for {
		nfd, sa, err := unix.Accept4(l.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		switch {
		case err == nil:
			_ = unix.SetsockoptInt(nfd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
			l.next++
			return &linuxSocket{id: l.next, fd: nfd, remote: fromSockaddr(sa)}, nil
		case errors.Is(err, unix.EINTR), errors.Is(err, unix.ECONNABORTED):
			continue
		case errors.Is(err, unix.EAGAIN):
			return nil, api.ErrWouldBlock
		default:
			return nil, os.NewSyscallError("accept4", err)
		}
	}
}

func (l *linuxListener) Close() error {
	if l.closed {
		return api.ErrClosed
	}
	l.closed = true
	return unix.Close(l.fd)
}

type linuxSocket struct {
	id     api.ConnID
	fd     int
	remote net.Addr
	closed bool
}

func (s *linuxSocket) ID() api.ConnID { return s.id }

func (s *linuxSocket) Fd() int { return s.fd }

func (s *linuxSocket) RemoteAddr() net.Addr { return s.remote }

// Read performs one non-blocking read(2).
func (s *linuxSocket) Read(p []byte) (int, error) {
	if s.closed {
		return 0, api.ErrClosed
	}
	for {
		n, err := unix.Read(s.fd, p)
		switch {
		case err == nil:
			if n == 0 && len(p) > 0 {
				return 0, io.EOF
			}
			return n, nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return 0, nil
		default:
			return 0, os.NewSyscallError("read", err)
		}
	}
}

// Write performs one non-blocking write(2).
func (s *linuxSocket) Write(p []byte) (int, error) {
	if s.closed {
		return 0, api.ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	for {
		n, err := unix.Write(s.fd, p)
		switch {
		case err == nil:
			return n, nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return 0, nil
		default:
			return 0, os.NewSyscallError("write", err)
		}
	}
}

func (s *linuxSocket) Close() error {
	if s.closed {
		return api.ErrClosed
	}
	s.closed = true
	return unix.Close(s.fd)
}
