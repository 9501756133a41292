//go:build linux
// +build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7)-based multiplexer.

package reactor

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-echo/api"
)

type registration struct {
	id       api.ConnID
	interest api.Interest
}

// linuxMultiplexer is a level-triggered epoll multiplexer.
//
// The registration table is touched only by the goroutine that calls
// Wait; count mirrors its size for readers on other goroutines.
type linuxMultiplexer struct {
	epfd   int
	wakefd int
	raw    []unix.EpollEvent
	regs   map[int]registration
	count  atomic.Int64

	// mu orders Wake against Close so a late Wake never writes to a
	// recycled descriptor.
	mu     sync.RWMutex
	closed bool
}

// NewMultiplexer constructs the epoll multiplexer. maxEvents bounds the
// number of readiness events collected by one Wait.
func NewMultiplexer(maxEvents int) (api.Multiplexer, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		_ = unix.Close(wakefd)
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("epoll ctl add eventfd: %w", err)
	}
	return &linuxMultiplexer{
		epfd:   epfd,
		wakefd: wakefd,
		raw:    make([]unix.EpollEvent, normalizeMaxEvents(maxEvents)),
		regs:   make(map[int]registration),
	}, nil
}

func eventsFor(in api.Interest) (uint32, error) {
	switch in {
	case api.InterestAccept, api.InterestRead:
		return unix.EPOLLIN | unix.EPOLLRDHUP, nil
	case api.InterestWrite:
		return unix.EPOLLOUT, nil
	default:
		return 0, fmt.Errorf("interest %d: %w", in, api.ErrInvalidArgument)
	}
}

func kindFor(in api.Interest) api.EventKind {
	switch in {
	case api.InterestAccept:
		return api.EventAccept
	case api.InterestWrite:
		return api.EventWrite
	default:
		return api.EventRead
	}
}

// Register adds p to the epoll watch list with a single interest.
func (m *linuxMultiplexer) Register(p api.Pollable, in api.Interest) error {
	fd := p.Fd()
	if _, ok := m.regs[fd]; ok {
		return fmt.Errorf("register fd %d: %w", fd, api.ErrAlreadyExists)
	}
	mask, err := eventsFor(in)
	if err != nil {
		return err
	}
	ev := unix.EpollEvent{Events: mask, Fd: int32(fd)}
	if err := unix.EpollCtl(m.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl add: %w", err)
	}
	m.regs[fd] = registration{id: p.ID(), interest: in}
	m.count.Add(1)
	return nil
}

// Reregister replaces the interest set of p; the previous one is dropped.
func (m *linuxMultiplexer) Reregister(p api.Pollable, in api.Interest) error {
	fd := p.Fd()
	reg, ok := m.regs[fd]
	if !ok {
		return fmt.Errorf("reregister fd %d: %w", fd, api.ErrNotFound)
	}
	mask, err := eventsFor(in)
	if err != nil {
		return err
	}
	ev := unix.EpollEvent{Events: mask, Fd: int32(fd)}
	if err := unix.EpollCtl(m.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl mod: %w", err)
	}
	reg.interest = in
	m.regs[fd] = reg
	return nil
}

// Deregister removes p from the watch list. The table entry is dropped even
// if the kernel call fails so that it never outlives the socket.
func (m *linuxMultiplexer) Deregister(p api.Pollable) error {
	fd := p.Fd()
	if _, ok := m.regs[fd]; !ok {
		return fmt.Errorf("deregister fd %d: %w", fd, api.ErrNotFound)
	}
	delete(m.regs, fd)
	m.count.Add(-1)
	if err := unix.EpollCtl(m.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("epoll ctl del: %w", err)
	}
	return nil
}

// Wait blocks until at least one registered descriptor is ready or Wake is
// called. Wake-ups and interrupted waits yield zero events.
func (m *linuxMultiplexer) Wait(events []api.Event) (int, error) {
	raw := m.raw
	if len(events) < len(raw) {
		raw = raw[:len(events)]
	}
	if len(raw) == 0 {
		return 0, fmt.Errorf("wait: empty event slice: %w", api.ErrInvalidArgument)
	}
	n, err := unix.EpollWait(m.epfd, raw, -1)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, fmt.Errorf("epoll wait: %w", err)
	}
	out := 0
	for i := 0; i < n; i++ {
		fd := int(raw[i].Fd)
		if fd == m.wakefd {
			m.drainWake()
			continue
		}
		reg, ok := m.regs[fd]
		if !ok {
			continue
		}
		// Error and hang-up conditions are delivered as the registered kind;
		// the following read or write surfaces the actual failure.
		events[out] = api.Event{Kind: kindFor(reg.interest), ID: reg.id}
		out++
	}
	return out, nil
}

func (m *linuxMultiplexer) drainWake() {
	var buf [8]byte
	for {
		if _, err := unix.Read(m.wakefd, buf[:]); err != nil {
			return
		}
	}
}

// Wake interrupts a blocked Wait. Safe for concurrent use.
func (m *linuxMultiplexer) Wake() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return api.ErrClosed
	}
	one := [8]byte{1}
	if _, err := unix.Write(m.wakefd, one[:]); err != nil && !errors.Is(err, unix.EAGAIN) {
		return fmt.Errorf("eventfd write: %w", err)
	}
	return nil
}

// Len reports live registrations. Safe for concurrent use.
func (m *linuxMultiplexer) Len() int {
	return int(m.count.Load())
}

// Close releases the epoll and eventfd descriptors.
func (m *linuxMultiplexer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return api.ErrClosed
	}
	m.closed = true
	err1 := unix.Close(m.wakefd)
	err2 := unix.Close(m.epfd)
	return errors.Join(err1, err2)
}
