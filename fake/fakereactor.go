// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"fmt"
	"sync"

	"github.com/momentics/hioload-echo/api"
)

// Multiplexer is a scripted api.Multiplexer.
//
// Wait hands out batches queued with Push, in order. With nothing queued
// it blocks until Wake or Push is called.
type Multiplexer struct {
	mu      sync.Mutex
	regs    map[api.ConnID]api.Interest
	history []Op
	batches [][]api.Event
	waitErr error
	regErr  error
	closed  bool
	wake    chan struct{}
}

// Op records one registration call.
type Op struct {
	Call     string
	ID       api.ConnID
	Interest api.Interest
}

// NewMultiplexer returns an empty Multiplexer.
func NewMultiplexer() *Multiplexer {
	return &Multiplexer{
		regs: make(map[api.ConnID]api.Interest),
		wake: make(chan struct{}, 1),
	}
}

// Register implements api.Multiplexer.
func (m *Multiplexer) Register(p api.Pollable, in api.Interest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.regErr != nil {
		err := m.regErr
		m.regErr = nil
		return err
	}
	if _, ok := m.regs[p.ID()]; ok {
		return fmt.Errorf("register %d: %w", p.ID(), api.ErrAlreadyExists)
	}
	m.regs[p.ID()] = in
	m.history = append(m.history, Op{Call: "register", ID: p.ID(), Interest: in})
	return nil
}

// Reregister implements api.Multiplexer.
func (m *Multiplexer) Reregister(p api.Pollable, in api.Interest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.regs[p.ID()]; !ok {
		return fmt.Errorf("reregister %d: %w", p.ID(), api.ErrNotFound)
	}
	m.regs[p.ID()] = in
	m.history = append(m.history, Op{Call: "reregister", ID: p.ID(), Interest: in})
	return nil
}

// Deregister implements api.Multiplexer.
func (m *Multiplexer) Deregister(p api.Pollable) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.regs[p.ID()]; !ok {
		return fmt.Errorf("deregister %d: %w", p.ID(), api.ErrNotFound)
	}
	delete(m.regs, p.ID())
	m.history = append(m.history, Op{Call: "deregister", ID: p.ID()})
	return nil
}

// Wait implements api.Multiplexer.
func (m *Multiplexer) Wait(events []api.Event) (int, error) {
	for {
		m.mu.Lock()
		if m.waitErr != nil {
			err := m.waitErr
			m.mu.Unlock()
			return 0, err
		}
		if len(m.batches) > 0 {
			b := m.batches[0]
			m.batches = m.batches[1:]
			m.mu.Unlock()
			return copy(events, b), nil
		}
		m.mu.Unlock()
		<-m.wake
		m.mu.Lock()
		empty := len(m.batches) == 0
		m.mu.Unlock()
		if empty {
			return 0, nil
		}
	}
}

// Wake implements api.Multiplexer.
func (m *Multiplexer) Wake() error {
	select {
	case m.wake <- struct{}{}:
	default:
	}
	return nil
}

// Len implements api.Multiplexer.
func (m *Multiplexer) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.regs)
}

// Close implements api.Multiplexer.
func (m *Multiplexer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Push queues one batch for Wait.
func (m *Multiplexer) Push(events ...api.Event) {
	m.mu.Lock()
	m.batches = append(m.batches, events)
	m.mu.Unlock()
	_ = m.Wake()
}

// FailWait makes every following Wait return err.
func (m *Multiplexer) FailWait(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waitErr = err
}

// FailNextRegister makes the next Register return err.
func (m *Multiplexer) FailNextRegister(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regErr = err
}

// Interest returns the interest registered for id.
func (m *Multiplexer) Interest(id api.ConnID) (api.Interest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.regs[id]
	return in, ok
}

// History returns every successful registration call, in order.
func (m *Multiplexer) History() []Op {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Op(nil), m.history...)
}

// Closed reports whether Close was called.
func (m *Multiplexer) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
