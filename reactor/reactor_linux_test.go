//go:build linux

package reactor_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-echo/api"
	"github.com/momentics/hioload-echo/reactor"
)

type pollable struct {
	id api.ConnID
	fd int
}

func (p pollable) ID() api.ConnID { return p.id }
func (p pollable) Fd() int        { return p.fd }

func socketPair(t *testing.T) (int, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func newMux(t *testing.T) api.Multiplexer {
	t.Helper()
	m, err := reactor.NewMultiplexer(8)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestMultiplexer_ReadThenWriteInterest(t *testing.T) {
	m := newMux(t)
	a, b := socketPair(t)
	p := pollable{id: 42, fd: a}

	require.NoError(t, m.Register(p, api.InterestRead))
	assert.Equal(t, 1, m.Len())

	_, err := unix.Write(b, []byte("ping"))
	require.NoError(t, err)

	events := make([]api.Event, 8)
	n, err := m.Wait(events)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, api.Event{Kind: api.EventRead, ID: 42}, events[0])

	require.NoError(t, m.Reregister(p, api.InterestWrite))
	n, err = m.Wait(events)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, api.Event{Kind: api.EventWrite, ID: 42}, events[0])

	require.NoError(t, m.Deregister(p))
	assert.Zero(t, m.Len())
}

func TestMultiplexer_AcceptInterestReportsAccept(t *testing.T) {
	m := newMux(t)
	a, b := socketPair(t)
	require.NoError(t, m.Register(pollable{id: api.ListenerID, fd: a}, api.InterestAccept))

	_, err := unix.Write(b, []byte("x"))
	require.NoError(t, err)

	events := make([]api.Event, 4)
	n, err := m.Wait(events)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, api.EventAccept, events[0].Kind)
}

func TestMultiplexer_RegistrationErrors(t *testing.T) {
	m := newMux(t)
	a, _ := socketPair(t)
	p := pollable{id: 1, fd: a}

	assert.ErrorIs(t, m.Reregister(p, api.InterestRead), api.ErrNotFound)
	assert.ErrorIs(t, m.Deregister(p), api.ErrNotFound)
	assert.ErrorIs(t, m.Register(p, api.Interest(0)), api.ErrInvalidArgument)

	require.NoError(t, m.Register(p, api.InterestRead))
	assert.ErrorIs(t, m.Register(p, api.InterestWrite), api.ErrAlreadyExists)
	assert.Equal(t, 1, m.Len())
}

func TestMultiplexer_WakeInterruptsWait(t *testing.T) {
	m := newMux(t)
	a, _ := socketPair(t)
	require.NoError(t, m.Register(pollable{id: 1, fd: a}, api.InterestRead))

	done := make(chan int, 1)
	go func() {
		n, _ := m.Wait(make([]api.Event, 4))
		done <- n
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, m.Wake())

	select {
	case n := <-done:
		assert.Zero(t, n)
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after Wake")
	}
}

func TestMultiplexer_WakeAfterClose(t *testing.T) {
	m, err := reactor.NewMultiplexer(4)
	require.NoError(t, err)
	require.NoError(t, m.Close())

	assert.ErrorIs(t, m.Wake(), api.ErrClosed)
	assert.ErrorIs(t, m.Close(), api.ErrClosed)
}
