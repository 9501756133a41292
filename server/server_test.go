package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/momentics/hioload-echo/api"
	"github.com/momentics/hioload-echo/control"
	"github.com/momentics/hioload-echo/fake"
)

func TestServe_StopsOnCancel(t *testing.T) {
	ln := fake.NewListener()
	mux := fake.NewMultiplexer()
	probes := control.NewDebugProbes()
	s, err := New(control.DefaultConfig(), ln, mux,
		WithLogger(zaptest.NewLogger(t)), WithProbes(probes))
	require.NoError(t, err)

	sock := fake.NewSocket(7)
	ln.Enqueue(sock)
	sock.Feed([]byte("ping\n"))
	mux.Push(api.Event{Kind: api.EventAccept, ID: api.ListenerID})
	mux.Push(api.Event{Kind: api.EventRead, ID: 7})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	require.Eventually(t, func() bool {
		return string(sock.Written()) == "ping\n"
	}, 2*time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 1, s.ActiveConnections())
	assert.Equal(t, int64(1), probes.DumpState()["reactor.active_connections"])

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	assert.True(t, sock.Closed())
	assert.True(t, ln.Closed())
	assert.True(t, mux.Closed())
	assert.Zero(t, s.ActiveConnections())
}

func TestServe_WaitFailureIsFatal(t *testing.T) {
	ln := fake.NewListener()
	mux := fake.NewMultiplexer()
	s, err := New(control.DefaultConfig(), ln, mux, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	boom := errors.New("epoll_wait: bad file descriptor")
	mux.FailWait(boom)

	err = s.Serve(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, ln.Closed())
	assert.True(t, mux.Closed())
}

func TestNew_DuplicateProbesFail(t *testing.T) {
	probes := control.NewDebugProbes()
	mux := fake.NewMultiplexer()
	_, err := New(control.DefaultConfig(), fake.NewListener(), mux, WithProbes(probes))
	require.NoError(t, err)

	mux2 := fake.NewMultiplexer()
	_, err = New(control.DefaultConfig(), fake.NewListener(), mux2, WithProbes(probes))
	assert.ErrorIs(t, err, api.ErrAlreadyExists)
	assert.Zero(t, mux2.Len())
}
