//go:build linux || darwin || freebsd

package gnetecho

import (
	"bufio"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/momentics/hioload-echo/control"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func start(t *testing.T) (*Server, string) {
	t.Helper()
	cfg := control.DefaultConfig()
	cfg.ListenAddr = freeAddr(t)
	s, err := New(cfg, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Error("gnet engine did not stop")
		}
	})

	select {
	case <-s.Ready():
	case err := <-done:
		t.Fatalf("gnet engine failed to start: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("gnet engine did not boot")
	}
	return s, cfg.ListenAddr
}

func TestNew_RejectsUnknownCharset(t *testing.T) {
	cfg := control.DefaultConfig()
	cfg.Charset = "bogus"
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestGnetEcho_HelloThenQuit(t *testing.T) {
	s, addr := start(t)
	c, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.SetDeadline(time.Now().Add(5*time.Second)))
	r := bufio.NewReader(c)

	_, err = io.WriteString(c, "hello\n")
	require.NoError(t, err)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "hello\n", line)

	_, err = io.WriteString(c, "bye /quit\r\n")
	require.NoError(t, err)
	line, err = r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "bye /quit\r\n", line)

	_, err = r.ReadByte()
	assert.ErrorIs(t, err, io.EOF)
	require.Eventually(t, func() bool { return s.ActiveConnections() == 0 },
		2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.Quits))
}

func TestGnetEcho_PeerClose(t *testing.T) {
	s, addr := start(t)
	c, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.ActiveConnections() == 1 },
		2*time.Second, 5*time.Millisecond)

	require.NoError(t, c.Close())
	require.Eventually(t, func() bool { return s.ActiveConnections() == 0 },
		2*time.Second, 5*time.Millisecond)
}
