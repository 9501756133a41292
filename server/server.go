// File: server/server.go
// Package server implements the single-threaded echo reactor: one goroutine
// waits on the multiplexer and drives every connection's state machine.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/momentics/hioload-echo/affinity"
	"github.com/momentics/hioload-echo/api"
	"github.com/momentics/hioload-echo/control"
	"github.com/momentics/hioload-echo/internal/session"
	"github.com/momentics/hioload-echo/internal/transport"
	"github.com/momentics/hioload-echo/reactor"
)

var _ api.Engine = (*Server)(nil)

// Server owns the listener, the multiplexer and the connection registry.
//
// Everything except ActiveConnections and Addr must be used from the
// goroutine running Serve.
type Server struct {
	cfg      *control.Config
	logger   *zap.Logger
	metrics  *control.Metrics
	probes   *control.DebugProbes
	listener api.Listener
	mux      api.Multiplexer
	registry *session.Registry
	rules    *session.LineRules
	events   []api.Event
	active   atomic.Int64
	closed   bool
}

// Listen opens the TCP listener and the epoll multiplexer described by cfg
// and builds a Server on top of them. Failures here are fatal.
func Listen(cfg *control.Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = control.DefaultConfig()
	}
	ln, err := transport.Listen(cfg.ListenAddr, cfg.Backlog)
	if err != nil {
		return nil, err
	}
	mux, err := reactor.NewMultiplexer(cfg.MaxEvents)
	if err != nil {
		_ = ln.Close()
		return nil, err
	}
	s, err := New(cfg, ln, mux, opts...)
	if err != nil {
		_ = mux.Close()
		_ = ln.Close()
		return nil, err
	}
	return s, nil
}

// New builds a Server around an existing listener and multiplexer and
// registers the listener for accept interest.
func New(cfg *control.Config, ln api.Listener, mux api.Multiplexer, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = control.DefaultConfig()
	}
	rules, err := session.NewLineRules(cfg.Charset)
	if err != nil {
		return nil, err
	}
	maxEvents := cfg.MaxEvents
	if maxEvents <= 0 {
		maxEvents = reactor.DefaultMaxEvents
	}
	s := &Server{
		cfg:      cfg,
		logger:   zap.NewNop(),
		listener: ln,
		mux:      mux,
		registry: session.NewRegistry(),
		rules:    rules,
		events:   make([]api.Event, maxEvents),
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = control.NewMetrics(control.EngineReactor)
	}
	if err := mux.Register(ln, api.InterestAccept); err != nil {
		return nil, fmt.Errorf("register listener: %w", err)
	}
	if s.probes != nil {
		if err := s.registerProbes(); err != nil {
			_ = mux.Deregister(ln)
			return nil, err
		}
	}
	return s, nil
}

func (s *Server) registerProbes() error {
	if err := s.probes.RegisterProbe("reactor.active_connections", func() any {
		return s.active.Load()
	}); err != nil {
		return err
	}
	return s.probes.RegisterProbe("reactor.registrations", func() any {
		return s.mux.Len()
	})
}

// Addr returns the listener's bound address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// ActiveConnections reports live connections. Safe for concurrent use.
func (s *Server) ActiveConnections() int64 {
	return s.active.Load()
}

// Serve runs the loop until ctx is cancelled or the multiplexer fails.
//
// Each iteration blocks in Wait and then dispatches the whole batch. A Wait
// failure is returned as a fatal error; per-connection failures never leave
// this loop. On return every connection, the listener and the multiplexer
// are closed.
func (s *Server) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		if err := s.mux.Wake(); err != nil && !errors.Is(err, api.ErrClosed) {
			s.logger.Warn("reactor wake failed", zap.Error(err))
		}
	})
	defer stop()

	if s.cfg.PinCPU >= 0 {
		release, err := affinity.Pin(s.cfg.PinCPU)
		if err != nil {
			s.logger.Warn("reactor not pinned", zap.Int("cpu", s.cfg.PinCPU), zap.Error(err))
		} else {
			defer release()
			s.logger.Info("reactor pinned", zap.Int("cpu", s.cfg.PinCPU))
		}
	}

	s.logger.Info("echo reactor serving",
		zap.Stringer("addr", s.listener.Addr()),
		zap.String("charset", s.rules.Charset()))

	for ctx.Err() == nil {
		if err := s.poll(); err != nil {
			s.shutdown()
			return err
		}
	}
	s.shutdown()
	return nil
}

// poll waits for one batch and dispatches all of it.
func (s *Server) poll() error {
	n, err := s.mux.Wait(s.events)
	if err != nil {
		return fmt.Errorf("reactor wait: %w", err)
	}
	for _, ev := range s.events[:n] {
		s.dispatch(ev)
	}
	return nil
}

func (s *Server) dispatch(ev api.Event) {
	switch ev.Kind {
	case api.EventAccept:
		s.acceptAll()
	case api.EventRead:
		s.onReadable(ev.ID)
	case api.EventWrite:
		s.onWritable(ev.ID)
	default:
		s.logger.Warn("unexpected event", zap.Stringer("kind", ev.Kind), zap.Uint64("conn", uint64(ev.ID)))
	}
}

// shutdown closes every connection, then the listener and the multiplexer.
func (s *Server) shutdown() {
	if s.closed {
		return
	}
	s.closed = true
	for _, id := range s.registry.IDs() {
		if e, ok := s.registry.Get(id); ok {
			s.cleanup(e, "shutdown")
		}
	}
	if err := s.mux.Deregister(s.listener); err != nil {
		s.logger.Debug("listener deregister", zap.Error(err))
	}
	if err := s.listener.Close(); err != nil {
		s.logger.Debug("listener close", zap.Error(err))
	}
	if err := s.mux.Close(); err != nil {
		s.logger.Debug("multiplexer close", zap.Error(err))
	}
	s.logger.Info("echo reactor stopped")
}
