// File: internal/gnetecho/server.go
// Package gnetecho runs the echo line rules on gnet's event loops.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package gnetecho

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/bassosimone/errclass"
	"github.com/panjf2000/gnet/v2"
	"go.uber.org/zap"

	"github.com/momentics/hioload-echo/api"
	"github.com/momentics/hioload-echo/control"
	"github.com/momentics/hioload-echo/internal/session"
)

const stopTimeout = 5 * time.Second

// Option customizes a Server.
type Option func(*Server)

// WithLogger sets the logger; gnet's internal logging goes through it too.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics shares a Metrics instance with the caller.
func WithMetrics(m *control.Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

var _ api.Engine = (*Server)(nil)

// Server is a gnet event handler applying the same per-read echo and
// quit semantics as the reactor engine. Output buffering and write
// resumption are left to gnet.
type Server struct {
	gnet.BuiltinEventEngine

	addr      string
	multicore bool
	charset   string
	logger    *zap.Logger
	metrics   *control.Metrics

	eng    gnet.Engine
	booted chan struct{}
	active atomic.Int64
	nextID atomic.Uint64
}

type connState struct {
	ctx   *session.Context
	rules *session.LineRules
	log   *zap.Logger
}

// New validates cfg and returns an unstarted Server.
func New(cfg *control.Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = control.DefaultConfig()
	}
	if _, err := session.NewLineRules(cfg.Charset); err != nil {
		return nil, err
	}
	s := &Server{
		addr:      cfg.ListenAddr,
		multicore: cfg.Multicore,
		charset:   cfg.Charset,
		logger:    zap.NewNop(),
		booted:    make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = control.NewMetrics(control.EngineGnet)
	}
	return s, nil
}

// Ready is closed once gnet is listening.
func (s *Server) Ready() <-chan struct{} {
	return s.booted
}

// ActiveConnections reports open connections across all event loops.
func (s *Server) ActiveConnections() int64 {
	return s.active.Load()
}

// Serve runs gnet until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	stop := context.AfterFunc(ctx, func() {
		select {
		case <-s.booted:
		case <-done:
			return
		}
		sctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if err := s.eng.Stop(sctx); err != nil {
			s.logger.Warn("gnet stop", zap.Error(err))
		}
	})
	defer stop()

	return gnet.Run(s, "tcp://"+s.addr,
		gnet.WithMulticore(s.multicore),
		gnet.WithLogger(s.logger.Sugar()))
}

// OnBoot implements gnet.EventHandler.
func (s *Server) OnBoot(eng gnet.Engine) gnet.Action {
	s.eng = eng
	s.logger.Info("gnet echo serving",
		zap.String("addr", s.addr), zap.Bool("multicore", s.multicore))
	close(s.booted)
	return gnet.None
}

// OnShutdown implements gnet.EventHandler.
func (s *Server) OnShutdown(gnet.Engine) {
	s.logger.Info("gnet echo stopped")
}

// OnOpen implements gnet.EventHandler.
func (s *Server) OnOpen(c gnet.Conn) ([]byte, gnet.Action) {
	// Charset was validated in New.
	rules, _ := session.NewLineRules(s.charset)
	id := api.ConnID(s.nextID.Add(1))
	sc := session.NewContext(id, c.RemoteAddr().String())
	st := &connState{
		ctx:   sc,
		rules: rules,
		log: s.logger.With(
			zap.Uint64("conn", uint64(id)),
			zap.String("span", sc.SpanID),
			zap.String("remote", sc.Remote)),
	}
	c.SetContext(st)
	s.active.Add(1)
	s.metrics.Accepted.Inc()
	s.metrics.Active.Inc()
	st.log.Debug("connection accepted")
	return nil, gnet.None
}

// OnClose implements gnet.EventHandler.
func (s *Server) OnClose(c gnet.Conn, err error) gnet.Action {
	s.active.Add(-1)
	s.metrics.Active.Dec()
	st, ok := c.Context().(*connState)
	if !ok {
		return gnet.None
	}
	if err != nil {
		s.report(api.FailRead, err, st.log)
	}
	st.log.Debug("connection closed", zap.Bool("terminating", st.ctx.Terminating))
	return gnet.None
}

// OnTraffic echoes everything read in this batch, then closes the
// connection if the quit marker was seen.
func (s *Server) OnTraffic(c gnet.Conn) gnet.Action {
	st := c.Context().(*connState)
	buf, err := c.Next(-1)
	if err != nil {
		s.report(api.FailRead, err, st.log)
		return gnet.Close
	}
	s.metrics.BytesRead.Add(float64(len(buf)))

	quit := st.rules.Observe(st.ctx, buf)

	n, err := c.Write(buf)
	s.metrics.BytesWritten.Add(float64(n))
	if err != nil {
		s.report(api.FailWrite, err, st.log)
		return gnet.Close
	}
	if quit {
		s.metrics.Quits.Inc()
		return gnet.Close
	}
	return gnet.None
}

func (s *Server) report(kind api.FailureKind, err error, log *zap.Logger) {
	class := errclass.New(err)
	s.metrics.IOErrors.WithLabelValues(kind.String(), class).Inc()
	log.Warn("connection i/o failed",
		zap.Stringer("op", kind),
		zap.String("errClass", class),
		zap.Error(err))
}
