// File: internal/blocking/server.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package blocking

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/bassosimone/errclass"
	"go.uber.org/zap"

	"github.com/momentics/hioload-echo/api"
	"github.com/momentics/hioload-echo/control"
	"github.com/momentics/hioload-echo/internal/session"
)

// Option customizes a Server.
type Option func(*Server)

// WithLogger sets the structured logger. The default discards everything.
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

// Server echoes lines with one goroutine per connection.
type Server struct {
	charset string
	logger  *zap.Logger
	metrics *control.Metrics
	ln      net.Listener

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup

	closing atomic.Bool
	active  atomic.Int64
	nextID  atomic.Uint64
}

// Listen binds cfg.ListenAddr and returns a Server ready to Serve.
func Listen(cfg *control.Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = control.DefaultConfig()
	}
	// Reject an unknown charset before binding.
	if _, err := session.NewLineRules(cfg.Charset); err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", cfg.ListenAddr, err)
	}
	s := &Server{
		charset: cfg.Charset,
		logger:  zap.NewNop(),
		ln:      ln,
		conns:   make(map[net.Conn]struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = control.NewMetrics(control.EngineBlocking)
	}
	return s, nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// ActiveConnections reports connections currently being served.
func (s *Server) ActiveConnections() int64 {
	return s.active.Load()
}

// Serve accepts connections until ctx is cancelled or Shutdown is called,
// then waits for every connection goroutine to finish.
func (s *Server) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = s.Shutdown() })
	defer stop()

	s.logger.Info("blocking echo serving", zap.Stringer("addr", s.ln.Addr()))
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if s.closing.Load() {
				s.wg.Wait()
				s.logger.Info("blocking echo stopped")
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				s.report(api.FailAccept, err, s.logger)
				continue
			}
			_ = s.Shutdown()
			s.wg.Wait()
			return fmt.Errorf("accept: %w", err)
		}
		if !s.track(conn) {
			_ = conn.Close()
			continue
		}
		id := api.ConnID(s.nextID.Add(1))
		go s.handle(id, conn)
	}
}

// Shutdown stops accepting and closes every live connection.
// Calling it more than once is harmless.
func (s *Server) Shutdown() error {
	if !s.closing.CompareAndSwap(false, true) {
		return nil
	}
	err := s.ln.Close()
	s.mu.Lock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()
	return err
}

func (s *Server) track(c net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing.Load() {
		return false
	}
	s.conns[c] = struct{}{}
	s.wg.Add(1)
	s.active.Add(1)
	s.metrics.Accepted.Inc()
	s.metrics.Active.Inc()
	return true
}

func (s *Server) untrack(c net.Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	s.active.Add(-1)
	s.metrics.Active.Dec()
	s.wg.Done()
}

func (s *Server) handle(id api.ConnID, conn net.Conn) {
	defer s.untrack(conn)
	defer conn.Close()

	log := s.logger.With(
		zap.Uint64("conn", uint64(id)),
		zap.String("span", session.NewSpanID()),
		zap.String("remote", conn.RemoteAddr().String()))
	log.Debug("connection accepted")

	rules, err := session.NewLineRules(s.charset)
	if err != nil {
		log.Error("line rules", zap.Error(err))
		return
	}

	r := bufio.NewReader(conn)
	for {
		raw, rerr := r.ReadBytes('\n')
		s.metrics.BytesRead.Add(float64(len(raw)))
		line := bytes.TrimRight(raw, "\r\n")

		if len(raw) > 0 {
			log.Debug("~ " + rules.Decode(line))
			out := append(line, '\n')
			n, werr := conn.Write(out)
			s.metrics.BytesWritten.Add(float64(n))
			if werr != nil {
				if !s.closing.Load() {
					s.report(api.FailWrite, werr, log)
				}
				return
			}
			if string(line) == session.QuitMarker {
				s.metrics.Quits.Inc()
				log.Debug("connection closed", zap.String("reason", "terminated"))
				return
			}
		}

		switch {
		case rerr == nil:
		case errors.Is(rerr, io.EOF):
			log.Debug("connection closed", zap.String("reason", "eof"))
			return
		default:
			if !s.closing.Load() {
				s.report(api.FailRead, rerr, log)
			}
			return
		}
	}
}

func (s *Server) report(kind api.FailureKind, err error, log *zap.Logger) {
	class := errclass.New(err)
	s.metrics.IOErrors.WithLabelValues(kind.String(), class).Inc()
	log.Warn("connection i/o failed",
		zap.Stringer("op", kind),
		zap.String("errClass", class),
		zap.Error(err))
}
