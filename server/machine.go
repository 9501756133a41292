// File: server/machine.go
// Package server
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-connection state machine: accept, read-and-echo, continue-write and
// cleanup. Every transition runs on the Serve goroutine.

package server

import (
	"errors"
	"io"

	"github.com/bassosimone/errclass"
	"go.uber.org/zap"

	"github.com/momentics/hioload-echo/api"
	"github.com/momentics/hioload-echo/core/buffer"
	"github.com/momentics/hioload-echo/internal/session"
)

// acceptAll accepts until the backlog is empty so that no pending
// connection is left behind by one readiness event.
func (s *Server) acceptAll() {
	for {
		sock, err := s.listener.Accept()
		if errors.Is(err, api.ErrWouldBlock) {
			return
		}
		if err != nil {
			s.report(api.NewIOError(api.FailAccept, api.ListenerID, err), s.logger)
			return
		}
		s.open(sock)
	}
}

func (s *Server) open(sock api.Socket) {
	e, err := s.registry.Add(sock)
	if err != nil {
		s.logger.Error("registry add", zap.Error(err))
		_ = sock.Close()
		return
	}
	log := s.connLogger(e.Ctx)
	if err := s.mux.Register(sock, api.InterestRead); err != nil {
		s.registry.Remove(sock.ID())
		_ = sock.Close()
		s.report(api.NewIOError(api.FailRegister, sock.ID(), err), log)
		return
	}
	e.Ctx.Interest = api.InterestRead
	s.active.Add(1)
	s.metrics.Accepted.Inc()
	s.metrics.Active.Inc()
	log.Debug("connection accepted")
}

// onReadable performs one read, applies the line rules and echoes the
// bytes just read.
func (s *Server) onReadable(id api.ConnID) {
	e, ok := s.registry.Get(id)
	if !ok {
		s.logger.Debug("read event for unknown connection", zap.Uint64("conn", uint64(id)))
		return
	}
	c := e.Ctx

	n, err := c.Buffer.Fill(e.Socket)
	switch {
	case errors.Is(err, io.EOF):
		c.Terminating = true
	case err != nil:
		s.fail(e, api.NewIOError(api.FailRead, id, err))
		return
	}
	if n > 0 {
		s.metrics.BytesRead.Add(float64(n))
	}

	filled := c.Buffer.Filled()
	if s.rules.Observe(c, filled[len(filled)-n:]) {
		s.metrics.Quits.Inc()
		s.connLogger(c).Debug("quit marker received")
	}

	if err := c.Buffer.Flip(); err != nil {
		s.fail(e, api.NewIOError(api.FailRead, id, err))
		return
	}
	s.drain(e)
}

// onWritable continues a write left incomplete by an earlier event.
func (s *Server) onWritable(id api.ConnID) {
	e, ok := s.registry.Get(id)
	if !ok {
		s.logger.Debug("write event for unknown connection", zap.Uint64("conn", uint64(id)))
		return
	}
	if e.Ctx.Buffer.Mode() != buffer.ModeDrain {
		s.setInterest(e, api.InterestRead)
		return
	}
	s.drain(e)
}

// drain attempts exactly one write of the remaining drain region.
//
// A short write keeps the remainder and leaves the socket on write
// interest; the next write-ready event resumes it. A complete write resets
// the buffer and either cleans up (terminating) or returns to read interest.
func (s *Server) drain(e *session.Entry) {
	c := e.Ctx
	pending := c.Buffer.Remaining()
	if len(pending) > 0 {
		n, err := e.Socket.Write(pending)
		if n > 0 {
			_ = c.Buffer.Consume(n)
			s.metrics.BytesWritten.Add(float64(n))
		}
		if err != nil {
			s.fail(e, api.NewIOError(api.FailWrite, c.ID, err))
			return
		}
		if n < len(pending) {
			s.metrics.PartialWrites.Inc()
			s.connLogger(c).Debug("partial write",
				zap.Int("written", n), zap.Int("remaining", len(pending)-n))
			if c.Interest != api.InterestWrite {
				s.setInterest(e, api.InterestWrite)
			}
			return
		}
	}

	c.Buffer.Reset()
	if c.Terminating {
		s.cleanup(e, "terminated")
		return
	}
	if c.Interest != api.InterestRead {
		s.setInterest(e, api.InterestRead)
	}
}

// setInterest replaces the socket's single interest.
func (s *Server) setInterest(e *session.Entry, in api.Interest) {
	if err := s.mux.Reregister(e.Socket, in); err != nil {
		s.fail(e, api.NewIOError(api.FailRegister, e.Ctx.ID, err))
		return
	}
	e.Ctx.Interest = in
}

// fail reports a per-connection error and resolves it by cleanup.
func (s *Server) fail(e *session.Entry, ioErr *api.IOError) {
	s.report(ioErr, s.connLogger(e.Ctx))
	s.cleanup(e, "error")
}

func (s *Server) report(ioErr *api.IOError, log *zap.Logger) {
	class := errclass.New(ioErr.Err)
	s.metrics.IOErrors.WithLabelValues(ioErr.Kind.String(), class).Inc()
	log.Warn("connection i/o failed",
		zap.Stringer("op", ioErr.Kind),
		zap.String("errClass", class),
		zap.Error(ioErr.Err))
}

// cleanup deregisters, closes and forgets the connection as one step.
// Callers invoke it at most once per connection.
func (s *Server) cleanup(e *session.Entry, reason string) {
	c := e.Ctx
	log := s.connLogger(c)
	if err := s.mux.Deregister(e.Socket); err != nil {
		log.Debug("deregister", zap.Error(err))
	}
	if err := e.Socket.Close(); err != nil {
		log.Debug("close", zap.Error(err))
	}
	s.registry.Remove(c.ID)
	s.active.Add(-1)
	s.metrics.Active.Dec()
	log.Debug("connection closed", zap.String("reason", reason))
}

func (s *Server) connLogger(c *session.Context) *zap.Logger {
	return s.logger.With(
		zap.Uint64("conn", uint64(c.ID)),
		zap.String("span", c.SpanID),
		zap.String("remote", c.Remote))
}
