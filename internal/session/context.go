// File: internal/session/context.go
// Package session
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package session

import (
	"github.com/google/uuid"

	"github.com/momentics/hioload-echo/api"
	"github.com/momentics/hioload-echo/core/buffer"
)

// Context holds the mutable state of one accepted connection.
type Context struct {
	ID     api.ConnID
	SpanID string // UUIDv7, correlates every log line of the connection
	Remote string

	// Buffer is both the read target and the write source.
	Buffer *buffer.Scratch

	// Pending is decoded text not yet consumed by LineRules.
	Pending string

	// Terminating is set once and never cleared. The connection closes
	// as soon as the current echo is fully written.
	Terminating bool

	// Interest mirrors the single interest registered with the multiplexer.
	Interest api.Interest
}

// NewContext returns a fresh Context with an empty fill-mode buffer.
func NewContext(id api.ConnID, remote string) *Context {
	return &Context{
		ID:     id,
		SpanID: NewSpanID(),
		Remote: remote,
		Buffer: buffer.NewScratch(buffer.DefaultSize),
	}
}

// NewSpanID returns a time-ordered identifier for correlating log lines.
func NewSpanID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
