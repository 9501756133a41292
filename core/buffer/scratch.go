// File: core/buffer/scratch.go
// Package buffer provides the two-mode scratch buffer shared by the read and
// write phases of a connection.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package buffer

import (
	"fmt"
	"io"

	"github.com/momentics/hioload-echo/api"
)

// DefaultSize is the per-connection scratch capacity.
const DefaultSize = 512

// Mode is the current role of a Scratch buffer.
type Mode uint8

const (
	// ModeFill accepts bytes from a reader.
	ModeFill Mode = iota
	// ModeDrain hands out the filled region to a writer.
	ModeDrain
)

func (m Mode) String() string {
	if m == ModeDrain {
		return "drain"
	}
	return "fill"
}

// Scratch is a fixed-capacity buffer that is either being filled or being
// drained, never both. Misuse returns api.ErrBufferMode instead of silently
// corrupting offsets.
//
// Designed for single-goroutine use; no locks.
type Scratch struct {
	buf   []byte
	pos   int
	limit int
	mode  Mode
}

// NewScratch allocates a Scratch of the given capacity.
// Non-positive sizes fall back to DefaultSize.
func NewScratch(size int) *Scratch {
	if size <= 0 {
		size = DefaultSize
	}
	return &Scratch{buf: make([]byte, size), limit: size}
}

// Mode reports whether the buffer is filling or draining.
func (s *Scratch) Mode() Mode { return s.mode }

// Cap returns the fixed capacity.
func (s *Scratch) Cap() int { return len(s.buf) }

// Fill performs a single Read from r into the free region.
func (s *Scratch) Fill(r io.Reader) (int, error) {
	if s.mode != ModeFill {
		return 0, fmt.Errorf("fill: %w", api.ErrBufferMode)
	}
	if s.pos == len(s.buf) {
		return 0, nil
	}
	n, err := r.Read(s.buf[s.pos:])
	if n > 0 {
		s.pos += n
	}
	return n, err
}

// Filled returns the bytes accumulated so far in fill mode.
func (s *Scratch) Filled() []byte {
	if s.mode != ModeFill {
		return nil
	}
	return s.buf[:s.pos]
}

// Flip switches fill to drain: what was filled becomes what will be written.
func (s *Scratch) Flip() error {
	if s.mode != ModeFill {
		return fmt.Errorf("flip: %w", api.ErrBufferMode)
	}
	s.limit = s.pos
	s.pos = 0
	s.mode = ModeDrain
	return nil
}

// Remaining returns the not yet written part of the drain region.
func (s *Scratch) Remaining() []byte {
	if s.mode != ModeDrain {
		return nil
	}
	return s.buf[s.pos:s.limit]
}

// Consume marks n bytes of the drain region as written.
func (s *Scratch) Consume(n int) error {
	if s.mode != ModeDrain {
		return fmt.Errorf("consume: %w", api.ErrBufferMode)
	}
	if n < 0 || n > s.limit-s.pos {
		return fmt.Errorf("consume %d of %d: %w", n, s.limit-s.pos, api.ErrInvalidArgument)
	}
	s.pos += n
	return nil
}

// Reset discards all content and returns to fill mode.
func (s *Scratch) Reset() {
	s.pos = 0
	s.limit = len(s.buf)
	s.mode = ModeFill
}
