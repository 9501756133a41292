// File: internal/session/rules.go
// Package session
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package session

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

const (
	// QuitMarker ends a connection once it terminates the pending text.
	QuitMarker = "/quit"

	// MaxPendingRunes bounds Pending; beyond it DropRunes are cut from the front.
	MaxPendingRunes = 16
	DropRunes       = 8

	// DefaultCharset decodes incoming bytes when none is configured.
	DefaultCharset = "utf-8"
)

// LineRules applies decoding, quit detection and truncation to every read.
// It is not safe for concurrent use; engines running connections on several
// goroutines keep one LineRules per connection.
type LineRules struct {
	charset string
	dec     *encoding.Decoder
}

// NewLineRules resolves charset by its WHATWG label ("" means utf-8).
func NewLineRules(charset string) (*LineRules, error) {
	if charset == "" {
		charset = DefaultCharset
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("charset %q: %w", charset, err)
	}
	name, _ := htmlindex.Name(enc)
	if name == "" {
		name = charset
	}
	return &LineRules{charset: name, dec: enc.NewDecoder()}, nil
}

// Charset returns the canonical name of the decoding in use.
func (r *LineRules) Charset() string {
	return r.charset
}

// Observe appends raw to c.Pending and updates c.Terminating.
// It reports whether the quit marker was seen on this call.
//
// The echo payload is always raw itself; Pending only drives the quit
// and truncation decisions.
func (r *LineRules) Observe(c *Context, raw []byte) bool {
	if len(raw) > 0 {
		c.Pending += r.Decode(raw)
	}
	if IsQuit(c.Pending) {
		c.Terminating = true
		return true
	}
	if utf8.RuneCountInString(c.Pending) > MaxPendingRunes {
		c.Pending = dropRunes(c.Pending, DropRunes)
	}
	return false
}

// Decode converts raw to text, replacing invalid sequences with U+FFFD.
func (r *LineRules) Decode(raw []byte) string {
	out, err := r.dec.Bytes(raw)
	if err != nil {
		return strings.ToValidUTF8(string(raw), string(utf8.RuneError))
	}
	return string(out)
}

// IsQuit reports whether s, ignoring trailing CR/LF, ends with QuitMarker.
func IsQuit(s string) bool {
	return strings.HasSuffix(strings.TrimRight(s, "\r\n"), QuitMarker)
}

func dropRunes(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[i:]
		}
		n--
	}
	return ""
}
