// Package session
// Author: momentics <momentics@gmail.com>
//
// Per-connection state for the echo reactor.
//
// A Context is plain data: the scratch buffer, the decoded text that is still
// pending, and the terminating flag. The Registry owns every Context and is
// keyed by api.ConnID. LineRules holds the decode, quit and truncation rules
// applied to each read.
//
// Nothing in this package locks. The reactor mutates everything on its one
// goroutine between two multiplexer waits; the other engines give each
// connection its own Context and LineRules.

package session
