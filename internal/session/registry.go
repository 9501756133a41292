// File: internal/session/registry.go
// Package session
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Connection registry: the single owner of all live connection contexts.

package session

import (
	"fmt"
	"sort"

	"github.com/momentics/hioload-echo/api"
)

// Entry couples a socket with the Context it owns.
type Entry struct {
	Socket api.Socket
	Ctx    *Context
}

// Registry maps connection identities to their entries.
//
// An ID is present iff the socket is registered with the multiplexer.
// Entries are added exactly once on accept and removed exactly once on
// cleanup; callers keep that pairing.
type Registry struct {
	entries map[api.ConnID]*Entry
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[api.ConnID]*Entry)}
}

// Add creates the Context for sock and takes ownership of both.
func (r *Registry) Add(sock api.Socket) (*Entry, error) {
	id := sock.ID()
	if _, ok := r.entries[id]; ok {
		return nil, fmt.Errorf("registry add %d: %w", id, api.ErrAlreadyExists)
	}
	remote := ""
	if addr := sock.RemoteAddr(); addr != nil {
		remote = addr.String()
	}
	e := &Entry{Socket: sock, Ctx: NewContext(id, remote)}
	r.entries[id] = e
	return e, nil
}

// Get fetches an entry if present.
func (r *Registry) Get(id api.ConnID) (*Entry, bool) {
	e, ok := r.entries[id]
	return e, ok
}

// Remove drops the entry for id and returns it.
func (r *Registry) Remove(id api.ConnID) (*Entry, bool) {
	e, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	return e, ok
}

// Len reports the number of live entries.
func (r *Registry) Len() int {
	return len(r.entries)
}

// IDs returns the live identities in ascending order.
func (r *Registry) IDs() []api.ConnID {
	ids := make([]api.ConnID, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
