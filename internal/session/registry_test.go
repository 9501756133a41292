package session_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-echo/api"
	"github.com/momentics/hioload-echo/core/buffer"
	"github.com/momentics/hioload-echo/fake"
	"github.com/momentics/hioload-echo/internal/session"
)

func TestRegistry_AddGetRemove(t *testing.T) {
	r := session.NewRegistry()
	sock := fake.NewSocket(7)

	e, err := r.Add(sock)
	require.NoError(t, err)
	assert.Same(t, sock, e.Socket)
	assert.Equal(t, api.ConnID(7), e.Ctx.ID)
	assert.Equal(t, "127.0.0.1:40007", e.Ctx.Remote)
	assert.Equal(t, buffer.ModeFill, e.Ctx.Buffer.Mode())
	assert.Equal(t, buffer.DefaultSize, e.Ctx.Buffer.Cap())
	assert.False(t, e.Ctx.Terminating)

	parsed, err := uuid.Parse(e.Ctx.SpanID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())

	got, ok := r.Get(7)
	require.True(t, ok)
	assert.Same(t, e, got)
	assert.Equal(t, 1, r.Len())

	removed, ok := r.Remove(7)
	require.True(t, ok)
	assert.Same(t, e, removed)
	assert.Zero(t, r.Len())

	_, ok = r.Remove(7)
	assert.False(t, ok)
}

func TestRegistry_DuplicateAdd(t *testing.T) {
	r := session.NewRegistry()
	_, err := r.Add(fake.NewSocket(1))
	require.NoError(t, err)

	_, err = r.Add(fake.NewSocket(1))
	assert.ErrorIs(t, err, api.ErrAlreadyExists)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_IDsSorted(t *testing.T) {
	r := session.NewRegistry()
	for _, id := range []api.ConnID{5, 2, 9} {
		_, err := r.Add(fake.NewSocket(id))
		require.NoError(t, err)
	}
	assert.Equal(t, []api.ConnID{2, 5, 9}, r.IDs())
}

func TestRegistry_ContextsAreIndependent(t *testing.T) {
	r := session.NewRegistry()
	a, err := r.Add(fake.NewSocket(1))
	require.NoError(t, err)
	b, err := r.Add(fake.NewSocket(2))
	require.NoError(t, err)

	a.Ctx.Pending = "from a"
	a.Ctx.Terminating = true

	assert.Empty(t, b.Ctx.Pending)
	assert.False(t, b.Ctx.Terminating)
	assert.NotSame(t, a.Ctx.Buffer, b.Ctx.Buffer)
	assert.NotEqual(t, a.Ctx.SpanID, b.Ctx.SpanID)
}
