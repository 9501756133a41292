package api_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/momentics/hioload-echo/api"
	"github.com/momentics/hioload-echo/fake"
)

var (
	_ api.Socket      = (*fake.Socket)(nil)
	_ api.Listener    = (*fake.Listener)(nil)
	_ api.Multiplexer = (*fake.Multiplexer)(nil)
)

func TestIOError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset by peer")
	err := fmt.Errorf("loop: %w", api.NewIOError(api.FailRead, 42, cause))

	var ioErr *api.IOError
	assert.ErrorAs(t, err, &ioErr)
	assert.Equal(t, api.FailRead, ioErr.Kind)
	assert.Equal(t, api.ConnID(42), ioErr.ID)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "read")
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "write", api.FailWrite.String())
	assert.Equal(t, "accept", api.InterestAccept.String())
	assert.Equal(t, "read", api.EventRead.String())
}
