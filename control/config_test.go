package control_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-echo/api"
	"github.com/momentics/hioload-echo/control"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := control.DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":3000", cfg.ListenAddr)
	assert.Equal(t, control.EngineReactor, cfg.Engine)
	assert.Empty(t, cfg.AdminAddr)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*control.Config)
		field  string
	}{
		{"listen without port", func(c *control.Config) { c.ListenAddr = "localhost" }, "listen="},
		{"unknown engine", func(c *control.Config) { c.Engine = "threads" }, "engine="},
		{"zero backlog", func(c *control.Config) { c.Backlog = 0 }, "backlog="},
		{"negative max events", func(c *control.Config) { c.MaxEvents = -1 }, "max-events="},
		{"empty charset", func(c *control.Config) { c.Charset = "" }, "charset="},
		{"bad level", func(c *control.Config) { c.LogLevel = "loud" }, "log-level="},
		{"bad format", func(c *control.Config) { c.LogFormat = "xml" }, "log-format="},
		{"bad admin", func(c *control.Config) { c.AdminAddr = "nope" }, "admin="},
		{"bad pin", func(c *control.Config) { c.PinCPU = -2 }, "pin-cpu="},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := control.DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, api.ErrInvalidArgument)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestConfig_ValidateReportsAllFields(t *testing.T) {
	cfg := control.DefaultConfig()
	cfg.Engine = ""
	cfg.Backlog = -5
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine=")
	assert.Contains(t, err.Error(), "backlog=")
}

func TestNewLogger(t *testing.T) {
	cfg := control.DefaultConfig()
	cfg.LogFormat = control.LogFormatJSON
	cfg.LogLevel = "debug"
	logger, err := control.NewLogger(cfg)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1))

	cfg.LogLevel = "nonsense"
	_, err = control.NewLogger(cfg)
	assert.Error(t, err)
}
