// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Immutable per-run configuration for the echo engines.

package control

import (
	"errors"
	"fmt"
	"net"

	"go.uber.org/zap/zapcore"

	"github.com/momentics/hioload-echo/api"
)

// Engine names accepted by Config.Engine.
const (
	EngineReactor  = "reactor"
	EngineBlocking = "blocking"
	EngineGnet     = "gnet"
)

// Log formats accepted by Config.LogFormat.
const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

// Config holds parameters immutable per run.
type Config struct {
	ListenAddr string // TCP address, all interfaces when the host is empty
	Engine     string // reactor, blocking or gnet
	Backlog    int    // listen(2) backlog for the reactor engine
	MaxEvents  int    // readiness events collected per wait
	Charset    string // WHATWG label used to decode incoming bytes
	LogLevel   string // zap level name
	LogFormat  string // console or json
	AdminAddr  string // admin HTTP address; empty disables it
	Multicore  bool   // gnet engine only
	PinCPU     int    // CPU the reactor goroutine is pinned to; -1 disables
}

// DefaultConfig returns default configuration values.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr: ":3000",
		Engine:     EngineReactor,
		Backlog:    1024,
		MaxEvents:  128,
		Charset:    "utf-8",
		LogLevel:   "info",
		LogFormat:  LogFormatConsole,
		PinCPU:     -1,
	}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	bad := func(field string, v any, why string) {
		errs = append(errs, fmt.Errorf("%s=%v: %s: %w", field, v, why, api.ErrInvalidArgument))
	}

	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		bad("listen", c.ListenAddr, err.Error())
	}
	switch c.Engine {
	case EngineReactor, EngineBlocking, EngineGnet:
	default:
		bad("engine", c.Engine, "want reactor, blocking or gnet")
	}
	if c.Backlog <= 0 {
		bad("backlog", c.Backlog, "must be positive")
	}
	if c.MaxEvents <= 0 {
		bad("max-events", c.MaxEvents, "must be positive")
	}
	if c.Charset == "" {
		bad("charset", c.Charset, "must not be empty")
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		bad("log-level", c.LogLevel, err.Error())
	}
	switch c.LogFormat {
	case LogFormatConsole, LogFormatJSON:
	default:
		bad("log-format", c.LogFormat, "want console or json")
	}
	if c.AdminAddr != "" {
		if _, _, err := net.SplitHostPort(c.AdminAddr); err != nil {
			bad("admin", c.AdminAddr, err.Error())
		}
	}
	if c.PinCPU < -1 {
		bad("pin-cpu", c.PinCPU, "want -1 or a CPU index")
	}
	return errors.Join(errs...)
}
