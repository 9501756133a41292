// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, logging, metrics and debug introspection for hioload-echo.
//
// Provides:
//   - Typed configuration with defaults and validation
//   - zap logger construction from configuration
//   - Prometheus collectors on a private registry
//   - Named debug probes and the admin HTTP router exposing them
//
// Everything here is safe for concurrent use; the admin endpoint runs on its
// own goroutine and only reads atomics and collectors.
package control
