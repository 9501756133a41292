// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-echo.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	ErrWouldBlock      = errors.New("operation would block")
	ErrClosed          = errors.New("socket is closed")
	ErrBufferMode      = errors.New("buffer used in wrong mode")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotSupported    = errors.New("operation not supported")
	ErrAlreadyExists   = errors.New("resource already exists")
	ErrNotFound        = errors.New("resource not found")
)

// FailureKind names the per-connection operation that failed.
type FailureKind int

const (
	FailAccept FailureKind = iota + 1
	FailRead
	FailWrite
	FailRegister
)

func (k FailureKind) String() string {
	switch k {
	case FailAccept:
		return "accept"
	case FailRead:
		return "read"
	case FailWrite:
		return "write"
	case FailRegister:
		return "register"
	default:
		return "unknown"
	}
}

// IOError is the result of a failed per-connection operation.
// Every IOError resolves to cleanup of the connection it names.
type IOError struct {
	Kind FailureKind
	ID   ConnID
	Err  error
}

// Error implements the error interface.
func (e *IOError) Error() string {
	return fmt.Sprintf("conn %d: %s: %v", e.ID, e.Kind, e.Err)
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError wraps err as a failure of kind on connection id.
func NewIOError(kind FailureKind, id ConnID, err error) *IOError {
	return &IOError{Kind: kind, ID: id, Err: err}
}
