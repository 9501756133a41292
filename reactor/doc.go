// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the readiness multiplexer behind the echo loop:
// level-triggered epoll on Linux, with an eventfd used to interrupt a
// blocked wait. Other platforms get a constructor that reports
// api.ErrNotSupported.
package reactor
