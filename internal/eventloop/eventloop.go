// File: internal/eventloop/eventloop.go
// Package eventloop implements a keyed, single-consumer event loop with
// adaptive idle backoff.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package eventloop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"go.uber.org/zap"
)

const (
	minBackoff = time.Microsecond
	maxBackoff = time.Millisecond
)

// ErrRunning is returned by Run when another Run is already active.
var ErrRunning = errors.New("eventloop: already running")

// Event is a keyed payload.
type Event struct {
	Key  string
	Data any
}

// Handler consumes the payload of one event.
type Handler func(data any)

// Loop queues events from any goroutine and runs their handlers on the
// goroutine that calls Run.
type Loop struct {
	mu       sync.Mutex
	queue    *queue.Queue
	handlers map[string]Handler

	stopped atomic.Bool
	running atomic.Bool
	logger  *zap.Logger
}

// New returns an empty Loop. A nil logger discards warnings.
func New(logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		queue:    queue.New(),
		handlers: make(map[string]Handler),
		logger:   logger,
	}
}

// On binds h to key, replacing any previous handler, and returns the loop
// for chaining.
func (l *Loop) On(key string, h Handler) *Loop {
	l.mu.Lock()
	l.handlers[key] = h
	l.mu.Unlock()
	return l
}

// Dispatch queues ev. Safe for concurrent use.
func (l *Loop) Dispatch(ev Event) {
	l.mu.Lock()
	l.queue.Add(ev)
	l.mu.Unlock()
}

// Stop asks Run to return once the queue is empty.
func (l *Loop) Stop() {
	l.stopped.Store(true)
}

// Pending reports queued events.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queue.Length()
}

// Run processes events until Stop was called and the queue is drained,
// or until ctx is cancelled. Only one Run may be active at a time.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer l.running.Store(false)

	backoff := minBackoff
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ev, h, ok := l.next()
		if !ok {
			if l.stopped.Load() {
				return nil
			}
			backoff = l.idle(ctx, backoff)
			continue
		}
		backoff = minBackoff
		if h == nil {
			l.logger.Warn("no handler for key", zap.String("key", ev.Key))
			continue
		}
		h(ev.Data)
	}
}

func (l *Loop) next() (Event, Handler, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.queue.Length() == 0 {
		return Event{}, nil, false
	}
	ev := l.queue.Remove().(Event)
	return ev, l.handlers[ev.Key], true
}

// idle sleeps for backoff and returns the next, doubled, backoff.
func (l *Loop) idle(ctx context.Context, backoff time.Duration) time.Duration {
	t := time.NewTimer(backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
	if backoff *= 2; backoff > maxBackoff {
		backoff = maxBackoff
	}
	return backoff
}
