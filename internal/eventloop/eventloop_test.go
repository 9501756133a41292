package eventloop

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoop_DispatchesByKeyInOrder(t *testing.T) {
	l := New(nil)
	var got []any
	l.On("n", func(v any) { got = append(got, v) }).
		On("stop", func(any) { l.Stop() })

	for i := 0; i < 5; i++ {
		l.Dispatch(Event{Key: "n", Data: i})
	}
	l.Dispatch(Event{Key: "stop"})

	require.NoError(t, l.Run(context.Background()))
	assert.Equal(t, []any{0, 1, 2, 3, 4}, got)
	assert.Zero(t, l.Pending())
}

func TestLoop_DrainsQueueAfterStop(t *testing.T) {
	l := New(nil)
	count := 0
	l.On("x", func(any) { count++ })
	l.Dispatch(Event{Key: "x"})
	l.Dispatch(Event{Key: "x"})
	l.Stop()

	require.NoError(t, l.Run(context.Background()))
	assert.Equal(t, 2, count)
}

func TestLoop_UnknownKeyWarns(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	l := New(zap.New(core))
	l.Dispatch(Event{Key: "foo", Data: "bar"})
	l.Stop()

	require.NoError(t, l.Run(context.Background()))
	entries := logs.FilterMessage("no handler for key").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "foo", entries[0].ContextMap()["key"])
}

func TestLoop_ConcurrentProducers(t *testing.T) {
	l := New(nil)
	var mu sync.Mutex
	seen := 0
	l.On("p", func(any) {
		mu.Lock()
		seen++
		mu.Unlock()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				l.Dispatch(Event{Key: "p", Data: i})
			}
		}()
	}
	wg.Wait()
	l.Stop()

	require.NoError(t, <-done)
	assert.Equal(t, 1000, seen)
}

func TestLoop_RunHonoursContext(t *testing.T) {
	l := New(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Run(ctx), context.DeadlineExceeded)
}

func TestLoop_SingleRunner(t *testing.T) {
	l := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	require.Eventually(t, l.running.Load, time.Second, time.Millisecond)
	assert.ErrorIs(t, l.Run(context.Background()), ErrRunning)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestDemo_Timeline(t *testing.T) {
	var out bytes.Buffer
	core, logs := observer.New(zap.WarnLevel)
	d := Demo{Out: &out, Unit: 50 * time.Microsecond}

	require.NoError(t, d.Run(context.Background(), New(zap.New(core))))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, "hello world!", lines[0])
	assert.Equal(t, "Bye!", lines[len(lines)-1])
	assert.Contains(t, lines, "hello beautiful world")
	assert.Contains(t, lines, "hello beautiful universe")

	var ticks []string
	for _, l := range lines {
		if strings.HasPrefix(l, "tick") {
			ticks = append(ticks, l)
		}
	}
	assert.Equal(t, []string{"tick #0", "tick #1", "tick #2", "tick #3", "tick #4", "tick #5"}, ticks)
	assert.Equal(t, 1, logs.FilterMessage("no handler for key").Len())
}
