package eventloop

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// Demo replays a fixed timeline against a Loop: six ticks one unit of
// 1000 apart followed by a stop, two delayed greetings from a second
// producer, and two events queued before any handler exists.
type Demo struct {
	Out  io.Writer
	Unit time.Duration // length of one timeline millisecond
}

// Run plays the timeline and returns once the loop stops.
func (d Demo) Run(ctx context.Context, loop *Loop) error {
	unit := d.Unit
	if unit <= 0 {
		unit = time.Millisecond
	}
	sleep := func(ms int) bool {
		t := time.NewTimer(time.Duration(ms) * unit)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return false
		case <-t.C:
			return true
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for n := 0; n < 6; n++ {
			if !sleep(1000) {
				return
			}
			loop.Dispatch(Event{Key: "tick", Data: n})
		}
		loop.Dispatch(Event{Key: "stop"})
	}()
	go func() {
		defer wg.Done()
		if !sleep(2500) {
			return
		}
		loop.Dispatch(Event{Key: "hello", Data: "beautiful world"})
		if !sleep(800) {
			return
		}
		loop.Dispatch(Event{Key: "hello", Data: "beautiful universe"})
	}()

	loop.Dispatch(Event{Key: "hello", Data: "world!"})
	loop.Dispatch(Event{Key: "foo", Data: "bar"})
	loop.
		On("hello", func(v any) { fmt.Fprintf(d.Out, "hello %v\n", v) }).
		On("tick", func(v any) { fmt.Fprintf(d.Out, "tick #%v\n", v) }).
		On("stop", func(any) { loop.Stop() })

	err := loop.Run(ctx)
	wg.Wait()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(d.Out, "Bye!")
	return err
}
