// Package loop runs periodic tasks until their context is done.
package loop

import (
	"context"
	"fmt"
	"time"
)

// Next tells Start what to do after a task.
type Next struct {
	err      error
	quit     bool
	interval time.Duration
}

func (n Next) String() string {
	if n.err != nil {
		return fmt.Sprintf("[break] with error: %v", n.err)
	}
	if n.quit {
		return "[break] without error"
	}
	return fmt.Sprintf("[continue] interval: %s", n.interval)
}

// Continue runs the task again after interval.
func Continue(interval time.Duration) Next {
	return Next{interval: interval}
}

// Break stops the loop. err is returned from Start as is.
func Break(err error) Next {
	return Next{quit: true, err: err}
}

// Task receives the value it returned last time.
//
// The zero Next is Continue(0).
type Task[T any] func(context.Context, T) (T, Next)

// Start calls task with init, then with what task returned last,
// until task breaks or ctx is done.
//
// It returns the last value task returned, and the error of Break or ctx.Err().
func Start[T any](ctx context.Context, init T, task Task[T]) (T, error) {
	if err := ctx.Err(); err != nil {
		return init, err
	}

	value := init
	for {
		v, next := task(ctx, value)
		value = v
		if next.err != nil {
			return value, next.err
		}
		if next.quit {
			return value, nil
		}

		timer := time.NewTimer(next.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return value, ctx.Err()
		case <-timer.C:
		}
	}
}
