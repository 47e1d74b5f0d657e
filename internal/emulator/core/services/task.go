package services

import (
	"context"
	"time"
)

// Task is a cancelable timer job running on its own goroutine.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Every calls fn each interval. The timer is re-armed only after fn returns,
// so two calls never overlap and a slow call delays the next one.
func Every(ctx context.Context, interval time.Duration, fn func(context.Context)) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(t.done)
		timer := time.NewTimer(interval)
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				fn(ctx)
				if ctx.Err() != nil {
					return
				}
				timer.Reset(interval)
			}
		}
	}()
	return t
}

// After calls fn once, d from now, unless the task is canceled first.
func After(ctx context.Context, d time.Duration, fn func(context.Context)) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(t.done)
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
			fn(ctx)
		}
	}()
	return t
}

// Cancel stops the task without waiting. A fn already running keeps running
// with a canceled context.
func (t *Task) Cancel() {
	if t != nil {
		t.cancel()
	}
}

// Stop cancels and waits for the goroutine to exit. Must not be called from
// inside fn.
func (t *Task) Stop() {
	if t == nil {
		return
	}
	t.cancel()
	<-t.done
}

func (t *Task) Done() <-chan struct{} {
	return t.done
}
