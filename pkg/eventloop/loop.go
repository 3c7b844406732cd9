// Package eventloop serializes all state-layer work onto a single goroutine.
//
// Stores, collections and the session manager are written for one logical thread of
// control and carry no locks. Anything that originates elsewhere (HTTP handlers, timer
// callbacks) is posted onto the Loop and runs to completion before the next item starts.
package eventloop

import (
	"context"
	"errors"
	"sync"
	"time"

	"gitlab.com/timkado/web/storefront-state/internal/domain"
	"gitlab.com/timkado/web/storefront-state/pkg/safego"
)

const defaultQueueSize = 256

// ErrStopped is returned by Do when the loop is no longer accepting work.
var ErrStopped = errors.New("event loop stopped")

// Loop runs posted functions one at a time, in post order.
type Loop struct {
	logger   domain.Logger
	queue    chan func()
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a loop. queueSize <= 0 selects a default buffer.
func New(logger domain.Logger, queueSize int) *Loop {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Loop{
		logger: logger,
		queue:  make(chan func(), queueSize),
		done:   make(chan struct{}),
	}
}

// Start launches the loop goroutine. It returns immediately; the loop exits on Stop or ctx cancellation.
func (l *Loop) Start(ctx context.Context) {
	l.wg.Add(1)
	safego.Execute(ctx, l.logger, "StateEventLoop", func() {
		defer l.wg.Done()
		for {
			select {
			case fn := <-l.queue:
				l.run(ctx, fn)
			case <-l.done:
				return
			case <-ctx.Done():
				l.Stop()
				return
			}
		}
	})
}

func (l *Loop) run(ctx context.Context, fn func()) {
	defer safego.Recover(ctx, l.logger, "StateEventLoopTask")
	fn()
}

// Post enqueues fn. It returns false if the loop has been stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.queue <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do posts fn and waits for it to finish. It must not be called from inside a loop task.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrStopped
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
}

// Stop stops accepting work. Queued tasks that have not started are dropped; use Wait to
// block until the loop goroutine has exited. Safe to call more than once.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.done)
	})
}

// Wait blocks until the loop goroutine has exited.
func (l *Loop) Wait() {
	l.wg.Wait()
}

// Clock is a domain.Clock whose timer callbacks run on the loop.
type Clock struct {
	loop *Loop
}

// NewClock returns a wall clock that delivers AfterFunc callbacks through loop.
func NewClock(loop *Loop) *Clock {
	return &Clock{loop: loop}
}

// Now returns the current wall time.
func (c *Clock) Now() time.Time {
	return time.Now()
}

// AfterFunc schedules f on the loop after d. A timer that fires after the loop stopped is dropped.
func (c *Clock) AfterFunc(d time.Duration, f func()) domain.Timer {
	return time.AfterFunc(d, func() {
		c.loop.Post(f)
	})
}
