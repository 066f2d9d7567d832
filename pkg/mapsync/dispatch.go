package mapsync

import (
	"context"
	"sync"
)

// Dispatcher runs handlers one at a time, each to completion.
type Dispatcher interface {
	Do(fn func())
}

// Inline runs handlers immediately on the calling goroutine. Suitable for
// hosts that already serialize events and for tests.
type Inline struct{}

// Do implements Dispatcher.
func (Inline) Do(fn func()) {
	if fn != nil {
		fn()
	}
}

// Runner starts the asynchronous part of a geocode lookup.
type Runner func(fn func())

// GoRunner runs fn on a new goroutine.
func GoRunner(fn func()) {
	go fn()
}

// SyncRunner runs fn on the calling goroutine.
func SyncRunner(fn func()) {
	fn()
}

// EventLoop is an unbounded FIFO of handlers drained by Run. Do never blocks,
// so a handler may enqueue further handlers (a provider firing zoom_changed
// from inside SetZoom, for example).
type EventLoop struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
}

// NewEventLoop returns an empty loop.
func NewEventLoop() *EventLoop {
	return &EventLoop{wake: make(chan struct{}, 1)}
}

// Do enqueues fn.
func (l *EventLoop) Do(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run drains the queue until ctx is done.
func (l *EventLoop) Run(ctx context.Context) error {
	for {
		l.Drain()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Drain runs queued handlers, including those they enqueue, until the queue
// is empty. It returns the number of handlers run.
func (l *EventLoop) Drain() int {
	ran := 0
	for {
		fn, ok := l.next()
		if !ok {
			return ran
		}
		fn()
		ran++
	}
}

// Pending reports the number of queued handlers.
func (l *EventLoop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

func (l *EventLoop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}
