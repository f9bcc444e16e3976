package webview

import (
	"errors"
	"sync"
	"time"
)

// ErrLoopClosed is returned when scheduling on a loop that has been closed
var ErrLoopClosed = errors.New("event loop closed")

// Timer is a cancellable one-shot callback
type Timer interface {
	Stop() bool
}

// Dispatcher serializes all controller work onto one goroutine.
// Post and AfterFunc callbacks always run on that goroutine; Go runs
// blocking work elsewhere and must hand results back through Post.
type Dispatcher interface {
	Post(fn func())
	AfterFunc(d time.Duration, fn func()) (Timer, error)
	Go(fn func())
	Now() time.Time
}

// EventLoop is the production Dispatcher. The queue is unbounded so that
// posting from inside a callback never blocks.
type EventLoop struct {
	mu      sync.Mutex
	pending []func()
	closed  bool
	wake    chan struct{}
	done    chan struct{}
	stopped chan struct{}
}

// NewEventLoop creates a loop and starts its goroutine
func NewEventLoop() *EventLoop {
	l := &EventLoop{
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *EventLoop) run() {
	defer close(l.stopped)
	for {
		select {
		case <-l.done:
			return
		case <-l.wake:
		}

		for {
			l.mu.Lock()
			batch := l.pending
			l.pending = nil
			l.mu.Unlock()
			if len(batch) == 0 {
				break
			}
			for _, fn := range batch {
				select {
				case <-l.done:
					return
				default:
				}
				fn()
			}
		}
	}
}

// Post queues fn to run on the loop goroutine. Calls after Close are dropped.
func (l *EventLoop) Post(fn func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// AfterFunc runs fn on the loop goroutine after d
func (l *EventLoop) AfterFunc(d time.Duration, fn func()) (Timer, error) {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return nil, ErrLoopClosed
	}
	return time.AfterFunc(d, func() { l.Post(fn) }), nil
}

// Go runs fn on a new goroutine
func (l *EventLoop) Go(fn func()) {
	go fn()
}

// Now returns the wall clock time
func (l *EventLoop) Now() time.Time {
	return time.Now()
}

// Close stops the loop and waits for the running callback to return.
// Safe to call multiple times.
func (l *EventLoop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.stopped
		return
	}
	l.closed = true
	l.pending = nil
	l.mu.Unlock()

	close(l.done)
	<-l.stopped
}
