// Package eventloop implements the single-threaded cooperative executor the
// module cache runs on. All cache operations execute as callbacks on one loop;
// work that needs to continue after off-loop activity (blocking I/O, a native
// call that suspended) reserves a slot with RegisterCallback and enqueues its
// continuation through the returned function.
package eventloop

import (
	"fmt"
	"sync"
)

// Loop is a cooperative event loop. It is not safe to run the same Loop from
// multiple goroutines at once, but the functions returned by RegisterCallback
// may be called from anywhere.
type Loop struct {
	lock                sync.Mutex
	queue               []func() error
	wakeupCh            chan struct{} // maybe this should be sync.Cond
	registeredCallbacks int
}

// New returns an initialized loop.
func New() *Loop {
	return &Loop{
		wakeupCh: make(chan struct{}, 1),
	}
}

func (l *Loop) wakeup() {
	select {
	case l.wakeupCh <- struct{}{}:
	default:
	}
}

// RegisterCallback reserves a slot on the loop and returns a function through
// which the eventual continuation is enqueued. The loop will not exit while
// reserved slots remain. The returned function must be called exactly once.
func (l *Loop) RegisterCallback() (enqueueCallback func(func() error)) {
	l.lock.Lock()
	l.registeredCallbacks++
	l.lock.Unlock()

	var callbackCalled bool
	return func(f func() error) {
		l.lock.Lock()
		if callbackCalled { // this is protected by the lock on the queue
			l.lock.Unlock()
			panic(fmt.Errorf("eventloop: a callback was enqueued twice"))
		}
		callbackCalled = true
		l.queue = append(l.queue, f)
		l.registeredCallbacks--
		l.lock.Unlock()

		l.wakeup()
	}
}

func (l *Loop) popAll() (queue []func() error, awaiting bool) {
	l.lock.Lock()
	queue = l.queue
	l.queue = make([]func() error, 0, len(queue))
	awaiting = l.registeredCallbacks != 0
	l.lock.Unlock()
	return
}

// Start runs firstCallback and continues executing enqueued callbacks until
// the queue is drained and no reserved slots remain. The first error returned
// by a callback stops the loop; already reserved continuations stay pending
// and can be drained with WaitOnRegistered.
func (l *Loop) Start(firstCallback func() error) error {
	l.queue = []func() error{firstCallback}
	for {
		queue, awaiting := l.popAll()

		if len(queue) == 0 {
			if !awaiting {
				return nil
			}
			<-l.wakeupCh
			continue
		}

		for _, f := range queue {
			if err := f(); err != nil {
				return err
			}
		}
	}
}

// WaitOnRegistered waits for all reserved callbacks to be enqueued and runs
// them, discarding their results. Used on teardown after Start returned an
// error, so that off-loop work does not enqueue into a dead loop.
func (l *Loop) WaitOnRegistered() {
	for {
		queue, awaiting := l.popAll()

		if len(queue) == 0 {
			if !awaiting {
				return
			}
			<-l.wakeupCh
			continue
		}

		for _, f := range queue {
			_ = f()
		}
	}
}
