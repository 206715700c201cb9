package eventloop

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var ErrClosed = errors.New("event loop is closed")

// Loop runs posted tasks one at a time on a single goroutine. It implements
// ports.Scheduler.
type Loop struct {
	logger *log.Logger

	mu     sync.Mutex
	queue  []func()
	closed bool

	wake chan struct{}
	done chan struct{}

	startOnce sync.Once
}

func New(logger *log.Logger) *Loop {
	if logger == nil {
		logger = log.Default()
	}
	return &Loop{
		logger: logger.WithPrefix("loop"),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Start runs the loop in a background goroutine until ctx is done or Close is called.
func (l *Loop) Start(ctx context.Context) {
	l.startOnce.Do(func() {
		go l.run(ctx)
	})
}

// Post queues a task. Tasks posted after Close are dropped.
func (l *Loop) Post(task func()) {
	l.enqueue(task)
}

// AfterFunc posts task once delay has elapsed. Cancelling after the timer fired
// does not retract an already queued task.
func (l *Loop) AfterFunc(delay time.Duration, task func()) func() {
	timer := time.AfterFunc(delay, func() {
		l.enqueue(task)
	})
	return func() {
		timer.Stop()
	}
}

// Do runs task on the loop and waits for it. It must not be called from a task.
func (l *Loop) Do(ctx context.Context, task func()) error {
	finished := make(chan struct{})
	if !l.enqueue(func() {
		defer close(finished)
		task()
	}) {
		return ErrClosed
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		select {
		case <-finished:
			return nil
		default:
			return ErrClosed
		}
	}
}

// Close stops the loop after the tasks already queued have run.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.signal()
}

// Done is closed once the loop goroutine has exited.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) enqueue(task func()) bool {
	if task == nil {
		return false
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, task)
	l.mu.Unlock()
	l.signal()
	return true
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, l.closed
	}
	task := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return task, false
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.done)

	for {
		select {
		case <-ctx.Done():
			l.Close()
			return
		case <-l.wake:
		}

		for {
			task, closed := l.next()
			if closed {
				return
			}
			if task == nil {
				break
			}
			l.execute(task)
		}
	}
}

func (l *Loop) execute(task func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("task panicked", "panic", r)
		}
	}()
	task()
}
