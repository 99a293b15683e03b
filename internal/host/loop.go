// Package host provides the editor-host collaborators the harness depends on
// (scheduler, settings, prompt and output panel) together with terminal-backed
// implementations used by the CLI.
package host

import (
	"container/heap"
	"context"
	"log/slog"
	"sync"
	"time"
)

// Scheduler runs callbacks on a later turn of a cooperative loop.
type Scheduler interface {
	// Post enqueues fn to run after delay. It never blocks and never runs fn
	// on the caller's turn.
	Post(fn func(), delay time.Duration)
}

// Loop is a single-threaded timed task queue. Tasks run one at a time, in
// due-time order, with ties broken by posting order.
type Loop struct {
	name   string
	mu     sync.Mutex
	tasks  taskHeap
	seq    uint64
	ran    int
	wake   chan struct{}
	now    func() time.Time
	logger *slog.Logger
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithLoopLogger sets the logger used to report panicking tasks.
func WithLoopLogger(logger *slog.Logger) LoopOption {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoop creates an empty loop.
func NewLoop(name string, opts ...LoopOption) *Loop {
	l := &Loop{
		name:   name,
		wake:   make(chan struct{}, 1),
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.WithGroup("host.Loop").With("loop", name)
	return l
}

// Post implements Scheduler.
func (l *Loop) Post(fn func(), delay time.Duration) {
	if delay < 0 {
		delay = 0
	}
	l.mu.Lock()
	l.seq++
	heap.Push(&l.tasks, &task{due: l.now().Add(delay), seq: l.seq, fn: fn})
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

// Ran returns the number of tasks executed so far.
func (l *Loop) Ran() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ran
}

// RunUntilIdle runs tasks until the queue is empty or ctx is done. Tasks
// posted by running tasks are processed in the same call.
func (l *Loop) RunUntilIdle(ctx context.Context) error {
	return l.run(ctx, true)
}

// Run runs tasks until ctx is done, waiting for new tasks when idle.
func (l *Loop) Run(ctx context.Context) error {
	return l.run(ctx, false)
}

func (l *Loop) run(ctx context.Context, stopWhenIdle bool) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		l.mu.Lock()
		if len(l.tasks) == 0 {
			l.mu.Unlock()
			if stopWhenIdle {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-l.wake:
			}
			continue
		}

		next := l.tasks[0]
		if wait := next.due.Sub(l.now()); wait > 0 {
			l.mu.Unlock()
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-l.wake:
				timer.Stop()
			case <-timer.C:
			}
			continue
		}

		heap.Pop(&l.tasks)
		l.ran++
		l.mu.Unlock()

		l.execute(next.fn)
	}
}

func (l *Loop) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("task panicked", "panic", r)
		}
	}()
	fn()
}

type task struct {
	due time.Time
	seq uint64
	fn  func()
}

type taskHeap []*task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].due.Equal(h[j].due) {
		return h[i].seq < h[j].seq
	}
	return h[i].due.Before(h[j].due)
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) { *h = append(*h, x.(*task)) }

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}
