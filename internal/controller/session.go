package controller

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/AndreyAkinshin/unittesting/internal/runner"
)

// Session tracks one requested run. A session finishes when its report has
// been written and the stream closed, or when setup failed.
type Session struct {
	ID       uuid.UUID
	Package  string
	Pattern  string
	Output   string
	Async    bool
	Deferred bool

	once   sync.Once
	done   chan struct{}
	mu     sync.Mutex
	result *runner.TextResult
	err    error
}

func newSession(pkg, pattern, output string, async, deferred bool) *Session {
	return &Session{
		ID:       uuid.New(),
		Package:  pkg,
		Pattern:  pattern,
		Output:   output,
		Async:    async,
		Deferred: deferred,
		done:     make(chan struct{}),
	}
}

// Done is closed when the session has finished.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session finishes or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Result returns the run result, or nil if the run never started or has not
// finished.
func (s *Session) Result() *runner.TextResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Err returns the error that ended the session: a setup failure or an
// aborted run.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// finish records the outcome once; later calls are ignored.
func (s *Session) finish(result *runner.TextResult, err error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.result = result
		s.err = err
		s.mu.Unlock()
		close(s.done)
	})
}
