package runner

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robbyt/go-fsm"

	"github.com/AndreyAkinshin/unittesting/internal/host"
	"github.com/AndreyAkinshin/unittesting/internal/stream"
	"github.com/AndreyAkinshin/unittesting/internal/suite"
)

// DeferringRunner executes a suite one unit per scheduler turn so the host
// loop stays responsive. A unit is a whole case, or one segment of a
// suite.Stepper case between yield points. The runner owns the stream and
// closes it when the run finishes.
type DeferringRunner struct {
	stream stream.Stream
	sched  host.Scheduler
	opts   options
	fsm    *fsm.Machine

	result *TextResult
	units  []suite.Case
	next   int
	cont   suite.Continuation
	start  time.Time
	ticks  atomic.Int64

	finishOnce sync.Once
	done       chan struct{}

	mu         sync.Mutex
	finished   bool
	err        error
	onComplete []func(*TextResult, error)
}

// NewDeferringRunner creates a runner that writes to s and schedules its
// turns on sched.
func NewDeferringRunner(s stream.Stream, sched host.Scheduler, opts ...Option) (*DeferringRunner, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.WithGroup("runner.DeferringRunner")

	machine, err := fsm.New(o.logger.Handler(), fsm.StatusNew, fsm.TypicalTransitions)
	if err != nil {
		return nil, fmt.Errorf("unable to create fsm: %w", err)
	}

	return &DeferringRunner{
		stream: s,
		sched:  sched,
		opts:   o,
		fsm:    machine,
		result: NewTextResult(s, o.verbosity),
		done:   make(chan struct{}),
	}, nil
}

// Run begins executing s and returns immediately. The first unit runs on the
// next scheduler turn.
func (r *DeferringRunner) Run(s *suite.Suite) (*TextResult, error) {
	if err := r.fsm.Transition(fsm.StatusBooting); err != nil {
		return nil, fmt.Errorf("runner already started: %w", err)
	}

	r.units = s.Flatten()
	r.start = r.opts.now()

	if err := r.fsm.Transition(fsm.StatusRunning); err != nil {
		return nil, err
	}
	r.opts.logger.Debug("run scheduled", "cases", len(r.units))

	r.sched.Post(r.tick, 0)
	return r.result, nil
}

// Result returns the live result.
func (r *DeferringRunner) Result() *TextResult {
	return r.result
}

// Ticks returns the number of units executed so far.
func (r *DeferringRunner) Ticks() int {
	return int(r.ticks.Load())
}

// State returns the lifecycle state.
func (r *DeferringRunner) State() string {
	return r.fsm.GetState()
}

// Done is closed when the run has finished, successfully or not.
func (r *DeferringRunner) Done() <-chan struct{} {
	return r.done
}

// Err returns the error that aborted the run, or nil if every scheduled case
// ran and the report was written.
func (r *DeferringRunner) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// OnComplete registers fn to be called with the final result and the error
// that aborted the run, if any. The result of an aborted run only covers the
// cases that ran. When the run has already finished, fn is called
// immediately.
func (r *DeferringRunner) OnComplete(fn func(*TextResult, error)) {
	r.mu.Lock()
	if !r.finished {
		r.onComplete = append(r.onComplete, fn)
		r.mu.Unlock()
		return
	}
	err := r.err
	r.mu.Unlock()
	fn(r.result, err)
}

// tick runs one unit and reschedules itself until the suite is exhausted.
func (r *DeferringRunner) tick() {
	defer func() {
		if v := recover(); v != nil {
			r.fail(suite.Recover(v))
		}
	}()

	if r.cont == nil {
		if r.next >= len(r.units) || r.result.ShouldStop() {
			r.finish()
			return
		}
		r.cont = r.begin(r.units[r.next])
		r.next++
	}

	r.ticks.Add(1)
	done, wait := r.cont.Resume()
	if !done {
		r.sched.Post(r.tick, wait)
		return
	}
	r.cont = nil

	if r.next >= len(r.units) || r.result.ShouldStop() {
		r.finish()
		return
	}
	r.sched.Post(r.tick, 0)
}

// begin starts a case. Cases that cannot suspend run as a single segment.
func (r *DeferringRunner) begin(c suite.Case) suite.Continuation {
	if stepper, ok := c.(suite.Stepper); ok {
		return stepper.Start(r.result)
	}
	return wholeCase{c: c, r: r.result}
}

// finish prints the summary, closes the stream and completes the run. A
// panic while finishing aborts the run; completion happens either way.
func (r *DeferringRunner) finish() {
	r.finishOnce.Do(func() {
		defer r.complete()
		defer func() {
			if v := recover(); v != nil {
				r.abort(suite.Recover(v))
			}
		}()

		if err := r.fsm.Transition(fsm.StatusStopping); err != nil {
			r.opts.logger.Warn("unexpected state transition", "error", err)
		}

		elapsed := r.opts.now().Sub(r.start)
		r.result.printSummary(elapsed)
		if err := r.stream.Close(); err != nil {
			r.opts.logger.Error("failed to close stream", "error", err)
		}

		if err := r.fsm.Transition(fsm.StatusStopped); err != nil {
			r.opts.logger.Warn("unexpected state transition", "error", err)
		}
		r.opts.logger.Debug("run complete",
			"ticks", r.Ticks(),
			"tests", r.result.TestsRun,
			"elapsed", elapsed,
		)
	})
}

// fail aborts the run after an unexpected error escaped a tick.
func (r *DeferringRunner) fail(err error) {
	r.finishOnce.Do(func() {
		defer r.complete()
		r.abort(err)
	})
}

// abort records err, writes it to the stream if still open and closes it.
func (r *DeferringRunner) abort(err error) {
	r.mu.Lock()
	if r.err == nil {
		r.err = err
	}
	r.mu.Unlock()

	r.opts.logger.Error("run aborted", "error", err)
	r.setStateError()

	if r.stream.Closed() {
		return
	}
	fmt.Fprintf(r.stream, "ERROR: %v\n", err)
	if closeErr := r.stream.Close(); closeErr != nil {
		r.opts.logger.Error("failed to close stream", "error", closeErr)
	}
}

func (r *DeferringRunner) setStateError() {
	if r.fsm.TransitionBool(fsm.StatusError) {
		return
	}
	if err := r.fsm.SetState(fsm.StatusError); err != nil {
		r.opts.logger.Error("failed to transition to error state", "error", err)
	}
}

func (r *DeferringRunner) complete() {
	r.mu.Lock()
	r.finished = true
	err := r.err
	callbacks := r.onComplete
	r.onComplete = nil
	r.mu.Unlock()

	close(r.done)
	for _, fn := range callbacks {
		fn(r.result, err)
	}
}

// wholeCase runs a plain case as one segment.
type wholeCase struct {
	c suite.Case
	r suite.Result
}

func (w wholeCase) Resume() (bool, time.Duration) {
	w.c.Run(w.r)
	return true, 0
}
