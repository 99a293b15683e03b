package suite

import (
	"errors"
	"fmt"
)

// Entry pairs a case with the failure it reported.
type Entry struct {
	Case    Case
	Failure Failure
}

// SkipEntry pairs a case with the reason it was skipped.
type SkipEntry struct {
	Case   Case
	Reason string
}

// Tally is the base Result implementation. It counts outcomes and keeps the
// failure details for the final report.
type Tally struct {
	TestsRun  int
	Successes int
	Failures  []Entry
	Errors    []Entry
	Skipped   []SkipEntry
	stop      bool
}

// NewTally returns an empty Tally.
func NewTally() *Tally {
	return &Tally{}
}

func (t *Tally) StartTest(Case) {
	t.TestsRun++
}

func (t *Tally) StopTest(Case) {}

func (t *Tally) AddSuccess(Case) {
	t.Successes++
}

func (t *Tally) AddFailure(c Case, f Failure) {
	t.Failures = append(t.Failures, Entry{Case: c, Failure: f})
}

func (t *Tally) AddError(c Case, f Failure) {
	t.Errors = append(t.Errors, Entry{Case: c, Failure: f})
}

func (t *Tally) AddSkip(c Case, reason string) {
	t.Skipped = append(t.Skipped, SkipEntry{Case: c, Reason: reason})
}

// ShouldStop reports whether Stop was called.
func (t *Tally) ShouldStop() bool {
	return t.stop
}

// Stop asks the running suite to stop after the current case.
func (t *Tally) Stop() {
	t.stop = true
}

// WasSuccessful reports whether no case failed or errored.
func (t *Tally) WasSuccessful() bool {
	return len(t.Failures) == 0 && len(t.Errors) == 0
}

// Report routes err to the matching Result method: nil is a success, an
// AssertionError a failure, a SkipError a skip, and anything else an error
// (located when it is a StepError).
func Report(r Result, c Case, err error) {
	if err == nil {
		r.AddSuccess(c)
		return
	}

	var skip *SkipError
	if errors.As(err, &skip) {
		r.AddSkip(c, skip.Reason)
		return
	}

	var assertion *AssertionError
	if errors.As(err, &assertion) {
		r.AddFailure(c, Failure{Location: assertion.Location, Message: assertion.Message})
		return
	}

	var located *StepError
	if errors.As(err, &located) {
		r.AddError(c, Failure{Location: located.Location, Message: located.Err.Error()})
		return
	}

	r.AddError(c, Failure{Message: err.Error()})
}

// Recover converts a panic value into an error; it returns nil for nil.
func Recover(v interface{}) error {
	if v == nil {
		return nil
	}
	if err, ok := v.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", v)
}
