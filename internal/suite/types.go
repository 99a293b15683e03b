// Package suite defines the test-runner protocol shared by the loader and the runners.
//
// A Suite is a tree of Tests. Leaves are Cases, which report their outcome to a
// Result. Cases that can suspend between steps also implement Stepper so the
// deferring runner can resume them across scheduler turns.
package suite

import (
	"fmt"
	"strings"
	"time"
)

// Outcome is the standard pass/fail/error/skip taxonomy.
type Outcome int

const (
	OutcomePass Outcome = iota
	OutcomeFail
	OutcomeError
	OutcomeSkip
)

// String returns the verbose-mode label of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomePass:
		return "ok"
	case OutcomeFail:
		return "FAIL"
	case OutcomeError:
		return "ERROR"
	case OutcomeSkip:
		return "skipped"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Location points at the source line a failure was raised from.
type Location struct {
	File string
	Line int
}

// String renders the location in the form matched by the panel's result regex.
func (l Location) String() string {
	return fmt.Sprintf("File \"%s\", line %d", l.File, l.Line)
}

// IsZero reports whether no location is known.
func (l Location) IsZero() bool {
	return l.File == "" && l.Line == 0
}

// Failure describes why a case failed or errored.
type Failure struct {
	Location Location
	Message  string
}

// Describe renders a case as "name (group)", where group is the case ID
// without its trailing ".name".
func Describe(c Case) string {
	group := strings.TrimSuffix(c.ID(), "."+c.Name())
	if group == c.ID() || group == "" {
		return c.Name()
	}
	return fmt.Sprintf("%s (%s)", c.Name(), group)
}

// Test is any node of a suite tree.
type Test interface {
	ID() string
	CountTestCases() int
}

// Case is a single runnable test.
type Case interface {
	Test
	Name() string
	// Run executes the whole case and reports to r.
	Run(r Result)
}

// Continuation resumes a suspended case. Resume runs until the next yield
// point and reports whether the case has finished, and if not, how long the
// case asked to wait before being resumed.
type Continuation interface {
	Resume() (done bool, wait time.Duration)
}

// Stepper is a Case that can run one segment at a time.
type Stepper interface {
	Case
	// Start reports the case start to r and returns a continuation for its
	// segments. The continuation reports the outcome when it finishes.
	Start(r Result) Continuation
}

// Result receives the outcome of every case.
type Result interface {
	StartTest(c Case)
	StopTest(c Case)
	AddSuccess(c Case)
	AddFailure(c Case, f Failure)
	AddError(c Case, f Failure)
	AddSkip(c Case, reason string)
	ShouldStop() bool
}

// AssertionError is returned by test code to signal a failure rather than an error.
type AssertionError struct {
	Location Location
	Message  string
}

func (e *AssertionError) Error() string {
	return e.Message
}

// Failf creates an AssertionError with a formatted message.
func Failf(format string, args ...interface{}) *AssertionError {
	return &AssertionError{Message: fmt.Sprintf(format, args...)}
}

// StepError is an unexpected error raised at a known source location.
type StepError struct {
	Location Location
	Err      error
}

func (e *StepError) Error() string {
	return e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// SkipError is returned by test code to skip the rest of a case.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	return "skipped: " + e.Reason
}
