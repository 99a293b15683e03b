// Package runner executes test suites and writes a unittest-style report to a
// result stream, either in one blocking pass or one unit per scheduler turn.
package runner

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/AndreyAkinshin/unittesting/internal/suite"
)

const (
	separator1 = "======================================================================"
	separator2 = "----------------------------------------------------------------------"

	// DefaultVerbosity prints one line per case.
	DefaultVerbosity = 2
)

var printer = message.NewPrinter(language.English)

// Option configures a runner.
type Option func(*options)

type options struct {
	verbosity int
	logger    *slog.Logger
	now       func() time.Time
}

func defaultOptions() options {
	return options{
		verbosity: DefaultVerbosity,
		logger:    slog.Default(),
		now:       time.Now,
	}
}

// WithVerbosity sets the report verbosity: 0 prints only the summary, 1 a
// character per case, 2 a line per case.
func WithVerbosity(verbosity int) Option {
	return func(o *options) {
		o.verbosity = verbosity
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock sets the time source used to measure the run duration.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// TextResult is a Result that echoes progress to a writer as cases finish.
type TextResult struct {
	*suite.Tally
	w         io.Writer
	verbosity int
}

// NewTextResult creates a TextResult writing to w.
func NewTextResult(w io.Writer, verbosity int) *TextResult {
	return &TextResult{Tally: suite.NewTally(), w: w, verbosity: verbosity}
}

func (r *TextResult) StartTest(c suite.Case) {
	r.Tally.StartTest(c)
	if r.verbosity > 1 {
		fmt.Fprintf(r.w, "%s ... ", suite.Describe(c))
	}
}

func (r *TextResult) AddSuccess(c suite.Case) {
	r.Tally.AddSuccess(c)
	r.progress(suite.OutcomePass, ".", "")
}

func (r *TextResult) AddFailure(c suite.Case, f suite.Failure) {
	r.Tally.AddFailure(c, f)
	r.progress(suite.OutcomeFail, "F", "")
}

func (r *TextResult) AddError(c suite.Case, f suite.Failure) {
	r.Tally.AddError(c, f)
	r.progress(suite.OutcomeError, "E", "")
}

func (r *TextResult) AddSkip(c suite.Case, reason string) {
	r.Tally.AddSkip(c, reason)
	r.progress(suite.OutcomeSkip, "s", fmt.Sprintf(" '%s'", reason))
}

func (r *TextResult) progress(o suite.Outcome, dot, suffix string) {
	switch {
	case r.verbosity > 1:
		fmt.Fprintf(r.w, "%s%s\n", o, suffix)
	case r.verbosity == 1:
		fmt.Fprint(r.w, dot)
	}
}

// printErrors writes the detail block of every error, then every failure.
func (r *TextResult) printErrors() {
	if r.verbosity > 0 {
		fmt.Fprintln(r.w)
	}
	r.printErrorList(suite.OutcomeError, r.Errors)
	r.printErrorList(suite.OutcomeFail, r.Failures)
}

func (r *TextResult) printErrorList(o suite.Outcome, entries []suite.Entry) {
	for _, e := range entries {
		fmt.Fprintln(r.w, separator1)
		fmt.Fprintf(r.w, "%s: %s\n", o, suite.Describe(e.Case))
		fmt.Fprintln(r.w, separator2)
		if !e.Failure.Location.IsZero() {
			fmt.Fprintf(r.w, "  %s\n", e.Failure.Location)
		}
		fmt.Fprintf(r.w, "%s\n\n", e.Failure.Message)
	}
}

// printSummary writes the detail blocks and the closing summary lines.
func (r *TextResult) printSummary(elapsed time.Duration) {
	r.printErrors()
	fmt.Fprintln(r.w, separator2)

	noun := "tests"
	if r.TestsRun == 1 {
		noun = "test"
	}
	fmt.Fprint(r.w, printer.Sprintf("Ran %d %s in %.3fs\n\n", r.TestsRun, noun, elapsed.Seconds()))

	var infos []string
	if !r.WasSuccessful() {
		if n := len(r.Failures); n > 0 {
			infos = append(infos, fmt.Sprintf("failures=%d", n))
		}
		if n := len(r.Errors); n > 0 {
			infos = append(infos, fmt.Sprintf("errors=%d", n))
		}
	}
	if n := len(r.Skipped); n > 0 {
		infos = append(infos, fmt.Sprintf("skipped=%d", n))
	}

	status := "OK"
	if !r.WasSuccessful() {
		status = "FAILED"
	}
	if len(infos) > 0 {
		fmt.Fprintf(r.w, "%s (%s)\n", status, strings.Join(infos, ", "))
	} else {
		fmt.Fprintln(r.w, status)
	}
}

// TextRunner runs a suite to completion on the caller's goroutine.
type TextRunner struct {
	w    io.Writer
	opts options
}

// NewTextRunner creates a TextRunner writing to w.
func NewTextRunner(w io.Writer, opts ...Option) *TextRunner {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.WithGroup("runner.TextRunner")
	return &TextRunner{w: w, opts: o}
}

// Run executes every case of s in order and writes the report.
func (r *TextRunner) Run(s *suite.Suite) *TextResult {
	result := NewTextResult(r.w, r.opts.verbosity)

	start := r.opts.now()
	s.Run(result)
	elapsed := r.opts.now().Sub(start)

	result.printSummary(elapsed)
	r.opts.logger.Debug("run complete",
		"tests", result.TestsRun,
		"failures", len(result.Failures),
		"errors", len(result.Errors),
		"elapsed", elapsed,
	)
	return result
}
