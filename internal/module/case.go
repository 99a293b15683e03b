package module

import (
	"errors"
	"fmt"
	"time"

	"github.com/AndreyAkinshin/unittesting/internal/expect"
	"github.com/AndreyAkinshin/unittesting/internal/steps"
	"github.com/AndreyAkinshin/unittesting/internal/suite"
)

// Case is one test of a module. It implements suite.Stepper: when deferred,
// its continuation stops at every yield and sleep step so a deferring runner
// can resume it on a later scheduler turn; otherwise the continuation runs
// the whole case in one call.
type Case struct {
	mod      *Module
	def      TestDef
	registry *steps.Registry
	deferred bool
	sleep    func(time.Duration)
}

var _ suite.Stepper = (*Case)(nil)

// Cases builds one case per test definition, in file order.
func (m *Module) Cases(registry *steps.Registry, deferred bool) []*Case {
	if registry == nil {
		registry = steps.Builtins()
	}
	cases := make([]*Case, 0, len(m.Tests))
	for _, def := range m.Tests {
		cases = append(cases, &Case{
			mod:      m,
			def:      def,
			registry: registry,
			deferred: deferred,
			sleep:    time.Sleep,
		})
	}
	return cases
}

// Suite returns a suite holding the module's cases.
func (m *Module) Suite(registry *steps.Registry, deferred bool) *suite.Suite {
	s := suite.New(m.Name)
	for _, c := range m.Cases(registry, deferred) {
		s.Add(c)
	}
	return s
}

// EffectiveVars merges the variables of all includes (depth first, in
// declaration order) with the module's own, which take precedence.
func (m *Module) EffectiveVars() map[string]interface{} {
	vars := make(map[string]interface{})
	for _, inc := range m.Includes {
		for k, v := range inc.EffectiveVars() {
			vars[k] = v
		}
	}
	for k, v := range m.Vars {
		vars[k] = v
	}
	return vars
}

func (c *Case) ID() string          { return c.mod.Name + "." + c.def.Name }
func (c *Case) Name() string        { return c.def.Name }
func (c *Case) CountTestCases() int { return 1 }

// Deferred reports whether the case suspends at yield points.
func (c *Case) Deferred() bool { return c.deferred }

// Module returns the module the case was compiled from.
func (c *Case) Module() *Module { return c.mod }

// Location returns where the test is defined.
func (c *Case) Location() suite.Location {
	return suite.Location{File: c.mod.Path, Line: c.def.Line}
}

// Run executes the whole case, including setup and teardown, in one call.
func (c *Case) Run(r suite.Result) {
	r.StartTest(c)
	defer r.StopTest(c)

	if c.def.Skip != "" {
		r.AddSkip(c, c.def.Skip)
		return
	}

	e := c.newExecution(true)
	e.runAll()
	e.report(r)
}

// Start begins execution and returns a continuation that reports the outcome
// and stops the test when it finishes.
func (c *Case) Start(r suite.Result) suite.Continuation {
	r.StartTest(c)
	return &continuation{c: c, r: r, e: c.newExecution(!c.deferred)}
}

type continuation struct {
	c    *Case
	r    suite.Result
	e    *execution
	done bool
}

func (k *continuation) Resume() (bool, time.Duration) {
	if k.done {
		return true, 0
	}
	if k.c.def.Skip != "" {
		k.r.AddSkip(k.c, k.c.def.Skip)
		k.finish()
		return true, 0
	}

	if wait, suspended := k.e.resume(); suspended {
		return false, wait
	}

	k.e.report(k.r)
	k.finish()
	return true, 0
}

func (k *continuation) finish() {
	k.done = true
	k.r.StopTest(k.c)
}

type op struct {
	file     string
	step     Step
	teardown bool
}

// program lays out setup (includes first), the test body and teardown
// (own first, then includes in reverse).
func (c *Case) program() []op {
	var ops []op
	var addSetup func(m *Module)
	addSetup = func(m *Module) {
		for _, inc := range m.Includes {
			addSetup(inc)
		}
		for _, s := range m.Setup {
			ops = append(ops, op{file: m.Path, step: s})
		}
	}
	addSetup(c.mod)

	for _, s := range c.def.Steps {
		if s.Kind == StepYield {
			for i := 0; i < s.Yield; i++ {
				one := s
				one.Yield = 1
				ops = append(ops, op{file: c.mod.Path, step: one})
			}
			continue
		}
		ops = append(ops, op{file: c.mod.Path, step: s})
	}

	var addTeardown func(m *Module)
	addTeardown = func(m *Module) {
		for _, s := range m.Teardown {
			ops = append(ops, op{file: m.Path, step: s, teardown: true})
		}
		for i := len(m.Includes) - 1; i >= 0; i-- {
			addTeardown(m.Includes[i])
		}
	}
	addTeardown(c.mod)

	return ops
}

type execution struct {
	c      *Case
	ops    []op
	pc     int
	vars   map[string]interface{}
	inline bool

	err          error
	teardownErrs []error
}

func (c *Case) newExecution(inline bool) *execution {
	return &execution{
		c:      c,
		ops:    c.program(),
		vars:   c.mod.EffectiveVars(),
		inline: inline,
	}
}

func (e *execution) runAll() {
	for {
		if _, suspended := e.resume(); !suspended {
			return
		}
	}
}

// resume runs ops until one suspends or the program ends. Once a setup or
// body op fails, the remaining ones are skipped; teardown always runs and
// each of its failures is kept.
func (e *execution) resume() (time.Duration, bool) {
	for e.pc < len(e.ops) {
		o := e.ops[e.pc]
		e.pc++
		if e.err != nil && !o.teardown {
			continue
		}

		wait, suspend, err := e.safeExec(o)
		if err != nil {
			if o.teardown {
				e.teardownErrs = append(e.teardownErrs, err)
			} else {
				e.err = err
			}
			continue
		}
		if suspend && !e.inline {
			return wait, true
		}
	}
	return 0, false
}

// report passes the outcome of the body to r, followed by every teardown
// failure. A body that passed is not reported as a success when its
// teardown failed.
func (e *execution) report(r suite.Result) {
	if e.err != nil || len(e.teardownErrs) == 0 {
		suite.Report(r, e.c, e.err)
	}
	for _, err := range e.teardownErrs {
		suite.Report(r, e.c, err)
	}
}

func (e *execution) safeExec(o op) (wait time.Duration, suspend bool, err error) {
	defer func() {
		if p := suite.Recover(recover()); p != nil {
			err = &suite.StepError{Location: e.loc(o), Err: p}
		}
	}()
	return e.exec(o)
}

func (e *execution) loc(o op) suite.Location {
	return suite.Location{File: o.file, Line: o.step.Line}
}

func (e *execution) exec(o op) (time.Duration, bool, error) {
	s := o.step
	loc := e.loc(o)

	switch s.Kind {
	case StepSet:
		for _, k := range expect.SortedKeys(s.Set) {
			v, err := substitute(s.Set[k], e.vars)
			if err != nil {
				return 0, false, &suite.StepError{Location: loc, Err: err}
			}
			e.vars[k] = v
		}

	case StepCall:
		args, err := substitute(s.Call.Args, e.vars)
		if err != nil {
			return 0, false, &suite.StepError{Location: loc, Err: err}
		}
		argList, _ := args.([]interface{})
		result, err := e.c.registry.Call(s.Call.Fn, argList)
		if err != nil {
			return 0, false, locate(err, loc, s.Call.Fn)
		}
		if s.Call.Into != "" {
			e.vars[s.Call.Into] = result
		}

	case StepExpect:
		if err := e.checkExpectation(s.Expect, loc); err != nil {
			return 0, false, err
		}

	case StepYield:
		return 0, true, nil

	case StepSleep:
		if e.inline {
			e.c.sleep(s.Sleep)
			return 0, false, nil
		}
		return s.Sleep, true, nil

	case StepFail:
		return 0, false, &suite.AssertionError{Location: loc, Message: s.Message}

	case StepError:
		return 0, false, &suite.StepError{Location: loc, Err: errors.New(s.Message)}

	case StepSkip:
		return 0, false, &suite.SkipError{Reason: s.Message}

	default:
		return 0, false, &suite.StepError{Location: loc, Err: fmt.Errorf("unknown step %q", s.Kind)}
	}

	return 0, false, nil
}

func (e *execution) checkExpectation(spec *ExpectSpec, loc suite.Location) error {
	actual, err := substitute(spec.Actual, e.vars)
	if err != nil {
		return &suite.StepError{Location: loc, Err: err}
	}
	expected, err := substitute(spec.Equal, e.vars)
	if err != nil {
		return &suite.StepError{Location: loc, Err: err}
	}

	ok, diff := expect.Equal(expected, actual, expect.Options{
		Tolerance: spec.Tolerance,
		Unordered: spec.Unordered,
	})

	var msg string
	switch {
	case spec.Negate && ok:
		msg = fmt.Sprintf("expected a value other than %v", expected)
	case !spec.Negate && !ok:
		msg = diff
	default:
		return nil
	}

	if spec.Message != "" {
		msg = spec.Message + ": " + msg
	}
	return &suite.AssertionError{Location: loc, Message: msg}
}

// locate attaches loc to an error returned by a step function.
func locate(err error, loc suite.Location, fn string) error {
	var assertion *suite.AssertionError
	if errors.As(err, &assertion) {
		if assertion.Location.IsZero() {
			assertion.Location = loc
		}
		return assertion
	}
	var skip *suite.SkipError
	if errors.As(err, &skip) {
		return skip
	}
	return &suite.StepError{Location: loc, Err: fmt.Errorf("%s: %w", fn, err)}
}
