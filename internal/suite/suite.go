package suite

import "time"

// Suite is an ordered, nestable collection of tests.
type Suite struct {
	name  string
	tests []Test
}

// New creates a suite holding the given tests in order.
func New(name string, tests ...Test) *Suite {
	return &Suite{name: name, tests: tests}
}

// ID returns the suite name.
func (s *Suite) ID() string {
	return s.name
}

// Add appends a test (a case or another suite).
func (s *Suite) Add(t Test) {
	s.tests = append(s.tests, t)
}

// Tests returns the direct children in order.
func (s *Suite) Tests() []Test {
	return s.tests
}

// CountTestCases returns the number of cases in the whole tree.
func (s *Suite) CountTestCases() int {
	n := 0
	for _, t := range s.tests {
		n += t.CountTestCases()
	}
	return n
}

// Flatten returns every case of the tree in depth-first order.
func (s *Suite) Flatten() []Case {
	var cases []Case
	for _, t := range s.tests {
		switch v := t.(type) {
		case *Suite:
			cases = append(cases, v.Flatten()...)
		case Case:
			cases = append(cases, v)
		}
	}
	return cases
}

// Run runs every case in order until r asks to stop.
func (s *Suite) Run(r Result) {
	for _, c := range s.Flatten() {
		if r.ShouldStop() {
			return
		}
		c.Run(r)
	}
}

// FuncCase adapts a Go function into a Case.
type FuncCase struct {
	id   string
	name string
	fn   func() error
}

// Func creates a case that runs fn. See Report for how the error is classified.
func Func(id, name string, fn func() error) *FuncCase {
	return &FuncCase{id: id, name: name, fn: fn}
}

func (c *FuncCase) ID() string          { return c.id }
func (c *FuncCase) Name() string        { return c.name }
func (c *FuncCase) CountTestCases() int { return 1 }

// Run executes the function, converting a panic into an error outcome.
func (c *FuncCase) Run(r Result) {
	r.StartTest(c)
	defer r.StopTest(c)
	Report(r, c, c.call(c.fn))
}

func (c *FuncCase) call(fn func() error) (err error) {
	defer func() {
		if p := Recover(recover()); p != nil {
			err = p
		}
	}()
	return fn()
}

// StepCase is a Case whose steps may run one per scheduler turn.
type StepCase struct {
	FuncCase
	steps []func() error
	wait  time.Duration
}

// Steps creates a case made of steps. Run executes them back to back; Start
// lets a deferring runner resume after each step.
func Steps(id, name string, steps ...func() error) *StepCase {
	return &StepCase{FuncCase: FuncCase{id: id, name: name}, steps: steps}
}

// WithWait sets the delay requested between steps.
func (c *StepCase) WithWait(d time.Duration) *StepCase {
	c.wait = d
	return c
}

// Run executes every step in one call.
func (c *StepCase) Run(r Result) {
	r.StartTest(c)
	defer r.StopTest(c)
	Report(r, c, c.call(c.runAll))
}

func (c *StepCase) runAll() error {
	for _, step := range c.steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// Start begins stepwise execution.
func (c *StepCase) Start(r Result) Continuation {
	r.StartTest(c)
	return &stepContinuation{c: c, r: r}
}

type stepContinuation struct {
	c    *StepCase
	r    Result
	next int
}

func (s *stepContinuation) Resume() (bool, time.Duration) {
	if s.next < len(s.c.steps) {
		err := s.c.call(s.c.steps[s.next])
		s.next++
		if err == nil && s.next < len(s.c.steps) {
			return false, s.c.wait
		}
		if err != nil {
			s.finish(err)
			return true, 0
		}
	}
	s.finish(nil)
	return true, 0
}

func (s *stepContinuation) finish(err error) {
	Report(s.r, s.c, err)
	s.r.StopTest(s.c)
}
