package module

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AndreyAkinshin/unittesting/internal/steps"
	"github.com/AndreyAkinshin/unittesting/internal/suite"
)

func mustParse(t *testing.T, path, src string) *Module {
	t.Helper()
	mod, err := Parse(path, []byte(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return mod
}

func TestCase_RunOutcomes(t *testing.T) {
	src := `module: outcomes
vars:
  base: 2
tests:
  - name: test_pass
    steps:
      - call: {fn: mul, args: ["${base}", 3], into: y}
      - expect: {actual: "${y}", equal: 6}
  - name: test_fail
    steps:
      - expect: {actual: "${base}", equal: 3, message: base mismatch}
  - name: test_error
    steps:
      - error: something broke
  - name: test_skip_step
    steps:
      - skip: not on this host
  - name: test_skip_def
    skip: disabled
  - name: test_unknown_fn
    steps:
      - call: {fn: nope}
  - name: test_not_equal
    steps:
      - expect: {actual: 1, not_equal: 1}
`
	mod := mustParse(t, "/pkg/tests/test_outcomes.yaml", src)
	tally := suite.NewTally()
	mod.Suite(steps.Builtins(), false).Run(tally)

	if tally.TestsRun != 7 {
		t.Errorf("TestsRun = %d, want 7", tally.TestsRun)
	}
	if tally.Successes != 1 {
		t.Errorf("Successes = %d, want 1", tally.Successes)
	}
	if len(tally.Failures) != 2 {
		t.Fatalf("len(Failures) = %d, want 2", len(tally.Failures))
	}

	fail := tally.Failures[0]
	if fail.Case.ID() != "outcomes.test_fail" {
		t.Errorf("Failures[0].Case = %q", fail.Case.ID())
	}
	if !strings.HasPrefix(fail.Failure.Message, "base mismatch: ") {
		t.Errorf("Failures[0].Message = %q", fail.Failure.Message)
	}
	wantLoc := suite.Location{File: "/pkg/tests/test_outcomes.yaml", Line: 11}
	if fail.Failure.Location != wantLoc {
		t.Errorf("Failures[0].Location = %+v, want %+v", fail.Failure.Location, wantLoc)
	}

	if len(tally.Errors) != 2 {
		t.Fatalf("len(Errors) = %d, want 2", len(tally.Errors))
	}
	if tally.Errors[0].Failure.Message != "something broke" || tally.Errors[0].Failure.Location.Line != 14 {
		t.Errorf("Errors[0] = %+v", tally.Errors[0].Failure)
	}
	if !strings.Contains(tally.Errors[1].Failure.Message, `unknown step function "nope"`) {
		t.Errorf("Errors[1] = %+v", tally.Errors[1].Failure)
	}

	if len(tally.Skipped) != 2 {
		t.Errorf("len(Skipped) = %d, want 2", len(tally.Skipped))
	}
}

func TestCase_SetupAndTeardownRunAroundEveryTest(t *testing.T) {
	var trace []string
	registry := steps.NewRegistry()
	registry.MustRegister("trace", func(args []interface{}) (interface{}, error) {
		trace = append(trace, args[0].(string))
		return nil, nil
	})

	src := `setup:
  - call: {fn: trace, args: [setup]}
teardown:
  - call: {fn: trace, args: [teardown]}
tests:
  - name: test_a
    steps:
      - call: {fn: trace, args: [a]}
  - name: test_b
    steps:
      - fail: boom
      - call: {fn: trace, args: [unreachable]}
`
	mod := mustParse(t, "m.yaml", src)
	tally := suite.NewTally()
	mod.Suite(registry, false).Run(tally)

	got := strings.Join(trace, ",")
	want := "setup,a,teardown,setup,teardown"
	if got != want {
		t.Errorf("trace = %q, want %q", got, want)
	}
	if len(tally.Failures) != 1 {
		t.Errorf("len(Failures) = %d, want 1", len(tally.Failures))
	}
}

func TestCase_IncludedSetupRunsFirst(t *testing.T) {
	dir := t.TempDir()
	var trace []string
	registry := steps.NewRegistry()
	registry.MustRegister("trace", func(args []interface{}) (interface{}, error) {
		trace = append(trace, args[0].(string))
		return nil, nil
	})

	writeFile(t, filepath.Join(dir, "fixture.yaml"),
		"setup:\n  - call: {fn: trace, args: [fixture-up]}\nteardown:\n  - call: {fn: trace, args: [fixture-down]}\n")
	path := filepath.Join(dir, "test_x.yaml")
	writeFile(t, path, `include: [fixture.yaml]
setup:
  - call: {fn: trace, args: [own-up]}
teardown:
  - call: {fn: trace, args: [own-down]}
tests:
  - name: test_x
    steps:
      - call: {fn: trace, args: [body]}
`)

	mod, err := NewReloader().Reload(path)
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	mod.Suite(registry, false).Run(suite.NewTally())

	got := strings.Join(trace, ",")
	want := "fixture-up,own-up,body,own-down,fixture-down"
	if got != want {
		t.Errorf("trace = %q, want %q", got, want)
	}
}

func TestCase_TeardownErrorIsReportedAfterBodyOutcome(t *testing.T) {
	src := `teardown:
  - error: cleanup exploded
tests:
  - name: test_skip
    steps:
      - skip: not today
  - name: test_fail
    steps:
      - fail: first
  - name: test_pass
    steps:
      - set: {x: 1}
`
	for _, deferred := range []bool{false, true} {
		name := "inline"
		if deferred {
			name = "deferred"
		}
		t.Run(name, func(t *testing.T) {
			mod := mustParse(t, "/pkg/tests/test_cleanup.yaml", src)
			tally := suite.NewTally()
			for _, c := range mod.Cases(nil, deferred) {
				if !deferred {
					c.Run(tally)
					continue
				}
				cont := c.Start(tally)
				for i := 0; ; i++ {
					if done, _ := cont.Resume(); done {
						break
					}
					if i > 10 {
						t.Fatal("continuation never finished")
					}
				}
			}

			if tally.TestsRun != 3 || tally.Successes != 0 {
				t.Errorf("TestsRun = %d, Successes = %d, want 3 and 0", tally.TestsRun, tally.Successes)
			}
			if len(tally.Skipped) != 1 || tally.Skipped[0].Reason != "not today" {
				t.Errorf("Skipped = %+v", tally.Skipped)
			}
			if len(tally.Failures) != 1 || tally.Failures[0].Failure.Message != "first" {
				t.Errorf("Failures = %+v", tally.Failures)
			}

			if len(tally.Errors) != 3 {
				t.Fatalf("len(Errors) = %d, want one teardown error per test", len(tally.Errors))
			}
			wantCases := []string{"test_cleanup.test_skip", "test_cleanup.test_fail", "test_cleanup.test_pass"}
			wantLoc := suite.Location{File: "/pkg/tests/test_cleanup.yaml", Line: 2}
			for i, e := range tally.Errors {
				if e.Case.ID() != wantCases[i] {
					t.Errorf("Errors[%d].Case = %q, want %q", i, e.Case.ID(), wantCases[i])
				}
				if e.Failure.Message != "cleanup exploded" || e.Failure.Location != wantLoc {
					t.Errorf("Errors[%d].Failure = %+v", i, e.Failure)
				}
			}
		})
	}
}

func TestCase_DeferredContinuationSuspendsAtYields(t *testing.T) {
	src := `tests:
  - name: test_wait
    steps:
      - set: {x: 1}
      - yield: 2
      - sleep: 30ms
      - expect: {actual: "${x}", equal: 1}
`
	mod := mustParse(t, "m.yaml", src)
	c := mod.Cases(nil, true)[0]
	c.sleep = func(time.Duration) { t.Error("deferred case must not sleep") }

	tally := suite.NewTally()
	cont := c.Start(tally)

	var waits []time.Duration
	resumes := 0
	for {
		resumes++
		done, wait := cont.Resume()
		if done {
			break
		}
		waits = append(waits, wait)
		if resumes > 10 {
			t.Fatal("continuation never finished")
		}
	}

	if resumes != 4 {
		t.Errorf("resumes = %d, want 4 (two yields, one sleep, final segment)", resumes)
	}
	if len(waits) != 3 || waits[2] != 30*time.Millisecond {
		t.Errorf("waits = %v", waits)
	}
	if tally.Successes != 1 {
		t.Errorf("Successes = %d, want 1", tally.Successes)
	}

	if done, _ := cont.Resume(); !done {
		t.Error("Resume() after completion should report done")
	}
	if tally.Successes != 1 {
		t.Error("outcome reported twice")
	}
}

func TestCase_NonDeferredContinuationRunsInOneCall(t *testing.T) {
	src := "tests:\n  - name: t\n    steps:\n      - yield: 3\n      - sleep: 5ms\n"
	mod := mustParse(t, "m.yaml", src)
	c := mod.Cases(nil, false)[0]

	slept := time.Duration(0)
	c.sleep = func(d time.Duration) { slept += d }

	tally := suite.NewTally()
	done, _ := c.Start(tally).Resume()

	if !done {
		t.Error("non-deferred continuation should finish in one Resume")
	}
	if slept != 5*time.Millisecond {
		t.Errorf("slept = %v, want 5ms", slept)
	}
	if tally.Successes != 1 {
		t.Errorf("Successes = %d, want 1", tally.Successes)
	}
}

func TestCase_PanickingStepFunctionIsAnError(t *testing.T) {
	registry := steps.NewRegistry()
	registry.MustRegister("explode", func([]interface{}) (interface{}, error) {
		panic("kaboom")
	})

	mod := mustParse(t, "m.yaml", "tests:\n  - name: t\n    steps:\n      - call: {fn: explode}\n")
	tally := suite.NewTally()
	mod.Suite(registry, false).Run(tally)

	if len(tally.Errors) != 1 || !strings.Contains(tally.Errors[0].Failure.Message, "kaboom") {
		t.Errorf("Errors = %+v", tally.Errors)
	}
	if tally.Errors[0].Failure.Location.Line != 4 {
		t.Errorf("Location = %+v, want line 4", tally.Errors[0].Failure.Location)
	}
}

func TestCase_UndefinedVariable(t *testing.T) {
	mod := mustParse(t, "m.yaml", "tests:\n  - name: t\n    steps:\n      - expect: {actual: \"${nope}\", equal: 1}\n")
	tally := suite.NewTally()
	mod.Suite(nil, false).Run(tally)

	if len(tally.Errors) != 1 || !strings.Contains(tally.Errors[0].Failure.Message, `undefined variable "nope"`) {
		t.Errorf("Errors = %+v", tally.Errors)
	}
}

func TestCase_Identity(t *testing.T) {
	mod := mustParse(t, "/p/tests/test_id.yaml", "module: ident\ntests:\n  - name: test_x\n")
	c := mod.Cases(nil, true)[0]

	if c.ID() != "ident.test_x" || c.Name() != "test_x" {
		t.Errorf("ID/Name = %q/%q", c.ID(), c.Name())
	}
	if !c.Deferred() {
		t.Error("Deferred() = false, want true")
	}
	if c.Location() != (suite.Location{File: "/p/tests/test_id.yaml", Line: 3}) {
		t.Errorf("Location() = %+v", c.Location())
	}
	if suite.Describe(c) != "test_x (ident)" {
		t.Errorf("Describe() = %q", suite.Describe(c))
	}
}
