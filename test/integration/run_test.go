// Package integration runs the harness end to end against fixture packages.
package integration

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/AndreyAkinshin/unittesting/internal/controller"
	"github.com/AndreyAkinshin/unittesting/internal/host"
	"github.com/AndreyAkinshin/unittesting/internal/project"
)

var (
	fixturesDirOnce sync.Once
	fixturesDirPath string
)

// fixturesDir returns the path to the test fixtures directory.
func fixturesDir() string {
	fixturesDirOnce.Do(func() {
		_, filename, _, _ := runtime.Caller(0)
		fixturesDirPath = filepath.Join(filepath.Dir(filename), "..", "fixtures")
	})
	return fixturesDirPath
}

type harness struct {
	proj   *project.Project
	main   *host.Loop
	async  *host.Loop
	panels *host.TerminalPanelFactory
	ctrl   *controller.Controller
	outDir string
}

// newHarness loads a fixture project. Settings and result files go to a
// temporary directory so the fixtures stay untouched.
func newHarness(t *testing.T, fixture string) *harness {
	t.Helper()
	proj, err := project.LoadProjectFrom(filepath.Join(fixturesDir(), fixture))
	if err != nil {
		t.Fatalf("failed to load %s project: %v", fixture, err)
	}

	tmp := t.TempDir()
	h := &harness{
		proj:   proj,
		main:   host.NewLoop("main"),
		async:  host.NewLoop("async"),
		panels: &host.TerminalPanelFactory{Out: &bytes.Buffer{}},
		outDir: tmp,
	}
	h.ctrl = controller.New(proj, h.main, h.async,
		controller.WithSettings(host.LoadSettings(filepath.Join(tmp, host.SettingsFile))),
		controller.WithPanels(h.panels),
	)
	return h
}

// run starts a run writing to a temporary file, drains both loops and
// returns the session and the report.
func (h *harness) run(t *testing.T, req controller.Request) (*controller.Session, string) {
	t.Helper()
	if req.Output == "" {
		req.Output = filepath.Join(h.outDir, "result.txt")
	}

	sess, err := h.ctrl.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run(%+v) error = %v", req, err)
	}
	ctx := context.Background()
	if err := h.async.RunUntilIdle(ctx); err != nil {
		t.Fatalf("async loop: %v", err)
	}
	if err := h.main.RunUntilIdle(ctx); err != nil {
		t.Fatalf("main loop: %v", err)
	}
	select {
	case <-sess.Done():
	default:
		t.Fatal("session did not finish after the loops drained")
	}

	data, err := os.ReadFile(req.Output)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	return sess, string(data)
}

func TestFixtureProjectLoads(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "packages")

	if len(h.proj.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", h.proj.Warnings)
	}
	if !h.proj.Config.Panel.WordWrap {
		t.Error("panel.word_wrap from config.json was not applied")
	}

	pkgs, err := h.proj.DiscoverPackages()
	if err != nil {
		t.Fatalf("DiscoverPackages() error = %v", err)
	}
	if got, want := strings.Join(pkgs, ","), "broken,calc,empty"; got != want {
		t.Errorf("packages = %q, want %q", got, want)
	}
}

func TestRunModesProduceSameReport(t *testing.T) {
	t.Parallel()

	modes := []struct {
		name string
		req  controller.Request
	}{
		{"synchronous", controller.Request{Package: "calc"}},
		{"deferred", controller.Request{Package: "calc", Deferred: true}},
		{"async", controller.Request{Package: "calc", Async: true}},
	}

	for _, m := range modes {
		m := m
		t.Run(m.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t, "packages")
			sess, report := h.run(t, m.req)

			res := sess.Result()
			if res == nil {
				t.Fatalf("no result, session error = %v", sess.Err())
			}
			if res.TestsRun != 5 || len(res.Skipped) != 1 || !res.WasSuccessful() {
				t.Errorf("result: run=%d skipped=%d successful=%v\n%s",
					res.TestsRun, len(res.Skipped), res.WasSuccessful(), report)
			}

			wantOrder := []string{
				"test_title (test_text) ... ok",
				"test_skipped (test_text) ... skipped 'platform specific'",
				"test_add (arith) ... ok",
				"test_mul_yields (arith) ... ok",
				"test_ready (arith) ... ok",
				"OK (skipped=1)",
			}
			pos := 0
			for _, line := range wantOrder {
				i := strings.Index(report[pos:], line)
				if i < 0 {
					t.Fatalf("report missing %q after offset %d:\n%s", line, pos, report)
				}
				pos += i + len(line)
			}
		})
	}
}

func TestBrokenModuleDoesNotStopDiscovery(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "packages")

	sess, report := h.run(t, controller.Request{Package: "broken"})

	res := sess.Result()
	if res == nil {
		t.Fatalf("no result, session error = %v", sess.Err())
	}
	if res.TestsRun != 3 || len(res.Errors) != 1 || len(res.Failures) != 1 {
		t.Errorf("run=%d errors=%d failures=%d, want 3/1/1\n%s",
			res.TestsRun, len(res.Errors), len(res.Failures), report)
	}
	for _, want := range []string{
		"load_error (test_bad.yaml) ... ERROR",
		"test_fine (test_ok) ... ok",
		"test_wrong (test_ok) ... FAIL",
		"one is not two",
		"FAILED (failures=1, errors=1)",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}

func TestPatternFromSpec(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "packages")

	sess, report := h.run(t, controller.Request{Package: "calc/test_a*.yaml"})
	if res := sess.Result(); res == nil || res.TestsRun != 3 {
		t.Errorf("result = %+v, want 3 tests from test_arith.yaml only\n%s", res, report)
	}
	if strings.Contains(report, "test_text") {
		t.Errorf("report includes modules outside the pattern:\n%s", report)
	}
}

func TestEmptyPackage(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "packages")

	sess, report := h.run(t, controller.Request{Package: "empty", Deferred: true})
	if res := sess.Result(); res == nil || res.TestsRun != 0 {
		t.Errorf("result = %+v, want an empty run", res)
	}
	if !strings.Contains(report, "Ran 0 tests") {
		t.Errorf("report = %q", report)
	}
}

func TestLegacyHostRunsInline(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "legacy")

	if !h.ctrl.Capabilities().Legacy() {
		t.Fatalf("Capabilities() = %+v, want legacy", h.ctrl.Capabilities())
	}
	if len(h.proj.Warnings) != 1 || !strings.Contains(h.proj.Warnings[0], "predates") {
		t.Errorf("warnings = %v, want the legacy host warning", h.proj.Warnings)
	}

	sess, report := h.run(t, controller.Request{Package: "calc", Async: true, Deferred: true})
	if sess.Async || sess.Deferred {
		t.Errorf("Async=%v Deferred=%v, want both off", sess.Async, sess.Deferred)
	}
	if h.main.Ran() != 0 || h.async.Ran() != 0 {
		t.Errorf("loops ran main=%d async=%d tasks, want none", h.main.Ran(), h.async.Ran())
	}
	if !strings.Contains(report, "OK (skipped=1)") {
		t.Errorf("report = %q", report)
	}
}
