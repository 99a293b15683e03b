// Package controller is the single entry point for test runs: it resolves
// what to run, opens the result sink, picks a runner and makes sure the sink
// ends up closed.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/AndreyAkinshin/unittesting/internal/config"
	harnesserrors "github.com/AndreyAkinshin/unittesting/internal/errors"
	"github.com/AndreyAkinshin/unittesting/internal/host"
	"github.com/AndreyAkinshin/unittesting/internal/loader"
	"github.com/AndreyAkinshin/unittesting/internal/module"
	"github.com/AndreyAkinshin/unittesting/internal/project"
	"github.com/AndreyAkinshin/unittesting/internal/runner"
	"github.com/AndreyAkinshin/unittesting/internal/steps"
	"github.com/AndreyAkinshin/unittesting/internal/stream"
	"github.com/AndreyAkinshin/unittesting/internal/suite"
)

const (
	// RecentPackageKey is the settings key remembering the last package run.
	RecentPackageKey = "recent_package"
	// DefaultPackagePrompt pre-fills the package prompt before any run.
	DefaultPackagePrompt = "Package Name"
	// OutputPanel selects the output panel as the result sink.
	OutputPanel = "panel"
)

// ErrNoPackage is returned when the package prompt yields nothing.
var ErrNoPackage = errors.New("no package given")

// Request describes one run.
type Request struct {
	// Package is "<package>" or "<package>/<glob>". Empty prompts for one.
	Package string
	// Output is OutputPanel, a file path, or empty for the default file.
	Output   string
	Async    bool
	Deferred bool
}

// Controller runs test packages of a project.
type Controller struct {
	proj     *project.Project
	main     host.Scheduler
	async    host.Scheduler
	caps     config.Capabilities
	settings host.Settings
	prompt   host.Prompt
	panels   host.PanelFactory
	registry *steps.Registry
	logger   *slog.Logger

	// reloader is shared by every run; discovery is serialized on mu.
	mu       sync.Mutex
	reloader *module.Reloader
}

// Option configures a Controller.
type Option func(*Controller)

// WithSettings sets the settings store.
func WithSettings(settings host.Settings) Option {
	return func(c *Controller) {
		c.settings = settings
	}
}

// WithPrompt sets the prompt used when no package is given.
func WithPrompt(prompt host.Prompt) Option {
	return func(c *Controller) {
		c.prompt = prompt
	}
}

// WithPanels sets the factory opening output panels.
func WithPanels(panels host.PanelFactory) Option {
	return func(c *Controller) {
		c.panels = panels
	}
}

// WithRegistry sets the step functions available to test modules.
func WithRegistry(registry *steps.Registry) Option {
	return func(c *Controller) {
		c.registry = registry
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a controller for proj. Deferred runs are scheduled on main,
// async runs are posted to async. Host capabilities are resolved here, once.
func New(proj *project.Project, main, async host.Scheduler, opts ...Option) *Controller {
	c := &Controller{
		proj:   proj,
		main:   main,
		async:  async,
		caps:   config.ResolveCapabilities(proj.Config.HostVersion),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.settings == nil {
		c.settings = host.LoadSettings(proj.SettingsPath())
	}
	if c.prompt == nil {
		c.prompt = host.NewTerminalPrompt(os.Stdin, os.Stderr)
	}
	if c.panels == nil {
		c.panels = &host.TerminalPanelFactory{Out: os.Stdout}
	}
	if c.registry == nil {
		c.registry = steps.Builtins()
	}
	c.logger = c.logger.WithGroup("controller.Controller")
	c.reloader = module.NewReloader(
		module.WithMaxIncludeDepth(proj.Config.MaxIncludeDepth),
		module.WithLogger(c.logger),
	)
	return c
}

// Capabilities returns the host capabilities resolved at construction.
func (c *Controller) Capabilities() config.Capabilities {
	return c.caps
}

// Run starts a run. Synchronous runs have finished when Run returns;
// deferred and async runs finish later, signalled by the session.
//
// Errors are returned only when no session could be started: the prompt was
// dismissed or the sink could not be opened. Failures after the sink is open
// are written to it and recorded on the session.
func (c *Controller) Run(ctx context.Context, req Request) (*Session, error) {
	if req.Package == "" {
		return c.promptAndRun(ctx, req)
	}

	c.settings.Set(RecentPackageKey, req.Package)
	if err := c.settings.Save(); err != nil {
		c.logger.Warn("failed to save settings", "error", err)
	}

	pkg, pattern := ParseSpec(req.Package, c.proj.Config.DefaultPattern)

	async, deferred := req.Async, req.Deferred
	if !c.caps.Async {
		async = false
	}
	if !c.caps.Deferred {
		deferred = false
	}
	if c.caps.Legacy() && (req.Async || req.Deferred) {
		c.logger.Info("host does not support background execution, running synchronously",
			"host_version", c.caps.HostVersion)
	}

	sess := newSession(pkg, pattern, req.Output, async, deferred)
	log := c.logger.With("session", sess.ID.String(), "package", pkg)

	sink, err := c.openStream(pkg, req.Output)
	if err != nil {
		return nil, harnesserrors.Setup(pkg, err)
	}

	if async {
		log.Debug("posting run to async loop", "delay", c.proj.Config.AsyncDelay())
		c.async.Post(func() {
			c.execute(sess, sink, false, log)
		}, c.proj.Config.AsyncDelay())
		return sess, nil
	}

	c.execute(sess, sink, deferred, log)
	return sess, nil
}

func (c *Controller) promptAndRun(ctx context.Context, req Request) (*Session, error) {
	answer, err := c.prompt.Ask(ctx, host.PromptRequest{
		Caption:   "Package:",
		Initial:   host.GetString(c.settings, RecentPackageKey, DefaultPackagePrompt),
		SelectAll: true,
	})
	if err != nil {
		return nil, fmt.Errorf("package prompt: %w", err)
	}
	if answer == "" {
		return nil, ErrNoPackage
	}

	req.Package = answer
	return c.Run(ctx, req)
}

// openStream opens a fresh sink for pkg.
func (c *Controller) openStream(pkg, output string) (stream.Stream, error) {
	switch output {
	case OutputPanel:
		pc := c.proj.Config.Panel
		baseDir := pc.BaseDir
		if baseDir == "" {
			baseDir = c.proj.PackageDir(pkg)
		}
		panel, err := c.panels.OpenPanel(host.PanelConfig{
			Name:          pc.Name,
			FileRegex:     pc.FileRegex,
			LineRegex:     pc.LineRegex,
			BaseDir:       baseDir,
			WordWrap:      pc.WordWrap,
			LineNumbers:   pc.LineNumbers,
			Gutter:        pc.Gutter,
			ScrollPastEnd: pc.ScrollPastEnd,
			Syntax:        pc.Syntax,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open panel: %w", err)
		}
		panel.Show()
		return stream.NewPanel(panel), nil
	case "":
		return stream.CreateFile(c.proj.OutputPath(pkg))
	default:
		return stream.CreateFile(output)
	}
}

// execute discovers and runs the suite, reporting any setup failure to the
// sink.
func (c *Controller) execute(sess *Session, sink stream.Stream, deferred bool, log *slog.Logger) {
	handedOff := false
	defer func() {
		if v := recover(); v != nil {
			c.fail(sess, sink, suite.Recover(v), handedOff, log)
		}
	}()

	s, err := c.discover(sess, deferred)
	if err != nil {
		c.fail(sess, sink, harnesserrors.Setup(sess.Package, err), false, log)
		return
	}
	log.Info("running tests", "pattern", sess.Pattern, "cases", s.CountTestCases(), "deferred", deferred)

	if deferred {
		r, err := runner.NewDeferringRunner(sink, c.main, runner.WithLogger(log))
		if err != nil {
			c.fail(sess, sink, harnesserrors.Setup(sess.Package, err), false, log)
			return
		}
		r.OnComplete(func(res *runner.TextResult, err error) {
			if err != nil {
				log.Error("run aborted", "ran", res.TestsRun, "error", err)
				sess.finish(res, &harnesserrors.HarnessError{
					Kind:    harnesserrors.KindRuntime,
					Message: "test run aborted",
					Package: sess.Package,
					Cause:   err,
				})
				return
			}
			log.Info("run finished", "ran", res.TestsRun, "successful", res.WasSuccessful())
			sess.finish(res, nil)
		})
		if _, err := r.Run(s); err != nil {
			c.fail(sess, sink, harnesserrors.Setup(sess.Package, err), false, log)
			return
		}
		handedOff = true
		return
	}

	res := runner.NewTextRunner(sink, runner.WithLogger(log)).Run(s)
	if err := sink.Close(); err != nil {
		log.Warn("failed to close result stream", "error", err)
	}
	log.Info("run finished", "ran", res.TestsRun, "successful", res.WasSuccessful())
	sess.finish(res, nil)
}

func (c *Controller) discover(sess *Session, deferred bool) (*suite.Suite, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	l := loader.New(c.reloader,
		loader.WithDeferred(deferred),
		loader.WithRegistry(c.registry),
		loader.WithLogger(c.logger),
	)
	return l.Discover(c.proj.TestsDir(sess.Package), sess.Pattern)
}

// fail writes a single error line to the sink if it is still open. The sink
// is left open when a deferred run is in flight; the runner closes it.
func (c *Controller) fail(sess *Session, sink stream.Stream, err error, inFlight bool, log *slog.Logger) {
	log.Error("run failed", "error", err)
	if !sink.Closed() {
		if _, werr := fmt.Fprintf(sink, "ERROR: %v\n", err); werr != nil {
			log.Warn("failed to report error", "error", werr)
		}
	}
	if !inFlight {
		if cerr := sink.Close(); cerr != nil {
			log.Warn("failed to close result stream", "error", cerr)
		}
	}
	sess.finish(nil, err)
}
