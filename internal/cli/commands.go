package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/AndreyAkinshin/unittesting/internal/controller"
	"github.com/AndreyAkinshin/unittesting/internal/errors"
	"github.com/AndreyAkinshin/unittesting/internal/host"
	"github.com/AndreyAkinshin/unittesting/internal/project"
)

// printer formats summary counts with digit grouping.
var printer = message.NewPrinter(language.English)

// loadProject loads the project and reports failures uniformly.
// Returns the project and exit code 0 on success, or nil and the exit code.
func loadProject(opts *GlobalOptions) (*project.Project, int) {
	dir := opts.Root
	if dir == "" {
		var err error
		if dir, err = os.Getwd(); err != nil {
			out.ErrorPrefix("%v", err)
			return nil, errors.ExitEnvironmentError
		}
	}

	proj, err := project.LoadProjectFromDir(dir)
	if err != nil {
		err = &errors.HarnessError{Kind: errors.KindConfig, Message: "invalid project", Path: dir, Cause: err}
		out.ErrorPrefix("%v", err)
		return nil, errors.GetExitCode(err)
	}
	for _, w := range proj.Warnings {
		out.Warning("%s", w)
	}
	return proj, 0
}

// RunOptions holds flags of the run command.
type RunOptions struct {
	Spec     string
	Output   string
	Async    bool
	Deferred bool
}

func parseRunArgs(args []string) (*RunOptions, error) {
	opts := &RunOptions{}

	i := 0
	for i < len(args) {
		arg := args[i]

		switch {
		case arg == "--async":
			opts.Async = true
			i++
		case arg == "--deferred":
			opts.Deferred = true
			i++
		case arg == "--output" || arg == "-o":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%s requires a value", arg)
			}
			opts.Output = args[i+1]
			i += 2
		case strings.HasPrefix(arg, "--output="):
			opts.Output = strings.TrimPrefix(arg, "--output=")
			i++
		case strings.HasPrefix(arg, "-"):
			return nil, fmt.Errorf("unknown flag %q", arg)
		default:
			if opts.Spec != "" {
				return nil, fmt.Errorf("unexpected argument %q (only one package spec is allowed)", arg)
			}
			opts.Spec = arg
			i++
		}
	}

	return opts, nil
}

// cmdRun runs the tests of one package and drives the host loops until the
// session finishes.
func cmdRun(args []string, opts *GlobalOptions) int {
	if wantsHelp(args) {
		printRunUsage()
		return 0
	}

	runOpts, err := parseRunArgs(args)
	if err != nil {
		out.ErrorPrefix("run: %v", err)
		return errors.ExitConfigError
	}

	proj, code := loadProject(opts)
	if proj == nil {
		return code
	}

	logger := newLogger(opts)
	mainLoop := host.NewLoop("main", host.WithLoopLogger(logger))
	asyncLoop := host.NewLoop("async", host.WithLoopLogger(logger))

	ctrl := controller.New(proj, mainLoop, asyncLoop,
		controller.WithLogger(logger),
		controller.WithPrompt(host.NewTerminalPrompt(stdin, out.Err())),
		controller.WithPanels(&host.TerminalPanelFactory{Out: out.Out()}),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sess, err := ctrl.Run(ctx, controller.Request{
		Package:  runOpts.Spec,
		Output:   runOpts.Output,
		Async:    runOpts.Async,
		Deferred: runOpts.Deferred,
	})
	if err != nil {
		out.ErrorPrefix("%v", err)
		return errors.GetExitCode(err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		_ = asyncLoop.Run(loopCtx)
	}()
	go func() {
		<-sess.Done()
		cancel()
	}()
	_ = mainLoop.Run(loopCtx)

	if ctx.Err() != nil {
		out.ErrorPrefix("interrupted; results for %s may be incomplete", sess.Package)
		return errors.ExitRuntimeError
	}

	return printRunSummary(proj, sess)
}

// printRunSummary prints the console summary of a finished session and
// returns the exit code.
func printRunSummary(proj *project.Project, sess *controller.Session) int {
	if err := sess.Err(); err != nil {
		out.ErrorPrefix("%v", err)
		return errors.GetExitCode(err)
	}

	res := sess.Result()
	if res == nil {
		return errors.ExitRuntimeError
	}

	out.SummaryHeader(fmt.Sprintf("%s Summary", sess.Package))
	out.SummaryItem("Pattern", sess.Pattern)
	out.SummaryItem("Ran", printer.Sprintf("%d", res.TestsRun))
	out.SummaryPassed("Passed", printer.Sprintf("%d", res.Successes))
	if n := len(res.Failures); n > 0 {
		out.SummaryFailed("Failures", printer.Sprintf("%d", n))
	}
	if n := len(res.Errors); n > 0 {
		out.SummaryFailed("Errors", printer.Sprintf("%d", n))
	}
	if n := len(res.Skipped); n > 0 {
		out.SummaryItem("Skipped", printer.Sprintf("%d", n))
	}
	if sess.Output != controller.OutputPanel {
		path := sess.Output
		if path == "" {
			path = proj.OutputPath(sess.Package)
		}
		out.SummaryItem("Results", path)
	}

	if !res.WasSuccessful() {
		out.FinalFailure("%s: tests failed", sess.Package)
		return errors.ExitRuntimeError
	}
	out.FinalSuccess("%s: all tests passed", sess.Package)
	return errors.ExitSuccess
}

func printRunUsage() {
	out.HelpTitle("unittesting run - run the tests of a package")
	out.HelpSection("Usage:")
	out.HelpUsage("unittesting run [<package>[/<pattern>]] [flags]")
	out.HelpSection("Flags:")
	out.HelpFlag("-o, --output=<panel|path>", "Results sink (default: user data file)", helpFlagWidth)
	out.HelpFlag("--async", "Start the run on the background loop", helpFlagWidth)
	out.HelpFlag("--deferred", "Run one test per loop turn", helpFlagWidth)
	out.Println("")
}

// cmdList prints the packages under the packages path that have tests.
func cmdList(args []string, opts *GlobalOptions) int {
	if len(args) > 0 {
		out.ErrorPrefix("list: unexpected argument %q", args[0])
		return errors.ExitConfigError
	}

	proj, code := loadProject(opts)
	if proj == nil {
		return code
	}

	pkgs, err := proj.DiscoverPackages()
	if err != nil {
		out.ErrorPrefix("list: %v", err)
		return errors.ExitRuntimeError
	}
	if len(pkgs) == 0 {
		out.Info("no packages with a %s directory under %s", proj.Config.TestsDir, proj.Config.PackagesPath)
		return 0
	}
	for _, pkg := range pkgs {
		out.Println("%s", pkg)
	}
	return 0
}

// cmdRecent prints the package most recently run.
func cmdRecent(args []string, opts *GlobalOptions) int {
	if len(args) > 0 {
		out.ErrorPrefix("recent: unexpected argument %q", args[0])
		return errors.ExitConfigError
	}

	proj, code := loadProject(opts)
	if proj == nil {
		return code
	}

	recent := host.GetString(host.LoadSettings(proj.SettingsPath()), controller.RecentPackageKey, "")
	if recent == "" {
		out.Info("no package has been run yet")
		return 0
	}
	out.Println("%s", recent)
	return 0
}

// cmdConfig handles config subcommands.
func cmdConfig(args []string, opts *GlobalOptions) int {
	if len(args) == 0 || args[0] != "validate" {
		out.ErrorPrefix("config: expected subcommand 'validate'")
		return errors.ExitConfigError
	}

	proj, code := loadProject(opts)
	if proj == nil {
		return code
	}
	if !proj.HasConfig {
		out.Info("no %s found, using defaults rooted at %s", proj.ConfigPath(), proj.Root)
		return 0
	}
	out.Println("%s is valid", proj.ConfigPath())
	return 0
}
