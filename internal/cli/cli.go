// Package cli provides the command-line interface for the unittesting harness.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/AndreyAkinshin/unittesting/internal/errors"
	"github.com/AndreyAkinshin/unittesting/internal/output"
)

// Version is set at build time.
var Version = "dev"

// out is the shared output writer for CLI commands.
var out = output.New()

// stdin feeds the package prompt.
var stdin io.Reader = os.Stdin

// Help text alignment widths.
const (
	helpCommandWidth = 18
	helpFlagWidth    = 22
)

// wantsHelp returns true if args contain -h or --help.
func wantsHelp(args []string) bool {
	for _, arg := range args {
		if arg == "-h" || arg == "--help" {
			return true
		}
	}
	return false
}

// Run executes the CLI with the given arguments and returns an exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 0
	}

	switch args[0] {
	case "-h", "--help", "help":
		printUsage()
		return 0
	case "--version", "version":
		out.Println("unittesting %s", Version)
		return 0
	}

	opts, remaining, err := parseGlobalFlags(args)
	if err != nil {
		out.ErrorPrefix("%v", err)
		return errors.ExitConfigError
	}
	if len(remaining) == 0 {
		printUsage()
		return 0
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]

	switch cmd {
	case "run":
		return cmdRun(cmdArgs, opts)
	case "list":
		return cmdList(cmdArgs, opts)
	case "recent":
		return cmdRecent(cmdArgs, opts)
	case "config":
		return cmdConfig(cmdArgs, opts)
	default:
		out.ErrorPrefix("unknown command %q", cmd)
		out.Hint("run 'unittesting help' for usage")
		return errors.ExitConfigError
	}
}

// GlobalOptions holds parsed global flags.
type GlobalOptions struct {
	Root    string
	Quiet   bool
	Verbose bool
}

// parseGlobalFlags pulls global flags out of args wherever they appear.
func parseGlobalFlags(args []string) (*GlobalOptions, []string, error) {
	opts := &GlobalOptions{}
	var remaining []string

	i := 0
	for i < len(args) {
		arg := args[i]

		switch {
		case arg == "-q" || arg == "--quiet":
			opts.Quiet = true
			i++
		case arg == "-v" || arg == "--verbose":
			opts.Verbose = true
			i++
		case arg == "--root":
			if i+1 >= len(args) {
				return nil, nil, fmt.Errorf("--root requires a value")
			}
			opts.Root = args[i+1]
			i += 2
		case strings.HasPrefix(arg, "--root="):
			opts.Root = strings.TrimPrefix(arg, "--root=")
			i++
		default:
			remaining = append(remaining, arg)
			i++
		}
	}

	if opts.Quiet && opts.Verbose {
		return nil, nil, fmt.Errorf("--quiet and --verbose are mutually exclusive")
	}

	out.SetQuiet(opts.Quiet)
	return opts, remaining, nil
}

// newLogger builds the diagnostics logger. Diagnostics go to stderr so they
// never mix with a report printed to stdout.
func newLogger(opts *GlobalOptions) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case opts.Verbose:
		level = slog.LevelDebug
	case opts.Quiet:
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(out.Err(), &slog.HandlerOptions{Level: level}))
}

func printUsage() {
	w := out

	w.HelpTitle("unittesting - reload-aware test runner for editor packages")

	w.HelpSection("Usage:")
	w.HelpUsage("unittesting [flags] <command> [args]")

	w.HelpSection("Commands:")
	w.HelpCommand("run [<spec>]", "Run the tests of a package (prompts when <spec> is omitted)", helpCommandWidth)
	w.HelpCommand("list", "List packages that have a tests directory", helpCommandWidth)
	w.HelpCommand("recent", "Show the most recently run package", helpCommandWidth)
	w.HelpCommand("config validate", "Validate the project configuration", helpCommandWidth)
	w.HelpCommand("version", "Show version information", helpCommandWidth)

	w.HelpSection("Run Flags:")
	w.HelpFlag("--output=<panel|path>", "Write results to the panel or a file", helpFlagWidth)
	w.HelpFlag("--async", "Start the run on the background loop", helpFlagWidth)
	w.HelpFlag("--deferred", "Run one test per loop turn", helpFlagWidth)

	w.HelpSection("Global Flags:")
	w.HelpFlag("--root=<dir>", "Start project discovery in <dir>", helpFlagWidth)
	w.HelpFlag("-q, --quiet", "Minimal output (errors only)", helpFlagWidth)
	w.HelpFlag("-v, --verbose", "Debug logging on stderr", helpFlagWidth)
	w.HelpFlag("-h, --help", "Show this help", helpFlagWidth)
	w.HelpFlag("--version", "Show version", helpFlagWidth)

	w.HelpSection("Examples:")
	w.HelpExample("unittesting run mypkg", "Run every test*.yaml module of mypkg")
	w.HelpExample("unittesting run 'mypkg/special_*.yaml' --output=panel", "Run matching modules and show results")
	w.HelpExample("unittesting run mypkg --deferred", "Keep the loop responsive while tests run")
	w.Println("")
}
