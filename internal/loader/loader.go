// Package loader discovers test modules under a directory and builds a suite
// from freshly reloaded copies of them.
package loader

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	harnesserrors "github.com/AndreyAkinshin/unittesting/internal/errors"
	"github.com/AndreyAkinshin/unittesting/internal/module"
	"github.com/AndreyAkinshin/unittesting/internal/steps"
	"github.com/AndreyAkinshin/unittesting/internal/suite"
)

// Loader discovers test modules. Every Discover call recompiles each matching
// file from disk, so edits made between runs are always picked up.
type Loader struct {
	reloader *module.Reloader
	registry *steps.Registry
	deferred bool
	logger   *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithDeferred marks discovered cases as cooperating with a deferring runner.
func WithDeferred(deferred bool) Option {
	return func(l *Loader) {
		l.deferred = deferred
	}
}

// WithRegistry sets the step functions available to `call` steps.
func WithRegistry(registry *steps.Registry) Option {
	return func(l *Loader) {
		if registry != nil {
			l.registry = registry
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a Loader backed by reloader. A nil reloader gets a fresh one.
func New(reloader *module.Reloader, opts ...Option) *Loader {
	if reloader == nil {
		reloader = module.NewReloader()
	}
	l := &Loader{
		reloader: reloader,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.registry == nil {
		l.registry = steps.Builtins()
	}
	l.logger = l.logger.WithGroup("loader.Loader")
	return l
}

// Deferred reports whether discovered cases are built for deferred execution.
func (l *Loader) Deferred() bool {
	return l.deferred
}

// Discover walks startDir recursively and returns a suite with one child
// suite per module whose file name matches pattern, in sorted path order.
// A module that fails to load is represented by a LoadError case so the rest
// of the directory is still discovered.
func (l *Loader) Discover(startDir, pattern string) (*suite.Suite, error) {
	info, err := os.Stat(startDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("test directory not found: %s", startDir)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", startDir)
	}

	matches, err := findMatches(startDir, pattern)
	if err != nil {
		return nil, err
	}

	root := suite.New(startDir)
	for _, path := range matches {
		rel, err := filepath.Rel(startDir, path)
		if err != nil {
			rel = path
		}

		mod, err := l.reloader.Reload(path)
		if err != nil {
			l.logger.Warn("module failed to load", "path", path, "error", err)
			root.Add(suite.New(rel, NewLoadError(path, rel, harnesserrors.Load(rel, err))))
			continue
		}
		root.Add(mod.Suite(l.registry, l.deferred))
	}

	l.logger.Debug("discovery complete",
		"dir", startDir,
		"pattern", pattern,
		"modules", len(matches),
		"cases", root.CountTestCases(),
	)
	return root, nil
}

// findMatches finds files under dir whose base name matches the glob pattern.
func findMatches(dir, pattern string) ([]string, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	var matches []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		matched, err := filepath.Match(pattern, d.Name())
		if err != nil {
			return err
		}
		if matched {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(matches)
	return matches, nil
}
