package module

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/AndreyAkinshin/unittesting/internal/stackmeter"
)

// DefaultMaxIncludeDepth bounds how deeply includes may nest.
const DefaultMaxIncludeDepth = 16

// Reloader compiles modules from disk, evicting any cached copy first so the
// result always reflects the current file contents. Includes are reloaded
// recursively; a stackmeter.Meter tracks the nesting so that a top-level
// reload can be told apart from an include being reloaded on its behalf.
//
// A Reloader is not safe for concurrent use.
type Reloader struct {
	meter    *stackmeter.Meter
	cache    map[string]*Module
	loading  map[string]bool
	maxDepth int
	compiles int
	logger   *slog.Logger
}

// ReloaderOption configures a Reloader.
type ReloaderOption func(*Reloader)

// WithMaxIncludeDepth sets the include nesting limit.
func WithMaxIncludeDepth(depth int) ReloaderOption {
	return func(r *Reloader) {
		if depth > 0 {
			r.maxDepth = depth
		}
	}
}

// WithLogger sets the logger used for reload diagnostics.
func WithLogger(logger *slog.Logger) ReloaderOption {
	return func(r *Reloader) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewReloader creates a Reloader with an empty cache.
func NewReloader(opts ...ReloaderOption) *Reloader {
	r := &Reloader{
		meter:    stackmeter.New(0),
		cache:    make(map[string]*Module),
		loading:  make(map[string]bool),
		maxDepth: DefaultMaxIncludeDepth,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithGroup("module.Reloader")
	return r
}

// Reload evicts path from the cache, compiles it and its includes from disk
// and stores the fresh result.
func (r *Reloader) Reload(path string) (*Module, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return r.reload(abs)
}

func (r *Reloader) reload(path string) (*Module, error) {
	depth, exit := r.meter.Enter()
	defer exit()

	if depth == 0 {
		clear(r.loading)
	}
	if depth > r.maxDepth {
		return nil, fmt.Errorf("include depth %d exceeds limit %d at %s", depth, r.maxDepth, path)
	}
	if r.loading[path] {
		return nil, fmt.Errorf("include cycle detected at %s", path)
	}
	r.loading[path] = true
	defer delete(r.loading, path)

	r.Evict(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	mod, err := Parse(path, data)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	for _, inc := range mod.Include {
		incPath := inc
		if !filepath.IsAbs(incPath) {
			incPath = filepath.Join(dir, inc)
		}
		child, err := r.reload(incPath)
		if err != nil {
			return nil, fmt.Errorf("include %q: %w", inc, err)
		}
		mod.Includes = append(mod.Includes, child)
	}

	r.cache[path] = mod
	r.compiles++
	r.logger.Debug("module compiled", "path", path, "depth", depth, "tests", len(mod.Tests))
	return mod, nil
}

// Evict drops the cached module for path, if any.
func (r *Reloader) Evict(path string) {
	delete(r.cache, path)
}

// Cached returns the most recently compiled module for path.
func (r *Reloader) Cached(path string) (*Module, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, false
	}
	mod, ok := r.cache[abs]
	return mod, ok
}

// Len returns the number of cached modules.
func (r *Reloader) Len() int {
	return len(r.cache)
}

// Compiles returns how many module files have been compiled so far.
func (r *Reloader) Compiles() int {
	return r.compiles
}

// Depth returns the current reload nesting depth.
func (r *Reloader) Depth() int {
	return r.meter.Depth()
}
