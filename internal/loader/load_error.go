package loader

import (
	"errors"

	"github.com/AndreyAkinshin/unittesting/internal/module"
	"github.com/AndreyAkinshin/unittesting/internal/suite"
)

// LoadError is a pseudo-case standing in for a module that could not be
// loaded. Running it reports an error carrying the load failure.
type LoadError struct {
	path string
	rel  string
	err  error
}

// NewLoadError creates a LoadError for the module at path.
func NewLoadError(path, rel string, err error) *LoadError {
	return &LoadError{path: path, rel: rel, err: err}
}

func (e *LoadError) ID() string          { return e.rel + ".load_error" }
func (e *LoadError) Name() string        { return "load_error" }
func (e *LoadError) CountTestCases() int { return 1 }

// Err returns the underlying load failure.
func (e *LoadError) Err() error { return e.err }

// Location points at the line the module failed to compile on, which may be
// in an included file. It falls back to the first line of the module.
func (e *LoadError) Location() suite.Location {
	var pe *module.ParseError
	if errors.As(e.err, &pe) && pe.Line > 0 && pe.Path != "" {
		return suite.Location{File: pe.Path, Line: pe.Line}
	}
	return suite.Location{File: e.path, Line: 1}
}

// Run reports the load failure as an error outcome.
func (e *LoadError) Run(r suite.Result) {
	r.StartTest(e)
	defer r.StopTest(e)
	r.AddError(e, suite.Failure{
		Location: e.Location(),
		Message:  e.err.Error(),
	})
}
