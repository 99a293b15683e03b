// Package errors provides structured error types and exit codes for the
// test harness.
package errors

import (
	"errors"
	"fmt"

	"github.com/AndreyAkinshin/unittesting/pkg/unittesting"
)

// Exit codes returned by the command-line entry point.
const (
	ExitSuccess          = unittesting.ExitSuccess     // Success
	ExitRuntimeError     = unittesting.ExitFailure     // Runtime error (tests failed, setup failed, etc.)
	ExitConfigError      = unittesting.ExitConfigError // Configuration error (invalid config, bad arguments, etc.)
	ExitEnvironmentError = unittesting.ExitEnvError    // Environment error (unreadable working directory, etc.)
)

// ErrorKind represents the type of error.
type ErrorKind int

const (
	KindRuntime ErrorKind = iota
	KindConfig
	KindNotFound
	KindValidation
	KindLoad
	KindSetup
	KindEnvironment
)

// HarnessError is the base error type for the harness.
type HarnessError struct {
	Kind    ErrorKind
	Message string
	Package string // Package under test if applicable
	Path    string // File or directory if applicable
	Cause   error  // Underlying error
}

func (e *HarnessError) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Path)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Package != "" {
		return fmt.Sprintf("[%s] %s", e.Package, msg)
	}
	return msg
}

func (e *HarnessError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the appropriate exit code for this error.
func (e *HarnessError) ExitCode() int {
	switch e.Kind {
	case KindConfig, KindValidation:
		return ExitConfigError
	case KindEnvironment:
		return ExitEnvironmentError
	default:
		return ExitRuntimeError
	}
}

// New creates a new runtime error.
func New(message string) *HarnessError {
	return &HarnessError{
		Kind:    KindRuntime,
		Message: message,
	}
}

// Newf creates a new runtime error with formatting.
func Newf(format string, args ...interface{}) *HarnessError {
	return New(fmt.Sprintf(format, args...))
}

// Config creates a new configuration error.
func Config(message string) *HarnessError {
	return &HarnessError{
		Kind:    KindConfig,
		Message: message,
	}
}

// Configf creates a new configuration error with formatting.
func Configf(format string, args ...interface{}) *HarnessError {
	return Config(fmt.Sprintf(format, args...))
}

// Environment creates a new environment error.
func Environment(message string) *HarnessError {
	return &HarnessError{
		Kind:    KindEnvironment,
		Message: message,
	}
}

// Environmentf creates a new environment error with formatting.
func Environmentf(format string, args ...interface{}) *HarnessError {
	return Environment(fmt.Sprintf(format, args...))
}

// Load creates an error for a test module that could not be loaded.
func Load(path string, cause error) *HarnessError {
	return &HarnessError{
		Kind:    KindLoad,
		Message: "failed to load module",
		Path:    path,
		Cause:   cause,
	}
}

// Setup creates an error raised while preparing a run for pkg.
func Setup(pkg string, cause error) *HarnessError {
	return &HarnessError{
		Kind:    KindSetup,
		Message: "setup failed",
		Package: pkg,
		Cause:   cause,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) *HarnessError {
	return &HarnessError{
		Kind:    KindRuntime,
		Message: message,
		Cause:   err,
	}
}

// NotFound creates a not found error.
func NotFound(what, name string) *HarnessError {
	return &HarnessError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found: %s", what, name),
	}
}

// Is reports whether err is a HarnessError of the given kind.
func Is(err error, kind ErrorKind) bool {
	var he *HarnessError
	return errors.As(err, &he) && he.Kind == kind
}

// GetExitCode returns the exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var he *HarnessError
	if errors.As(err, &he) {
		return he.ExitCode()
	}
	return ExitRuntimeError
}
