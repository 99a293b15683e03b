// Package unittesting provides public constants for tools that drive the
// unittesting CLI.
package unittesting

// Exit codes returned by the unittesting CLI.
const (
	// ExitSuccess indicates every test passed.
	ExitSuccess = 0

	// ExitFailure indicates failing tests or a run that could not be set up.
	ExitFailure = 1

	// ExitConfigError indicates an invalid configuration or bad arguments.
	ExitConfigError = 2

	// ExitEnvError indicates an environment problem, such as an unreadable
	// working directory.
	ExitEnvError = 3
)
