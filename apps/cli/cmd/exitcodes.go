package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// Exit codes for hitcase CLI
const (
	// ExitSuccess indicates all requests passed
	ExitSuccess = 0

	// ExitTestFailure indicates the collection did not pass or could not be
	// run at all. It is the only failure code run returns besides usage.
	ExitTestFailure = 1

	// ExitParseError indicates validate found a broken workspace
	ExitParseError = 2

	// ExitConfigError indicates a configuration error outside run
	ExitConfigError = 3

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// exitError carries the process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

// exitCode maps an error returned by a command to a process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitTestFailure
}

// usageArgs turns positional argument errors into usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return withExitCode(ExitUsageError, err)
		}
		return nil
	}
}
