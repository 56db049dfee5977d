package execshell

import (
	"fmt"
	"strings"
)

const (
	commandFailedTemplateConstant          = "%s %s failed with exit code %d%s"
	commandExecutionFailedTemplateConstant = "%s %s failed: %s"
	standardErrorSuffixTemplateConstant    = ": %s"
	argumentJoinSeparatorConstant          = " "
)

// CommandFailedError reports a command that ran and returned a non-zero exit code.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

// Error renders the failed command with its exit code and trailing stderr.
func (failure CommandFailedError) Error() string {
	standardErrorSuffix := ""
	if trimmedStandardError := strings.TrimSpace(failure.Result.StandardError); len(trimmedStandardError) > 0 {
		standardErrorSuffix = fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
	}
	return fmt.Sprintf(
		commandFailedTemplateConstant,
		failure.Command.Name,
		strings.Join(failure.Command.Details.Arguments, argumentJoinSeparatorConstant),
		failure.Result.ExitCode,
		standardErrorSuffix,
	)
}

// CommandExecutionError reports a command that could not be run at all.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

// Error renders the command alongside the underlying execution failure.
func (failure CommandExecutionError) Error() string {
	return fmt.Sprintf(
		commandExecutionFailedTemplateConstant,
		failure.Command.Name,
		strings.Join(failure.Command.Details.Arguments, argumentJoinSeparatorConstant),
		failure.Cause,
	)
}

// Unwrap exposes the underlying cause for errors.Is and errors.As checks.
func (failure CommandExecutionError) Unwrap() error {
	return failure.Cause
}
