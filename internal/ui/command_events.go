package ui

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spinnaker/buildtool/internal/execshell"
)

const (
	commandStartedTemplateConstant          = "Running %s"
	commandCompletedTemplateConstant        = "Completed %s"
	commandFailedTemplateConstant           = "%s failed with exit code %d%s"
	commandExecutionFailureTemplateConstant = "%s failed: %v"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	standardErrorSuffixTemplateConstant     = ": %s"
	argumentJoinSeparatorConstant           = " "
)

// ConsoleCommandEventLogger renders command lifecycle events through a zap
// logger configured for human-readable output.
type ConsoleCommandEventLogger struct {
	logger *zap.Logger
}

// NewConsoleCommandEventLogger constructs a console event logger backed by the provided zap logger.
func NewConsoleCommandEventLogger(logger *zap.Logger) *ConsoleCommandEventLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleCommandEventLogger{logger: logger}
}

// CommandStarted implements execshell.CommandEventObserver.
func (eventLogger *ConsoleCommandEventLogger) CommandStarted(command execshell.ShellCommand) {
	eventLogger.logger.Info(fmt.Sprintf(commandStartedTemplateConstant, commandLabel(command)))
}

// CommandCompleted implements execshell.CommandEventObserver.
func (eventLogger *ConsoleCommandEventLogger) CommandCompleted(command execshell.ShellCommand, result execshell.ExecutionResult) {
	if result.ExitCode == 0 {
		eventLogger.logger.Info(fmt.Sprintf(commandCompletedTemplateConstant, commandLabel(command)))
		return
	}
	standardErrorSuffix := ""
	if trimmedStandardError := strings.TrimSpace(result.StandardError); len(trimmedStandardError) > 0 {
		standardErrorSuffix = fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
	}
	eventLogger.logger.Warn(fmt.Sprintf(commandFailedTemplateConstant, commandLabel(command), result.ExitCode, standardErrorSuffix))
}

// CommandExecutionFailed implements execshell.CommandEventObserver.
func (eventLogger *ConsoleCommandEventLogger) CommandExecutionFailed(command execshell.ShellCommand, failure error) {
	eventLogger.logger.Error(fmt.Sprintf(commandExecutionFailureTemplateConstant, commandLabel(command), failure))
}

func commandLabel(command execshell.ShellCommand) string {
	labelParts := []string{string(command.Name)}
	if len(command.Details.Arguments) > 0 {
		labelParts = append(labelParts, strings.Join(command.Details.Arguments, argumentJoinSeparatorConstant))
	}
	label := strings.Join(labelParts, argumentJoinSeparatorConstant)
	if trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory); len(trimmedWorkingDirectory) > 0 {
		label += fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
	}
	return label
}
