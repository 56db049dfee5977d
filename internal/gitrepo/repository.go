package gitrepo

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/spinnaker/buildtool/internal/execshell"
)

const (
	gitRevParseSubcommandConstant   = "rev-parse"
	gitForEachRefSubcommandConstant = "for-each-ref"
	gitLogSubcommandConstant        = "log"
	gitMergeBaseSubcommandConstant  = "merge-base"
	gitHeadReferenceConstant        = "HEAD"
	gitTagsReferencePrefixConstant  = "refs/tags"
	gitMergedFlagConstant           = "--merged=HEAD"
	gitIsAncestorFlagConstant       = "--is-ancestor"
	gitMaxCountFlagConstant         = "--max-count"
	tagListFormatConstant           = "--format=%(refname:short) %(objectname) %(*objectname)"
	commitLogFormatConstant         = "--format=%H%x1f%s"
	commitRangeSeparatorConstant    = ".."
	fieldSeparatorConstant          = "\x1f"
	ancestorCheckFailedExitCode     = 1
)

// TagReference names a tag together with the commit it resolves to.
type TagReference struct {
	Name   string
	Commit string
}

// CommitSummary carries the one-line description of a single commit.
type CommitSummary struct {
	CommitHash string
	Subject    string
}

// Repository is a read-only view of one component repository workspace.
type Repository struct {
	executor    GitExecutor
	path        string
	environment map[string]string
}

// Path returns the workspace directory backing this view.
func (repository *Repository) Path() string {
	return repository.path
}

// HeadCommit resolves the commit hash the branch head points at.
func (repository *Repository) HeadCommit(executionContext context.Context) (string, error) {
	executionResult, executionError := repository.run(executionContext, gitRevParseSubcommandConstant, gitHeadReferenceConstant)
	if executionError != nil {
		return "", executionError
	}
	return strings.TrimSpace(executionResult.StandardOutput), nil
}

// ReachableTags lists every tag reachable from the branch head. Annotated
// tags are dereferenced to the commit they annotate.
func (repository *Repository) ReachableTags(executionContext context.Context) ([]TagReference, error) {
	executionResult, executionError := repository.run(
		executionContext,
		gitForEachRefSubcommandConstant,
		gitMergedFlagConstant,
		tagListFormatConstant,
		gitTagsReferencePrefixConstant,
	)
	if executionError != nil {
		return nil, executionError
	}

	tagReferences := []TagReference{}
	for _, referenceLine := range splitOutputLines(executionResult.StandardOutput) {
		referenceFields := strings.Fields(referenceLine)
		if len(referenceFields) < 2 {
			continue
		}
		resolvedCommit := referenceFields[1]
		if len(referenceFields) > 2 && len(referenceFields[2]) > 0 {
			resolvedCommit = referenceFields[2]
		}
		tagReferences = append(tagReferences, TagReference{Name: referenceFields[0], Commit: resolvedCommit})
	}
	return tagReferences, nil
}

// CommitRange lists the commits on oldCommit..newCommit, newest first.
func (repository *Repository) CommitRange(executionContext context.Context, oldCommit string, newCommit string) ([]CommitSummary, error) {
	rangeExpression := oldCommit + commitRangeSeparatorConstant + newCommit
	executionResult, executionError := repository.run(executionContext, gitLogSubcommandConstant, commitLogFormatConstant, rangeExpression)
	if executionError != nil {
		return nil, executionError
	}
	return parseCommitSummaries(executionResult.StandardOutput), nil
}

// History lists up to limit commits reachable from endCommit, newest first.
func (repository *Repository) History(executionContext context.Context, endCommit string, limit int) ([]CommitSummary, error) {
	logArguments := []string{gitLogSubcommandConstant, commitLogFormatConstant}
	if limit > 0 {
		logArguments = append(logArguments, gitMaxCountFlagConstant, strconv.Itoa(limit))
	}
	logArguments = append(logArguments, endCommit)

	executionResult, executionError := repository.run(executionContext, logArguments...)
	if executionError != nil {
		return nil, executionError
	}
	return parseCommitSummaries(executionResult.StandardOutput), nil
}

// IsAncestor reports whether ancestorCommit is an ancestor of descendantCommit.
func (repository *Repository) IsAncestor(executionContext context.Context, ancestorCommit string, descendantCommit string) (bool, error) {
	_, executionError := repository.run(executionContext, gitMergeBaseSubcommandConstant, gitIsAncestorFlagConstant, ancestorCommit, descendantCommit)
	if executionError == nil {
		return true, nil
	}
	commandFailure := execshell.CommandFailedError{}
	if errors.As(executionError, &commandFailure) && commandFailure.Result.ExitCode == ancestorCheckFailedExitCode {
		return false, nil
	}
	return false, executionError
}

func (repository *Repository) run(executionContext context.Context, arguments ...string) (execshell.ExecutionResult, error) {
	return repository.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            arguments,
		WorkingDirectory:     repository.path,
		EnvironmentVariables: repository.environment,
	})
}

func parseCommitSummaries(logOutput string) []CommitSummary {
	commitSummaries := []CommitSummary{}
	for _, logLine := range splitOutputLines(logOutput) {
		lineFields := strings.SplitN(logLine, fieldSeparatorConstant, 2)
		commitSummary := CommitSummary{CommitHash: lineFields[0]}
		if len(lineFields) > 1 {
			commitSummary.Subject = strings.TrimSpace(lineFields[1])
		}
		commitSummaries = append(commitSummaries, commitSummary)
	}
	return commitSummaries
}

func splitOutputLines(commandOutput string) []string {
	outputLines := []string{}
	for _, outputLine := range strings.Split(commandOutput, "\n") {
		trimmedLine := strings.TrimSpace(outputLine)
		if len(trimmedLine) > 0 {
			outputLines = append(outputLines, trimmedLine)
		}
	}
	return outputLines
}
