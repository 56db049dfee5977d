package bom

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	noTagFoundTemplateConstant     = "repository %s: %w"
	aggregateErrorTemplateConstant = "manifest build failed for %d of %d repositories: %s"
	aggregateEntryTemplateConstant = "%s: %v"
	aggregateJoinSeparatorConstant = "; "
	untaggedHeadWarningTemplate    = "repository %s head %s is ahead of tag %s; proposing version %s"
)

// ErrNoTagFound reports a repository with no reachable semver tag.
var ErrNoTagFound = errors.New("no reachable semver tag")

// ErrNoDependenciesConfigured reports a build with neither configured nor base-manifest dependencies.
var ErrNoDependenciesConfigured = errors.New("no manifest dependencies configured")

// UntaggedHeadWarning annotates a repository whose branch head carries commits
// past its latest tag, so its version was computed rather than read. It never
// fails a build.
type UntaggedHeadWarning struct {
	RepositoryName  string
	HeadCommit      string
	LatestTag       string
	ProposedVersion string
}

// Message renders the warning for logs.
func (warning UntaggedHeadWarning) Message() string {
	return fmt.Sprintf(untaggedHeadWarningTemplate, warning.RepositoryName, warning.HeadCommit, warning.LatestTag, warning.ProposedVersion)
}

// RepositoryFailure records why one repository could not be resolved.
type RepositoryFailure struct {
	RepositoryName string
	Cause          error
}

// AggregateError collects every per-repository failure of one build. The
// build fails only after all workers finish, so the set is complete under the
// best-effort cancellation mode.
type AggregateError struct {
	Failures        []RepositoryFailure
	RepositoryCount int
}

// Error lists the failing repositories sorted by name.
func (aggregate AggregateError) Error() string {
	sortedFailures := append([]RepositoryFailure{}, aggregate.Failures...)
	sort.Slice(sortedFailures, func(leftIndex int, rightIndex int) bool {
		return sortedFailures[leftIndex].RepositoryName < sortedFailures[rightIndex].RepositoryName
	})
	failureDescriptions := make([]string, 0, len(sortedFailures))
	for _, repositoryFailure := range sortedFailures {
		failureDescriptions = append(failureDescriptions, fmt.Sprintf(aggregateEntryTemplateConstant, repositoryFailure.RepositoryName, repositoryFailure.Cause))
	}
	return fmt.Sprintf(aggregateErrorTemplateConstant, len(aggregate.Failures), aggregate.RepositoryCount, strings.Join(failureDescriptions, aggregateJoinSeparatorConstant))
}

// Unwrap exposes the individual causes for errors.Is and errors.As checks.
func (aggregate AggregateError) Unwrap() []error {
	causes := make([]error, 0, len(aggregate.Failures))
	for _, repositoryFailure := range aggregate.Failures {
		causes = append(causes, repositoryFailure.Cause)
	}
	return causes
}
