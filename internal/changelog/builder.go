package changelog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/spinnaker/buildtool/internal/gitrepo"
	"github.com/spinnaker/buildtool/internal/manifest"
)

const (
	defaultHistoryLimitConstant         = 100
	defaultScratchDirectoryNameConstant = "buildtool-changelog"
	historyDivergenceTemplateConstant   = "repository %s: commit %s is not an ancestor of %s"
	sectionCollectedLogMessage          = "changelog section collected"
	logFieldRepositoryConstant          = "repository"
	logFieldCommitCountConstant         = "commit_count"
)

// ErrSourceNotConfigured reports a missing repository source during construction.
var ErrSourceNotConfigured = errors.New("changelog builder requires a repository source")

// HistoryDivergenceError reports a manifest pair whose old commit is not an
// ancestor of the new commit, so no truthful commit range exists.
type HistoryDivergenceError struct {
	RepositoryName string
	OldCommit      string
	NewCommit      string
}

// Error describes the divergent repository.
func (divergence HistoryDivergenceError) Error() string {
	return fmt.Sprintf(historyDivergenceTemplateConstant, divergence.RepositoryName, divergence.OldCommit, divergence.NewCommit)
}

// RepositoryView is the read-only slice of a repository consumed while diffing.
type RepositoryView interface {
	CommitRange(executionContext context.Context, oldCommit string, newCommit string) ([]gitrepo.CommitSummary, error)
	History(executionContext context.Context, endCommit string, limit int) ([]gitrepo.CommitSummary, error)
	IsAncestor(executionContext context.Context, ancestorCommit string, descendantCommit string) (bool, error)
}

// RepositorySource obtains a RepositoryView of one repository at a branch.
type RepositorySource interface {
	Checkout(executionContext context.Context, remoteURL string, branchName string, workspacePath string) (RepositoryView, error)
}

type gitRepositorySource struct {
	source *gitrepo.Source
}

// NewGitRepositorySource adapts a gitrepo.Source to the RepositorySource contract.
func NewGitRepositorySource(source *gitrepo.Source) RepositorySource {
	return gitRepositorySource{source: source}
}

func (adapter gitRepositorySource) Checkout(executionContext context.Context, remoteURL string, branchName string, workspacePath string) (RepositoryView, error) {
	return adapter.source.Checkout(executionContext, remoteURL, branchName, workspacePath)
}

// DiffRequest carries the parameters of one changelog generation.
type DiffRequest struct {
	NewManifest  *manifest.Manifest
	OldManifest  *manifest.Manifest
	Branch       string
	ScratchRoot  string
	HistoryLimit int
}

// Builder computes per-repository commit ranges between two manifests and
// assembles the changelog document. Repositories are visited sequentially in
// alphabetical order; the set is small and each visit is one fetch.
type Builder struct {
	source RepositorySource
	logger *zap.Logger
}

// NewBuilder constructs a Builder. A nil logger falls back to a no-op logger.
func NewBuilder(source RepositorySource, logger *zap.Logger) (*Builder, error) {
	if source == nil {
		return nil, ErrSourceNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{source: source, logger: logger}, nil
}

// Diff renders the changes between request.OldManifest and
// request.NewManifest. Repositories with an unchanged commit are omitted;
// repositories absent from the old manifest become "new component" sections.
// The first history divergence aborts the whole diff: a partially wrong
// changelog is strictly worse than none.
func (builder *Builder) Diff(executionContext context.Context, request DiffRequest) (*Document, error) {
	historyLimit := request.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimitConstant
	}
	scratchRoot := request.ScratchRoot
	if len(scratchRoot) == 0 {
		scratchRoot = filepath.Join(os.TempDir(), defaultScratchDirectoryNameConstant)
	}

	document := &Document{Sections: []ServiceChangelog{}}
	for _, serviceName := range request.NewManifest.ServiceNames() {
		newEntry := request.NewManifest.Services[serviceName]
		oldEntry, previouslyReleased := request.OldManifest.ServiceEntryFor(serviceName)
		if previouslyReleased && oldEntry.Commit == newEntry.Commit {
			continue
		}

		remoteURL := gitrepo.ComposeRemoteURL(request.NewManifest.ArtifactSources.GitPrefix, serviceName)
		workspacePath := filepath.Join(scratchRoot, serviceName)
		repositoryView, checkoutError := builder.source.Checkout(executionContext, remoteURL, request.Branch, workspacePath)
		if checkoutError != nil {
			return nil, checkoutError
		}

		section := ServiceChangelog{RepositoryName: serviceName, Version: newEntry.Version, NewComponent: !previouslyReleased}
		if previouslyReleased {
			isAncestor, ancestryError := repositoryView.IsAncestor(executionContext, oldEntry.Commit, newEntry.Commit)
			if ancestryError != nil {
				return nil, ancestryError
			}
			if !isAncestor {
				return nil, HistoryDivergenceError{RepositoryName: serviceName, OldCommit: oldEntry.Commit, NewCommit: newEntry.Commit}
			}
			commitSummaries, rangeError := repositoryView.CommitRange(executionContext, oldEntry.Commit, newEntry.Commit)
			if rangeError != nil {
				return nil, rangeError
			}
			section.Commits = commitSummaries
		} else {
			commitSummaries, historyError := repositoryView.History(executionContext, newEntry.Commit, historyLimit)
			if historyError != nil {
				return nil, historyError
			}
			section.Commits = commitSummaries
		}

		builder.logger.Info(
			sectionCollectedLogMessage,
			zap.String(logFieldRepositoryConstant, serviceName),
			zap.Int(logFieldCommitCountConstant, len(section.Commits)),
		)
		document.Sections = append(document.Sections, section)
	}

	return document, nil
}
