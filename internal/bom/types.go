package bom

import (
	"context"
	"time"

	"github.com/spinnaker/buildtool/internal/gitrepo"
	"github.com/spinnaker/buildtool/internal/manifest"
)

// Clock abstracts time acquisition for deterministic testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system time source.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// RepositoryView is the read-only slice of a repository consumed by resolution.
type RepositoryView interface {
	HeadCommit(executionContext context.Context) (string, error)
	ReachableTags(executionContext context.Context) ([]gitrepo.TagReference, error)
}

// RepositorySource obtains a RepositoryView of one repository at a branch.
type RepositorySource interface {
	Checkout(executionContext context.Context, remoteURL string, branchName string, workspacePath string) (RepositoryView, error)
}

// RepositoryConfig names one component repository in the release roster.
type RepositoryConfig struct {
	Name      string `mapstructure:"name" yaml:"name"`
	RemoteURL string `mapstructure:"remote_url" yaml:"remote_url,omitempty"`
}

// BuildRequest carries every parameter of one manifest build.
type BuildRequest struct {
	Repositories        []RepositoryConfig
	Branch              string
	BuildNumber         string
	OnlyRepositories    []string
	ExcludeRepositories []string
	BaseManifest        *manifest.Manifest
	ArtifactSources     manifest.ArtifactSources
	Dependencies        map[string]manifest.DependencyEntry
	ScratchRoot         string
	Concurrency         int
	FailFast            bool
}

// BuildResult pairs the assembled manifest with non-fatal resolution warnings.
type BuildResult struct {
	Manifest *manifest.Manifest
	Warnings []UntaggedHeadWarning
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
