package bom

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/spinnaker/buildtool/internal/gitrepo"
	"github.com/spinnaker/buildtool/internal/manifest"
	"github.com/spinnaker/buildtool/internal/semver"
)

const (
	defaultConcurrencyConstant          = 4
	defaultScratchDirectoryNameConstant = "buildtool-scratch"
	repositoryResolvedLogMessage        = "repository resolved"
	repositoryFailedLogMessage          = "repository resolution failed"
	logFieldRepositoryConstant          = "repository"
	logFieldVersionConstant             = "version"
	logFieldCommitConstant              = "commit"
)

// ErrSourceNotConfigured reports a missing repository source during construction.
var ErrSourceNotConfigured = errors.New("manifest builder requires a repository source")

// Builder assembles release manifests by resolving every configured
// repository concurrently through a bounded worker pool.
type Builder struct {
	source   RepositorySource
	resolver TagResolver
	logger   *zap.Logger
	clock    Clock
}

// NewBuilder constructs a Builder. A nil logger falls back to a no-op logger
// and a nil clock to the system clock.
func NewBuilder(source RepositorySource, logger *zap.Logger, clock Clock) (*Builder, error) {
	if source == nil {
		return nil, ErrSourceNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Builder{source: source, logger: logger, clock: clock}, nil
}

type repositoryOutcome struct {
	repositoryName string
	serviceEntry   manifest.ServiceEntry
	warning        *UntaggedHeadWarning
	failure        error
	skipped        bool
}

// Build resolves every eligible repository at the requested branch and
// assembles the manifest. Workers run concurrently bounded by
// request.Concurrency; the timestamp is taken once after the last worker
// finishes. Per-repository failures are collected into an AggregateError
// after all workers complete unless request.FailFast cancels the remainder.
func (builder *Builder) Build(executionContext context.Context, request BuildRequest) (BuildResult, error) {
	eligibleRepositories := filterRepositories(request.Repositories, request.OnlyRepositories, request.ExcludeRepositories)
	branchPolicy := semver.ResolveBranchPolicy(request.Branch)

	scratchRoot := request.ScratchRoot
	if len(scratchRoot) == 0 {
		scratchRoot = filepath.Join(os.TempDir(), defaultScratchDirectoryNameConstant)
	}

	workContext, cancelWorkers := context.WithCancel(executionContext)
	defer cancelWorkers()

	concurrency := request.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrencyConstant
	}
	if concurrency > len(eligibleRepositories) && len(eligibleRepositories) > 0 {
		concurrency = len(eligibleRepositories)
	}

	repositoryJobs := make(chan RepositoryConfig)
	repositoryOutcomes := make(chan repositoryOutcome)

	var workerGroup sync.WaitGroup
	for workerIndex := 0; workerIndex < concurrency; workerIndex++ {
		workerGroup.Add(1)
		go func() {
			defer workerGroup.Done()
			for repositoryConfig := range repositoryJobs {
				if workContext.Err() != nil {
					repositoryOutcomes <- repositoryOutcome{repositoryName: repositoryConfig.Name, skipped: true}
					continue
				}
				outcome := builder.resolveRepository(workContext, repositoryConfig, request, branchPolicy, scratchRoot)
				if outcome.failure != nil && request.FailFast {
					cancelWorkers()
				}
				repositoryOutcomes <- outcome
			}
		}()
	}

	go func() {
		for _, repositoryConfig := range eligibleRepositories {
			repositoryJobs <- repositoryConfig
		}
		close(repositoryJobs)
	}()

	go func() {
		workerGroup.Wait()
		close(repositoryOutcomes)
	}()

	resolvedServices := map[string]manifest.ServiceEntry{}
	collectedWarnings := []UntaggedHeadWarning{}
	repositoryFailures := []RepositoryFailure{}
	for outcome := range repositoryOutcomes {
		switch {
		case outcome.skipped:
		case outcome.failure != nil:
			builder.logger.Error(repositoryFailedLogMessage, zap.String(logFieldRepositoryConstant, outcome.repositoryName), zap.Error(outcome.failure))
			repositoryFailures = append(repositoryFailures, RepositoryFailure{RepositoryName: outcome.repositoryName, Cause: outcome.failure})
		default:
			builder.logger.Info(
				repositoryResolvedLogMessage,
				zap.String(logFieldRepositoryConstant, outcome.repositoryName),
				zap.String(logFieldVersionConstant, outcome.serviceEntry.Version),
				zap.String(logFieldCommitConstant, outcome.serviceEntry.Commit),
			)
			resolvedServices[outcome.repositoryName] = outcome.serviceEntry
			if outcome.warning != nil {
				builder.logger.Warn(outcome.warning.Message())
				collectedWarnings = append(collectedWarnings, *outcome.warning)
			}
		}
	}

	if len(repositoryFailures) > 0 {
		return BuildResult{}, AggregateError{Failures: repositoryFailures, RepositoryCount: len(eligibleRepositories)}
	}

	assembledManifest, assemblyError := builder.assemble(request, resolvedServices)
	if assemblyError != nil {
		return BuildResult{}, assemblyError
	}

	sort.Slice(collectedWarnings, func(leftIndex int, rightIndex int) bool {
		return collectedWarnings[leftIndex].RepositoryName < collectedWarnings[rightIndex].RepositoryName
	})
	return BuildResult{Manifest: assembledManifest, Warnings: collectedWarnings}, nil
}

func (builder *Builder) resolveRepository(executionContext context.Context, repositoryConfig RepositoryConfig, request BuildRequest, branchPolicy semver.BranchPolicy, scratchRoot string) repositoryOutcome {
	remoteURL := repositoryConfig.RemoteURL
	if len(remoteURL) == 0 {
		remoteURL = gitrepo.ComposeRemoteURL(request.ArtifactSources.GitPrefix, repositoryConfig.Name)
	}
	workspacePath := filepath.Join(scratchRoot, repositoryConfig.Name)

	repositoryView, checkoutError := builder.source.Checkout(executionContext, remoteURL, request.Branch, workspacePath)
	if checkoutError != nil {
		return repositoryOutcome{repositoryName: repositoryConfig.Name, failure: checkoutError}
	}

	resolution, resolutionError := builder.resolver.Resolve(executionContext, repositoryConfig.Name, repositoryView, branchPolicy)
	if resolutionError != nil {
		return repositoryOutcome{repositoryName: repositoryConfig.Name, failure: resolutionError}
	}

	return repositoryOutcome{
		repositoryName: repositoryConfig.Name,
		serviceEntry:   manifest.ServiceEntry{Commit: resolution.Commit, Version: resolution.Version.String()},
		warning:        resolution.Warning,
	}
}

// assemble builds the final manifest after the worker barrier: pinned entries
// are copied from the base manifest, unchanged entries carried over, and the
// timestamp taken once.
func (builder *Builder) assemble(request BuildRequest, resolvedServices map[string]manifest.ServiceEntry) (*manifest.Manifest, error) {
	services := map[string]manifest.ServiceEntry{}
	for serviceName, serviceEntry := range resolvedServices {
		services[serviceName] = serviceEntry
	}

	if request.BaseManifest != nil && len(request.OnlyRepositories) == 0 {
		for _, excludedName := range request.ExcludeRepositories {
			if pinnedEntry, entryExists := request.BaseManifest.ServiceEntryFor(excludedName); entryExists {
				services[excludedName] = pinnedEntry
			}
		}
	}

	dependencies := request.Dependencies
	if len(dependencies) == 0 && request.BaseManifest != nil {
		dependencies = request.BaseManifest.Dependencies
	}
	if len(dependencies) == 0 {
		return nil, ErrNoDependenciesConfigured
	}

	assembledManifest := &manifest.Manifest{
		Version:         request.BuildNumber,
		Timestamp:       manifest.FormatTimestamp(builder.clock.Now()),
		ArtifactSources: request.ArtifactSources,
		Dependencies:    dependencies,
		Services:        services,
	}
	if validationError := assembledManifest.Validate(); validationError != nil {
		return nil, validationError
	}
	return assembledManifest, nil
}

func filterRepositories(configuredRepositories []RepositoryConfig, onlyRepositories []string, excludeRepositories []string) []RepositoryConfig {
	onlySet := toNameSet(onlyRepositories)
	excludeSet := toNameSet(excludeRepositories)

	eligibleRepositories := []RepositoryConfig{}
	for _, repositoryConfig := range configuredRepositories {
		if len(onlySet) > 0 {
			if _, included := onlySet[repositoryConfig.Name]; !included {
				continue
			}
		}
		if _, excluded := excludeSet[repositoryConfig.Name]; excluded {
			continue
		}
		eligibleRepositories = append(eligibleRepositories, repositoryConfig)
	}
	return eligibleRepositories
}

func toNameSet(repositoryNames []string) map[string]struct{} {
	nameSet := map[string]struct{}{}
	for _, repositoryName := range repositoryNames {
		nameSet[repositoryName] = struct{}{}
	}
	return nameSet
}
