// Package bom provides the command that assembles a release manifest from the
// configured repository roster.
package bom

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spinnaker/buildtool/internal/bom"
	"github.com/spinnaker/buildtool/internal/execshell"
	"github.com/spinnaker/buildtool/internal/gitrepo"
	"github.com/spinnaker/buildtool/internal/manifest"
	"github.com/spinnaker/buildtool/internal/ui"
)

const (
	commandUseConstant                    = "bom"
	commandShortDescriptionConstant       = "Assemble a release manifest from every component repository"
	commandLongDescriptionConstant        = "bom checks out each configured repository at the release branch, resolves its version from reachable tags, and writes the combined release manifest."
	repositoryOwnerFlagNameConstant       = "repository-owner"
	repositoryOwnerFlagUsageConstant      = "Override the owner portion of every repository remote URL."
	branchFlagNameConstant                = "branch"
	branchFlagUsageConstant               = "Branch to snapshot in every repository."
	buildNumberFlagNameConstant           = "build-number"
	buildNumberFlagUsageConstant          = "Build identifier recorded as the manifest version."
	refreshFromBomFlagNameConstant        = "refresh-from-bom"
	refreshFromBomFlagUsageConstant       = "Path to a base manifest supplying pinned entries and dependency versions."
	onlyRepositoriesFlagNameConstant      = "only-repositories"
	onlyRepositoriesFlagUsageConstant     = "Restrict the build to the named repositories."
	excludeRepositoriesFlagNameConstant   = "exclude-repositories"
	excludeRepositoriesFlagUsageConstant  = "Skip the named repositories, pinning their base manifest entries."
	outputFlagNameConstant                = "output"
	outputFlagUsageConstant               = "Destination path for the manifest (defaults to <build-number>.yml)."
	scratchDirectoryFlagNameConstant      = "scratch-dir"
	scratchDirectoryFlagUsageConstant     = "Directory holding per-repository checkouts."
	concurrencyFlagNameConstant           = "concurrency"
	concurrencyFlagUsageConstant          = "Maximum number of repositories processed at once."
	failFastFlagNameConstant              = "fail-fast"
	failFastFlagUsageConstant             = "Abort remaining repositories after the first failure."
	githubRemotePrefixTemplateConstant    = "https://github.com/%s"
	buildNumberTemplateConstant           = "%s-%d"
	outputFileTemplateConstant            = "%s.yml"
	baseManifestLoadErrorTemplateConstant = "unable to load base manifest: %w"
	manifestSaveErrorTemplateConstant     = "unable to write manifest: %w"
	manifestWrittenLogMessageConstant     = "manifest written"
	logFieldOutputPathConstant            = "output_path"
	logFieldManifestVersionConstant       = "manifest_version"
	logFieldWarningCountConstant          = "warning_count"
)

var errMissingConfigurationProvider = errors.New("bom command requires a configuration provider")

// CommandConfiguration captures configurable defaults for the bom command.
type CommandConfiguration struct {
	RepositoryOwner string                   `mapstructure:"repository_owner"`
	Branch          string                   `mapstructure:"branch"`
	Concurrency     int                      `mapstructure:"concurrency"`
	FetchDepth      int                      `mapstructure:"fetch_depth"`
	FailFast        bool                     `mapstructure:"fail_fast"`
	ScratchRoot     string                   `mapstructure:"scratch_root"`
	ArtifactSources manifest.ArtifactSources `mapstructure:"artifact_sources"`
	Repositories    []bom.RepositoryConfig   `mapstructure:"repositories"`
	Dependencies    map[string]string        `mapstructure:"dependencies"`
}

// CommandBuilder assembles the bom Cobra command from injected providers.
type CommandBuilder struct {
	LoggerProvider               func() *zap.Logger
	ConfigurationProvider        func() CommandConfiguration
	HumanReadableLoggingProvider func() bool
	ManifestSaver                func(outputPath string, document *manifest.Manifest) error
	ManifestLoader               func(manifestPath string) (*manifest.Manifest, error)
	BuilderFactory               func(logger *zap.Logger, humanReadable bool, fetchDepth int) (ManifestBuilder, error)
}

// ManifestBuilder is the slice of the assembly engine the command invokes.
type ManifestBuilder interface {
	Build(executionContext context.Context, request bom.BuildRequest) (bom.BuildResult, error)
}

// Build constructs the bom command with flag handling and execution wiring.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	if builder.ConfigurationProvider == nil {
		return nil, errMissingConfigurationProvider
	}

	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().String(repositoryOwnerFlagNameConstant, "", repositoryOwnerFlagUsageConstant)
	command.Flags().String(branchFlagNameConstant, "", branchFlagUsageConstant)
	command.Flags().String(buildNumberFlagNameConstant, "", buildNumberFlagUsageConstant)
	command.Flags().String(refreshFromBomFlagNameConstant, "", refreshFromBomFlagUsageConstant)
	command.Flags().StringSlice(onlyRepositoriesFlagNameConstant, nil, onlyRepositoriesFlagUsageConstant)
	command.Flags().StringSlice(excludeRepositoriesFlagNameConstant, nil, excludeRepositoriesFlagUsageConstant)
	command.Flags().String(outputFlagNameConstant, "", outputFlagUsageConstant)
	command.Flags().String(scratchDirectoryFlagNameConstant, "", scratchDirectoryFlagUsageConstant)
	command.Flags().Int(concurrencyFlagNameConstant, 0, concurrencyFlagUsageConstant)
	command.Flags().Bool(failFastFlagNameConstant, false, failFastFlagUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	logger := builder.resolveLogger()
	configuration := builder.ConfigurationProvider()

	branchName := configuration.Branch
	if command.Flags().Changed(branchFlagNameConstant) {
		branchName, _ = command.Flags().GetString(branchFlagNameConstant)
	}

	buildNumber, _ := command.Flags().GetString(buildNumberFlagNameConstant)
	if len(buildNumber) == 0 {
		buildNumber = fmt.Sprintf(buildNumberTemplateConstant, branchName, time.Now().Unix())
	}

	concurrency := configuration.Concurrency
	if command.Flags().Changed(concurrencyFlagNameConstant) {
		concurrency, _ = command.Flags().GetInt(concurrencyFlagNameConstant)
	}

	failFast := configuration.FailFast
	if command.Flags().Changed(failFastFlagNameConstant) {
		failFast, _ = command.Flags().GetBool(failFastFlagNameConstant)
	}

	scratchRoot := configuration.ScratchRoot
	if command.Flags().Changed(scratchDirectoryFlagNameConstant) {
		scratchRoot, _ = command.Flags().GetString(scratchDirectoryFlagNameConstant)
	}

	artifactSources := configuration.ArtifactSources
	if command.Flags().Changed(repositoryOwnerFlagNameConstant) {
		repositoryOwner, _ := command.Flags().GetString(repositoryOwnerFlagNameConstant)
		artifactSources.GitPrefix = fmt.Sprintf(githubRemotePrefixTemplateConstant, repositoryOwner)
	}

	onlyRepositories, _ := command.Flags().GetStringSlice(onlyRepositoriesFlagNameConstant)
	excludeRepositories, _ := command.Flags().GetStringSlice(excludeRepositoriesFlagNameConstant)

	var baseManifest *manifest.Manifest
	baseManifestPath, _ := command.Flags().GetString(refreshFromBomFlagNameConstant)
	if len(baseManifestPath) > 0 {
		loadedManifest, loadError := builder.loadManifest(baseManifestPath)
		if loadError != nil {
			return fmt.Errorf(baseManifestLoadErrorTemplateConstant, loadError)
		}
		baseManifest = loadedManifest
	}

	repositories := make([]bom.RepositoryConfig, 0, len(configuration.Repositories))
	for _, repositoryConfiguration := range configuration.Repositories {
		if len(repositoryConfiguration.RemoteURL) == 0 {
			repositoryConfiguration.RemoteURL = gitrepo.ComposeRemoteURL(artifactSources.GitPrefix, repositoryConfiguration.Name)
		}
		repositories = append(repositories, repositoryConfiguration)
	}

	dependencies := make(map[string]manifest.DependencyEntry, len(configuration.Dependencies))
	for dependencyName, dependencyVersion := range configuration.Dependencies {
		dependencies[dependencyName] = manifest.DependencyEntry{Version: dependencyVersion}
	}

	manifestBuilder, builderCreationError := builder.createManifestBuilder(logger, configuration.FetchDepth)
	if builderCreationError != nil {
		return builderCreationError
	}

	buildResult, buildError := manifestBuilder.Build(command.Context(), bom.BuildRequest{
		Repositories:        repositories,
		Branch:              branchName,
		BuildNumber:         buildNumber,
		OnlyRepositories:    onlyRepositories,
		ExcludeRepositories: excludeRepositories,
		BaseManifest:        baseManifest,
		ArtifactSources:     artifactSources,
		Dependencies:        dependencies,
		ScratchRoot:         scratchRoot,
		Concurrency:         concurrency,
		FailFast:            failFast,
	})
	if buildError != nil {
		return buildError
	}

	for _, resolutionWarning := range buildResult.Warnings {
		logger.Warn(resolutionWarning.Message())
	}

	outputPath, _ := command.Flags().GetString(outputFlagNameConstant)
	if len(outputPath) == 0 {
		outputPath = fmt.Sprintf(outputFileTemplateConstant, buildNumber)
	}
	if saveError := builder.saveManifest(outputPath, buildResult.Manifest); saveError != nil {
		return fmt.Errorf(manifestSaveErrorTemplateConstant, saveError)
	}

	logger.Info(
		manifestWrittenLogMessageConstant,
		zap.String(logFieldOutputPathConstant, outputPath),
		zap.String(logFieldManifestVersionConstant, buildResult.Manifest.Version),
		zap.Int(logFieldWarningCountConstant, len(buildResult.Warnings)),
	)
	return nil
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) humanReadableLogging() bool {
	if builder.HumanReadableLoggingProvider == nil {
		return false
	}
	return builder.HumanReadableLoggingProvider()
}

func (builder *CommandBuilder) loadManifest(manifestPath string) (*manifest.Manifest, error) {
	if builder.ManifestLoader != nil {
		return builder.ManifestLoader(manifestPath)
	}
	return manifest.Load(manifestPath)
}

func (builder *CommandBuilder) saveManifest(outputPath string, document *manifest.Manifest) error {
	if builder.ManifestSaver != nil {
		return builder.ManifestSaver(outputPath, document)
	}
	return manifest.Save(document, outputPath)
}

func (builder *CommandBuilder) createManifestBuilder(logger *zap.Logger, fetchDepth int) (ManifestBuilder, error) {
	if builder.BuilderFactory != nil {
		return builder.BuilderFactory(logger, builder.humanReadableLogging(), fetchDepth)
	}

	commandRunner := execshell.NewOSCommandRunner()
	var shellExecutor *execshell.ShellExecutor
	var executorCreationError error
	if builder.humanReadableLogging() {
		shellExecutor, executorCreationError = execshell.NewObservedShellExecutor(logger, commandRunner, ui.NewConsoleCommandEventLogger(logger))
	} else {
		shellExecutor, executorCreationError = execshell.NewShellExecutor(logger, commandRunner)
	}
	if executorCreationError != nil {
		return nil, executorCreationError
	}

	repositorySource, sourceCreationError := gitrepo.NewSource(shellExecutor, gitrepo.SourceOptions{FetchDepth: fetchDepth})
	if sourceCreationError != nil {
		return nil, sourceCreationError
	}

	return bom.NewBuilder(bom.NewGitRepositorySource(repositorySource), logger, bom.SystemClock{})
}
