// Package changelog provides the command that renders the commit-level diff
// between two release manifests.
package changelog

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spinnaker/buildtool/internal/changelog"
	"github.com/spinnaker/buildtool/internal/execshell"
	"github.com/spinnaker/buildtool/internal/gitrepo"
	"github.com/spinnaker/buildtool/internal/manifest"
	"github.com/spinnaker/buildtool/internal/ui"
)

const (
	commandUseConstant                   = "changelog"
	commandShortDescriptionConstant      = "Render the commit changelog between two release manifests"
	commandLongDescriptionConstant       = "changelog loads two release manifests, collects the commits each service gained between them, and renders a markdown changelog."
	newManifestFlagNameConstant          = "new-manifest"
	newManifestFlagUsageConstant         = "Path to the newer release manifest."
	oldManifestFlagNameConstant          = "old-manifest"
	oldManifestFlagUsageConstant         = "Path to the older release manifest."
	branchFlagNameConstant               = "branch"
	branchFlagUsageConstant              = "Branch fetched when inspecting each repository."
	outputFlagNameConstant               = "output"
	outputFlagUsageConstant              = "Destination path for the changelog (defaults to standard output)."
	scratchDirectoryFlagNameConstant     = "scratch-dir"
	scratchDirectoryFlagUsageConstant    = "Directory holding per-repository checkouts."
	newManifestLoadErrorTemplateConstant = "unable to load new manifest: %w"
	oldManifestLoadErrorTemplateConstant = "unable to load old manifest: %w"
	changelogWriteErrorTemplateConstant  = "unable to write changelog: %w"
	changelogWrittenLogMessageConstant   = "changelog written"
	logFieldOutputPathConstant           = "output_path"
	logFieldSectionCountConstant         = "section_count"
	changelogFilePermissionsConstant     = 0o644
)

var errMissingConfigurationProvider = errors.New("changelog command requires a configuration provider")

// CommandConfiguration captures configurable defaults for the changelog command.
type CommandConfiguration struct {
	Branch       string `mapstructure:"branch"`
	HistoryLimit int    `mapstructure:"history_limit"`
	ScratchRoot  string `mapstructure:"scratch_root"`
}

// ChangelogDiffer is the slice of the diff engine the command invokes.
type ChangelogDiffer interface {
	Diff(executionContext context.Context, request changelog.DiffRequest) (*changelog.Document, error)
}

// CommandBuilder assembles the changelog Cobra command from injected providers.
type CommandBuilder struct {
	LoggerProvider               func() *zap.Logger
	ConfigurationProvider        func() CommandConfiguration
	HumanReadableLoggingProvider func() bool
	ManifestLoader               func(manifestPath string) (*manifest.Manifest, error)
	DifferFactory                func(logger *zap.Logger, humanReadable bool) (ChangelogDiffer, error)
}

// Build constructs the changelog command with flag handling and execution wiring.
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

	command.Flags().String(newManifestFlagNameConstant, "", newManifestFlagUsageConstant)
	command.Flags().String(oldManifestFlagNameConstant, "", oldManifestFlagUsageConstant)
	command.Flags().String(branchFlagNameConstant, "", branchFlagUsageConstant)
	command.Flags().String(outputFlagNameConstant, "", outputFlagUsageConstant)
	command.Flags().String(scratchDirectoryFlagNameConstant, "", scratchDirectoryFlagUsageConstant)

	if markError := command.MarkFlagRequired(newManifestFlagNameConstant); markError != nil {
		return nil, markError
	}
	if markError := command.MarkFlagRequired(oldManifestFlagNameConstant); markError != nil {
		return nil, markError
	}

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	logger := builder.resolveLogger()
	configuration := builder.ConfigurationProvider()

	newManifestPath, _ := command.Flags().GetString(newManifestFlagNameConstant)
	oldManifestPath, _ := command.Flags().GetString(oldManifestFlagNameConstant)

	newManifest, newLoadError := builder.loadManifest(newManifestPath)
	if newLoadError != nil {
		return fmt.Errorf(newManifestLoadErrorTemplateConstant, newLoadError)
	}
	oldManifest, oldLoadError := builder.loadManifest(oldManifestPath)
	if oldLoadError != nil {
		return fmt.Errorf(oldManifestLoadErrorTemplateConstant, oldLoadError)
	}

	branchName := configuration.Branch
	if command.Flags().Changed(branchFlagNameConstant) {
		branchName, _ = command.Flags().GetString(branchFlagNameConstant)
	}

	scratchRoot := configuration.ScratchRoot
	if command.Flags().Changed(scratchDirectoryFlagNameConstant) {
		scratchRoot, _ = command.Flags().GetString(scratchDirectoryFlagNameConstant)
	}

	changelogDiffer, differCreationError := builder.createDiffer(logger)
	if differCreationError != nil {
		return differCreationError
	}

	document, diffError := changelogDiffer.Diff(command.Context(), changelog.DiffRequest{
		NewManifest:  newManifest,
		OldManifest:  oldManifest,
		Branch:       branchName,
		ScratchRoot:  scratchRoot,
		HistoryLimit: configuration.HistoryLimit,
	})
	if diffError != nil {
		return diffError
	}

	renderedChangelog := document.Render()
	outputPath, _ := command.Flags().GetString(outputFlagNameConstant)
	if len(outputPath) == 0 {
		fmt.Fprint(command.OutOrStdout(), renderedChangelog)
		return nil
	}
	if writeError := os.WriteFile(outputPath, []byte(renderedChangelog), changelogFilePermissionsConstant); writeError != nil {
		return fmt.Errorf(changelogWriteErrorTemplateConstant, writeError)
	}

	logger.Info(
		changelogWrittenLogMessageConstant,
		zap.String(logFieldOutputPathConstant, outputPath),
		zap.Int(logFieldSectionCountConstant, len(document.Sections)),
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

func (builder *CommandBuilder) createDiffer(logger *zap.Logger) (ChangelogDiffer, error) {
	if builder.DifferFactory != nil {
		return builder.DifferFactory(logger, builder.humanReadableLogging())
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

	repositorySource, sourceCreationError := gitrepo.NewSource(shellExecutor, gitrepo.SourceOptions{})
	if sourceCreationError != nil {
		return nil, sourceCreationError
	}

	return changelog.NewBuilder(changelog.NewGitRepositorySource(repositorySource), logger)
}
