package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spinnaker/buildtool/internal/execshell"
)

const (
	defaultRemoteNameConstant      = "origin"
	gitDirectoryNameConstant       = ".git"
	gitCloneSubcommandConstant     = "clone"
	gitFetchSubcommandConstant     = "fetch"
	gitCheckoutSubcommandConstant  = "checkout"
	gitBranchFlagConstant          = "--branch"
	gitDepthFlagConstant           = "--depth"
	gitTagsFlagConstant            = "--tags"
	gitPruneFlagConstant           = "--prune"
	gitForceFlagConstant           = "--force"
	gitResetBranchFlagConstant     = "-B"
	fetchHeadReferenceConstant     = "FETCH_HEAD"
	workspaceCreationErrorTemplate = "unable to create workspace %s: %w"
	terminalPromptEnvironmentKey   = "GIT_TERMINAL_PROMPT"
	terminalPromptDisabledValue    = "0"
)

// GitExecutor exposes the subset of shell execution used by repository views.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// SourceOptions carries the explicit git configuration applied to every
// repository view. Nothing is read from process-global git state.
type SourceOptions struct {
	RemoteName           string
	FetchDepth           int
	EnvironmentVariables map[string]string
}

// Source produces read-only repository views rooted in isolated workspaces.
type Source struct {
	executor GitExecutor
	options  SourceOptions
}

// ErrExecutorNotConfigured reports a missing git executor during construction.
var ErrExecutorNotConfigured = errors.New("repository source requires a git executor")

// NewSource constructs a Source bound to the supplied executor and options.
func NewSource(executor GitExecutor, options SourceOptions) (*Source, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	if len(options.RemoteName) == 0 {
		options.RemoteName = defaultRemoteNameConstant
	}
	return &Source{executor: executor, options: options}, nil
}

// Checkout materializes branchName of remoteURL inside workspacePath and
// returns a Repository view positioned at the branch head. The workspace is
// cloned on first use and synchronized with the remote on every later use.
func (source *Source) Checkout(executionContext context.Context, remoteURL string, branchName string, workspacePath string) (*Repository, error) {
	if creationError := os.MkdirAll(filepath.Dir(workspacePath), 0o755); creationError != nil {
		return nil, fmt.Errorf(workspaceCreationErrorTemplate, workspacePath, creationError)
	}

	if source.workspaceInitialized(workspacePath) {
		if synchronizationError := source.synchronize(executionContext, branchName, workspacePath); synchronizationError != nil {
			return nil, RepositoryUnavailableError{RemoteURL: remoteURL, Branch: branchName, Cause: synchronizationError}
		}
	} else {
		if cloneError := source.clone(executionContext, remoteURL, branchName, workspacePath); cloneError != nil {
			return nil, RepositoryUnavailableError{RemoteURL: remoteURL, Branch: branchName, Cause: cloneError}
		}
	}

	return &Repository{executor: source.executor, path: workspacePath, environment: source.commandEnvironment()}, nil
}

func (source *Source) workspaceInitialized(workspacePath string) bool {
	gitDirectoryInfo, statError := os.Stat(filepath.Join(workspacePath, gitDirectoryNameConstant))
	return statError == nil && gitDirectoryInfo.IsDir()
}

func (source *Source) clone(executionContext context.Context, remoteURL string, branchName string, workspacePath string) error {
	cloneArguments := []string{gitCloneSubcommandConstant, gitBranchFlagConstant, branchName}
	if source.options.FetchDepth > 0 {
		cloneArguments = append(cloneArguments, gitDepthFlagConstant, strconv.Itoa(source.options.FetchDepth))
	}
	cloneArguments = append(cloneArguments, remoteURL, workspacePath)

	_, cloneError := source.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            cloneArguments,
		EnvironmentVariables: source.commandEnvironment(),
	})
	return cloneError
}

func (source *Source) synchronize(executionContext context.Context, branchName string, workspacePath string) error {
	fetchArguments := []string{gitFetchSubcommandConstant, gitTagsFlagConstant, gitPruneFlagConstant, source.options.RemoteName, branchName}
	if source.options.FetchDepth > 0 {
		fetchArguments = append(fetchArguments, gitDepthFlagConstant, strconv.Itoa(source.options.FetchDepth))
	}
	_, fetchError := source.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            fetchArguments,
		WorkingDirectory:     workspacePath,
		EnvironmentVariables: source.commandEnvironment(),
	})
	if fetchError != nil {
		return fetchError
	}

	_, checkoutError := source.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            []string{gitCheckoutSubcommandConstant, gitForceFlagConstant, gitResetBranchFlagConstant, branchName, fetchHeadReferenceConstant},
		WorkingDirectory:     workspacePath,
		EnvironmentVariables: source.commandEnvironment(),
	})
	return checkoutError
}

func (source *Source) commandEnvironment() map[string]string {
	mergedEnvironment := map[string]string{terminalPromptEnvironmentKey: terminalPromptDisabledValue}
	for environmentKey, environmentValue := range source.options.EnvironmentVariables {
		mergedEnvironment[environmentKey] = environmentValue
	}
	return mergedEnvironment
}
