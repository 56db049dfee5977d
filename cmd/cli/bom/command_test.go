package bom_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	bomcmd "github.com/spinnaker/buildtool/cmd/cli/bom"
	"github.com/spinnaker/buildtool/internal/bom"
	"github.com/spinnaker/buildtool/internal/manifest"
)

const (
	configuredBranchNameConstant      = "release-1.8.x"
	overriddenBranchNameConstant      = "master"
	explicitBuildNumberConstant       = "release-1.8.x-401"
	expectedDefaultOutputPathConstant = "release-1.8.x-401.yml"
	baseManifestPathConstant          = "previous-release.yml"
)

type capturingManifestBuilder struct {
	capturedRequest bom.BuildRequest
	buildResult     bom.BuildResult
	buildError      error
}

func (builderInstance *capturingManifestBuilder) Build(executionContext context.Context, request bom.BuildRequest) (bom.BuildResult, error) {
	builderInstance.capturedRequest = request
	return builderInstance.buildResult, builderInstance.buildError
}

func buildTestConfiguration() bomcmd.CommandConfiguration {
	return bomcmd.CommandConfiguration{
		Branch:      configuredBranchNameConstant,
		Concurrency: 4,
		ArtifactSources: manifest.ArtifactSources{
			DebianRepository:   "https://example.com/debians",
			DockerRegistry:     "registry.example.com/release",
			GitPrefix:          "https://github.com/spinnaker",
			GoogleImageProject: "release-images",
		},
		Repositories: []bom.RepositoryConfig{
			{Name: "orca"},
			{Name: "rosco", RemoteURL: "https://mirror.example.com/rosco"},
		},
		Dependencies: map[string]string{"redis": "2:2.8.4-2"},
	}
}

func buildTestManifest() *manifest.Manifest {
	return &manifest.Manifest{
		Version:   explicitBuildNumberConstant,
		Timestamp: "2026-08-30 12:00:00",
		Services: map[string]manifest.ServiceEntry{
			"orca": {Commit: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", Version: "1.8.0"},
		},
		Dependencies: map[string]manifest.DependencyEntry{"redis": {Version: "2:2.8.4-2"}},
	}
}

func newTestCommandBuilder(manifestBuilder *capturingManifestBuilder, savedPaths *[]string) *bomcmd.CommandBuilder {
	return &bomcmd.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return zap.NewNop()
		},
		ConfigurationProvider: buildTestConfiguration,
		BuilderFactory: func(logger *zap.Logger, humanReadable bool, fetchDepth int) (bomcmd.ManifestBuilder, error) {
			return manifestBuilder, nil
		},
		ManifestSaver: func(outputPath string, document *manifest.Manifest) error {
			*savedPaths = append(*savedPaths, outputPath)
			return nil
		},
	}
}

func TestCommandBuildRequiresConfigurationProvider(testInstance *testing.T) {
	commandBuilder := &bomcmd.CommandBuilder{}

	builtCommand, buildError := commandBuilder.Build()

	require.Error(testInstance, buildError)
	require.Nil(testInstance, builtCommand)
}

func TestCommandAssemblesBuildRequest(testInstance *testing.T) {
	manifestBuilder := &capturingManifestBuilder{buildResult: bom.BuildResult{Manifest: buildTestManifest()}}
	savedPaths := []string{}
	commandBuilder := newTestCommandBuilder(manifestBuilder, &savedPaths)

	builtCommand, buildError := commandBuilder.Build()
	require.NoError(testInstance, buildError)

	builtCommand.SetArgs([]string{
		"--build-number", explicitBuildNumberConstant,
		"--only-repositories", "orca",
		"--fail-fast",
	})
	require.NoError(testInstance, builtCommand.Execute())

	capturedRequest := manifestBuilder.capturedRequest
	require.Equal(testInstance, configuredBranchNameConstant, capturedRequest.Branch)
	require.Equal(testInstance, explicitBuildNumberConstant, capturedRequest.BuildNumber)
	require.Equal(testInstance, []string{"orca"}, capturedRequest.OnlyRepositories)
	require.True(testInstance, capturedRequest.FailFast)
	require.Equal(testInstance, 4, capturedRequest.Concurrency)
	require.Equal(testInstance, map[string]manifest.DependencyEntry{"redis": {Version: "2:2.8.4-2"}}, capturedRequest.Dependencies)
	require.Equal(testInstance, []string{expectedDefaultOutputPathConstant}, savedPaths)
}

func TestCommandComposesRepositoryRemoteURLs(testInstance *testing.T) {
	manifestBuilder := &capturingManifestBuilder{buildResult: bom.BuildResult{Manifest: buildTestManifest()}}
	savedPaths := []string{}
	commandBuilder := newTestCommandBuilder(manifestBuilder, &savedPaths)

	builtCommand, buildError := commandBuilder.Build()
	require.NoError(testInstance, buildError)

	builtCommand.SetArgs([]string{"--build-number", explicitBuildNumberConstant})
	require.NoError(testInstance, builtCommand.Execute())

	capturedRepositories := manifestBuilder.capturedRequest.Repositories
	require.Len(testInstance, capturedRepositories, 2)
	require.Equal(testInstance, "https://github.com/spinnaker/orca", capturedRepositories[0].RemoteURL)
	require.Equal(testInstance, "https://mirror.example.com/rosco", capturedRepositories[1].RemoteURL)
}

func TestCommandRepositoryOwnerOverridesGitPrefix(testInstance *testing.T) {
	manifestBuilder := &capturingManifestBuilder{buildResult: bom.BuildResult{Manifest: buildTestManifest()}}
	savedPaths := []string{}
	commandBuilder := newTestCommandBuilder(manifestBuilder, &savedPaths)

	builtCommand, buildError := commandBuilder.Build()
	require.NoError(testInstance, buildError)

	builtCommand.SetArgs([]string{
		"--build-number", explicitBuildNumberConstant,
		"--repository-owner", "example-fork",
		"--branch", overriddenBranchNameConstant,
	})
	require.NoError(testInstance, builtCommand.Execute())

	capturedRequest := manifestBuilder.capturedRequest
	require.Equal(testInstance, overriddenBranchNameConstant, capturedRequest.Branch)
	require.Equal(testInstance, "https://github.com/example-fork", capturedRequest.ArtifactSources.GitPrefix)
	require.Equal(testInstance, "https://github.com/example-fork/orca", capturedRequest.Repositories[0].RemoteURL)
}

func TestCommandLoadsBaseManifest(testInstance *testing.T) {
	manifestBuilder := &capturingManifestBuilder{buildResult: bom.BuildResult{Manifest: buildTestManifest()}}
	savedPaths := []string{}
	commandBuilder := newTestCommandBuilder(manifestBuilder, &savedPaths)
	loadedPaths := []string{}
	baseManifest := buildTestManifest()
	commandBuilder.ManifestLoader = func(manifestPath string) (*manifest.Manifest, error) {
		loadedPaths = append(loadedPaths, manifestPath)
		return baseManifest, nil
	}

	builtCommand, buildError := commandBuilder.Build()
	require.NoError(testInstance, buildError)

	builtCommand.SetArgs([]string{
		"--build-number", explicitBuildNumberConstant,
		"--refresh-from-bom", baseManifestPathConstant,
	})
	require.NoError(testInstance, builtCommand.Execute())

	require.Equal(testInstance, []string{baseManifestPathConstant}, loadedPaths)
	require.Same(testInstance, baseManifest, manifestBuilder.capturedRequest.BaseManifest)
}
