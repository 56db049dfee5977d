package utils_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spinnaker/buildtool/internal/utils"
)

const (
	testConfigurationNameConstant   = "config"
	testConfigurationTypeConstant   = "yaml"
	testEnvironmentPrefixConstant   = "BUILDTOOLTEST"
	testEmbeddedConfigurationString = "common:\n  log_level: info\n  log_format: structured\n"
	testFileConfigurationString     = "common:\n  log_level: debug\n"
)

type testConfiguration struct {
	Common struct {
		LogLevel  string `mapstructure:"log_level"`
		LogFormat string `mapstructure:"log_format"`
	} `mapstructure:"common"`
}

func TestLoadConfigurationMergesEmbeddedDefaultsAndFile(testInstance *testing.T) {
	configurationDirectory := testInstance.TempDir()
	configurationFilePath := filepath.Join(configurationDirectory, "config.yaml")
	require.NoError(testInstance, os.WriteFile(configurationFilePath, []byte(testFileConfigurationString), 0o644))

	loader := utils.NewConfigurationLoader(
		testConfigurationNameConstant,
		testConfigurationTypeConstant,
		testEnvironmentPrefixConstant,
		[]string{configurationDirectory},
		[]byte(testEmbeddedConfigurationString),
	)

	loadedConfiguration := testConfiguration{}
	metadata, loadError := loader.LoadConfiguration(configurationFilePath, &loadedConfiguration)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, configurationFilePath, metadata.ConfigFileUsed)
	require.Equal(testInstance, "debug", loadedConfiguration.Common.LogLevel)
	require.Equal(testInstance, "structured", loadedConfiguration.Common.LogFormat)
}

func TestLoadConfigurationFallsBackToEmbeddedDefaults(testInstance *testing.T) {
	loader := utils.NewConfigurationLoader(
		testConfigurationNameConstant,
		testConfigurationTypeConstant,
		testEnvironmentPrefixConstant,
		[]string{testInstance.TempDir()},
		[]byte(testEmbeddedConfigurationString),
	)

	loadedConfiguration := testConfiguration{}
	_, loadError := loader.LoadConfiguration("", &loadedConfiguration)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, "info", loadedConfiguration.Common.LogLevel)
}

func TestLoadConfigurationAppliesEnvironmentOverrides(testInstance *testing.T) {
	testInstance.Setenv("BUILDTOOLTEST_COMMON_LOG_LEVEL", "warn")

	loader := utils.NewConfigurationLoader(
		testConfigurationNameConstant,
		testConfigurationTypeConstant,
		testEnvironmentPrefixConstant,
		[]string{testInstance.TempDir()},
		[]byte(testEmbeddedConfigurationString),
	)

	loadedConfiguration := testConfiguration{}
	_, loadError := loader.LoadConfiguration("", &loadedConfiguration)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, "warn", loadedConfiguration.Common.LogLevel)
}
