package manifest_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spinnaker/buildtool/internal/manifest"
)

const (
	testValidManifestCaseNameConstant     = "valid_manifest"
	testBadServiceVersionCaseNameConstant = "malformed_service_version"
	testBadServiceCommitCaseNameConstant  = "malformed_service_commit"
	testMissingVersionCaseNameConstant    = "missing_manifest_version"
	testUnversionedDependencyCaseConstant = "unversioned_dependency"
	testRoscoCommitConstant               = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	testOrcaCommitConstant                = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func validManifest() *manifest.Manifest {
	return &manifest.Manifest{
		Version:   "master-1700000000",
		Timestamp: "2026-08-30 12:00:00",
		ArtifactSources: manifest.ArtifactSources{
			DebianRepository:   "https://dl.example.com/apt",
			DockerRegistry:     "gcr.io/example-marketplace",
			GitPrefix:          "https://github.com/spinnaker",
			GoogleImageProject: "example-images",
		},
		Dependencies: map[string]manifest.DependencyEntry{
			"redis": {Version: "2:2.8.4-2"},
		},
		Services: map[string]manifest.ServiceEntry{
			"rosco": {Commit: testRoscoCommitConstant, Version: "1.7.2"},
			"orca":  {Commit: testOrcaCommitConstant, Version: "3.1.0"},
		},
	}
}

func TestValidate(testInstance *testing.T) {
	testCases := []struct {
		name          string
		mutate        func(document *manifest.Manifest)
		expectedIssue string
	}{
		{
			name:   testValidManifestCaseNameConstant,
			mutate: func(*manifest.Manifest) {},
		},
		{
			name: testBadServiceVersionCaseNameConstant,
			mutate: func(document *manifest.Manifest) {
				document.Services["rosco"] = manifest.ServiceEntry{Commit: testRoscoCommitConstant, Version: "1.7"}
			},
			expectedIssue: `service rosco version "1.7" is not semantic`,
		},
		{
			name: testBadServiceCommitCaseNameConstant,
			mutate: func(document *manifest.Manifest) {
				document.Services["orca"] = manifest.ServiceEntry{Commit: "abc123", Version: "3.1.0"}
			},
			expectedIssue: `service orca commit "abc123" is not a full commit hash`,
		},
		{
			name: testMissingVersionCaseNameConstant,
			mutate: func(document *manifest.Manifest) {
				document.Version = "  "
			},
			expectedIssue: "manifest version is empty",
		},
		{
			name: testUnversionedDependencyCaseConstant,
			mutate: func(document *manifest.Manifest) {
				document.Dependencies["consul"] = manifest.DependencyEntry{}
			},
			expectedIssue: "dependency consul has no version",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			document := validManifest()
			testCase.mutate(document)

			validationError := document.Validate()
			if len(testCase.expectedIssue) == 0 {
				require.NoError(testInstance, validationError)
				return
			}
			require.Error(testInstance, validationError)
			require.ErrorContains(testInstance, validationError, testCase.expectedIssue)
		})
	}
}

func TestServiceNamesSorted(testInstance *testing.T) {
	document := validManifest()
	require.Equal(testInstance, []string{"orca", "rosco"}, document.ServiceNames())
}

func TestSaveAndLoadRoundTrip(testInstance *testing.T) {
	document := validManifest()
	manifestPath := filepath.Join(testInstance.TempDir(), "master-1700000000.yml")

	require.NoError(testInstance, manifest.Save(document, manifestPath))

	loadedManifest, loadError := manifest.Load(manifestPath)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, document, loadedManifest)
}

func TestLoadRejectsInvalidManifest(testInstance *testing.T) {
	document := validManifest()
	document.Services["rosco"] = manifest.ServiceEntry{Commit: "short", Version: "nope"}
	manifestPath := filepath.Join(testInstance.TempDir(), "broken.yml")
	require.NoError(testInstance, manifest.Save(document, manifestPath))

	_, loadError := manifest.Load(manifestPath)
	require.Error(testInstance, loadError)
	validationError := manifest.ValidationError{}
	require.ErrorAs(testInstance, loadError, &validationError)
}

func TestEncodeIsDeterministic(testInstance *testing.T) {
	firstEncoding, firstError := manifest.Encode(validManifest())
	require.NoError(testInstance, firstError)
	secondEncoding, secondError := manifest.Encode(validManifest())
	require.NoError(testInstance, secondError)
	require.Equal(testInstance, string(firstEncoding), string(secondEncoding))
}

func TestFormatTimestampUsesUTC(testInstance *testing.T) {
	easternZone := time.FixedZone("UTC-5", -5*60*60)
	localInstant := time.Date(2026, time.August, 30, 7, 30, 0, 0, easternZone)
	require.Equal(testInstance, "2026-08-30 12:30:00", manifest.FormatTimestamp(localInstant))
}
