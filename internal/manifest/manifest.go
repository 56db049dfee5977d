package manifest

import (
	"sort"
	"time"
)

const timestampLayoutConstant = "2006-01-02 15:04:05"

// ArtifactSources carries the fixed distribution locators recorded with a
// release. The values are opaque pass-through configuration.
type ArtifactSources struct {
	DebianRepository   string `yaml:"debianRepository" mapstructure:"debian_repository"`
	DockerRegistry     string `yaml:"dockerRegistry" mapstructure:"docker_registry"`
	GitPrefix          string `yaml:"gitPrefix" mapstructure:"git_prefix"`
	GoogleImageProject string `yaml:"googleImageProject" mapstructure:"google_image_project"`
}

// ServiceEntry pins one component repository to an exact commit and version.
type ServiceEntry struct {
	Commit  string `yaml:"commit"`
	Version string `yaml:"version"`
}

// DependencyEntry pins a third-party component that is not resolved from git.
type DependencyEntry struct {
	Version string `yaml:"version"`
}

// Manifest is the versioned snapshot of every component for one release.
type Manifest struct {
	Version         string                     `yaml:"version"`
	Timestamp       string                     `yaml:"timestamp"`
	ArtifactSources ArtifactSources            `yaml:"artifactSources"`
	Dependencies    map[string]DependencyEntry `yaml:"dependencies"`
	Services        map[string]ServiceEntry    `yaml:"services"`
}

// ServiceNames returns the service keys in canonical sorted order.
func (document *Manifest) ServiceNames() []string {
	serviceNames := make([]string, 0, len(document.Services))
	for serviceName := range document.Services {
		serviceNames = append(serviceNames, serviceName)
	}
	sort.Strings(serviceNames)
	return serviceNames
}

// ServiceEntryFor looks up the entry recorded for serviceName.
func (document *Manifest) ServiceEntryFor(serviceName string) (ServiceEntry, bool) {
	serviceEntry, entryExists := document.Services[serviceName]
	return serviceEntry, entryExists
}

// FormatTimestamp renders a completion instant in the persisted layout.
func FormatTimestamp(completionInstant time.Time) string {
	return completionInstant.UTC().Format(timestampLayoutConstant)
}
