package manifest

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/spinnaker/buildtool/internal/semver"
)

const (
	commitHashPatternConstant              = `^[0-9a-f]{40}$`
	validationErrorTemplateConstant        = "invalid manifest: %s"
	missingVersionIssueConstant            = "manifest version is empty"
	serviceVersionIssueTemplateConstant    = "service %s version %q is not semantic"
	serviceCommitIssueTemplateConstant     = "service %s commit %q is not a full commit hash"
	dependencyVersionIssueTemplateConstant = "dependency %s has no version"
	issueJoinSeparatorConstant             = "; "
)

var commitHashMatcher = regexp.MustCompile(commitHashPatternConstant)

// ValidationError reports a manifest whose entries violate the data model.
type ValidationError struct {
	Issues []string
}

// Error joins every recorded issue into one description.
func (validation ValidationError) Error() string {
	return fmt.Sprintf(validationErrorTemplateConstant, strings.Join(validation.Issues, issueJoinSeparatorConstant))
}

// Validate checks manifest invariants: a non-empty manifest version, semantic
// service versions, full commit hashes, and versioned dependencies.
func (document *Manifest) Validate() error {
	issues := []string{}

	if len(strings.TrimSpace(document.Version)) == 0 {
		issues = append(issues, missingVersionIssueConstant)
	}

	for _, serviceName := range document.ServiceNames() {
		serviceEntry := document.Services[serviceName]
		if _, parseError := semver.Parse(serviceEntry.Version); parseError != nil {
			issues = append(issues, fmt.Sprintf(serviceVersionIssueTemplateConstant, serviceName, serviceEntry.Version))
		}
		if !commitHashMatcher.MatchString(serviceEntry.Commit) {
			issues = append(issues, fmt.Sprintf(serviceCommitIssueTemplateConstant, serviceName, serviceEntry.Commit))
		}
	}

	dependencyNames := make([]string, 0, len(document.Dependencies))
	for dependencyName := range document.Dependencies {
		dependencyNames = append(dependencyNames, dependencyName)
	}
	sort.Strings(dependencyNames)
	for _, dependencyName := range dependencyNames {
		if len(strings.TrimSpace(document.Dependencies[dependencyName].Version)) == 0 {
			issues = append(issues, fmt.Sprintf(dependencyVersionIssueTemplateConstant, dependencyName))
		}
	}

	if len(issues) > 0 {
		return ValidationError{Issues: issues}
	}
	return nil
}
