package changelog

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spinnaker/buildtool/internal/gitrepo"
)

const (
	sectionHeadingTemplateConstant   = "## %s %s"
	newComponentSuffixConstant       = " (new component)"
	commitBulletTemplateConstant     = "- %s"
	pullRequestSuffixPatternConstant = `^(.*?)\s*\(#\d+\)$`
	renderedLineSeparatorConstant    = "\n"
)

var pullRequestSuffixMatcher = regexp.MustCompile(pullRequestSuffixPatternConstant)

// ServiceChangelog is one repository's section of the document: its one-line
// commit messages ordered newest first.
type ServiceChangelog struct {
	RepositoryName string
	Version        string
	NewComponent   bool
	Commits        []gitrepo.CommitSummary
}

// Document is the ordered set of per-repository changelog sections.
type Document struct {
	Sections []ServiceChangelog
}

// Render produces the markdown form: a heading per repository followed by a
// bullet list of commit subjects.
func (document *Document) Render() string {
	renderedLines := []string{}
	for _, section := range document.Sections {
		heading := fmt.Sprintf(sectionHeadingTemplateConstant, section.RepositoryName, section.Version)
		if section.NewComponent {
			heading += newComponentSuffixConstant
		}
		renderedLines = append(renderedLines, heading, "")
		for _, commitSummary := range section.Commits {
			renderedLines = append(renderedLines, fmt.Sprintf(commitBulletTemplateConstant, cleanSubject(commitSummary.Subject)))
		}
		renderedLines = append(renderedLines, "")
	}
	return strings.Join(renderedLines, renderedLineSeparatorConstant)
}

// cleanSubject drops the trailing pull request id github appends to squashed
// commit subjects.
func cleanSubject(subject string) string {
	if match := pullRequestSuffixMatcher.FindStringSubmatch(subject); match != nil {
		return match[1]
	}
	return subject
}
