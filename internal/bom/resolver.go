package bom

import (
	"context"
	"fmt"

	"github.com/spinnaker/buildtool/internal/gitrepo"
	"github.com/spinnaker/buildtool/internal/semver"
)

// Resolution is the outcome of resolving one repository: the release commit,
// the release version, and an optional untagged-head warning.
type Resolution struct {
	Commit  string
	Version semver.Version
	Warning *UntaggedHeadWarning
}

type taggedVersion struct {
	reference gitrepo.TagReference
	version   semver.Version
}

// TagResolver determines a repository's current release commit and version
// from the tags reachable at a branch head.
type TagResolver struct{}

// Resolve walks the reachable tags of view. When the branch head carries a
// semver tag its version is returned unchanged (the greatest one when several
// tags share the commit). When the head is ahead of the latest tag, the next
// version is proposed per the branch policy and reported as a warning. When
// no semver tag is reachable at all the resolution fails with ErrNoTagFound.
func (resolver TagResolver) Resolve(executionContext context.Context, repositoryName string, view RepositoryView, policy semver.BranchPolicy) (Resolution, error) {
	headCommit, headError := view.HeadCommit(executionContext)
	if headError != nil {
		return Resolution{}, headError
	}

	tagReferences, tagsError := view.ReachableTags(executionContext)
	if tagsError != nil {
		return Resolution{}, tagsError
	}

	taggedVersions := make([]taggedVersion, 0, len(tagReferences))
	for _, tagReference := range tagReferences {
		tagVersion, parseError := semver.ParseTag(tagReference.Name)
		if parseError != nil {
			continue
		}
		taggedVersions = append(taggedVersions, taggedVersion{reference: tagReference, version: tagVersion})
	}

	if headTagged, headVersion := greatestVersionAtCommit(taggedVersions, headCommit); headTagged {
		return Resolution{Commit: headCommit, Version: headVersion}, nil
	}

	latestFound, latestVersion := greatestVersionForPolicy(taggedVersions, policy)
	if !latestFound {
		return Resolution{}, fmt.Errorf(noTagFoundTemplateConstant, repositoryName, ErrNoTagFound)
	}

	proposedVersion := policy.NextVersion(latestVersion)
	warning := &UntaggedHeadWarning{
		RepositoryName:  repositoryName,
		HeadCommit:      headCommit,
		LatestTag:       latestVersion.String(),
		ProposedVersion: proposedVersion.String(),
	}
	return Resolution{Commit: headCommit, Version: proposedVersion, Warning: warning}, nil
}

func greatestVersionAtCommit(taggedVersions []taggedVersion, commit string) (bool, semver.Version) {
	found := false
	greatest := semver.Version{}
	for _, candidate := range taggedVersions {
		if candidate.reference.Commit != commit {
			continue
		}
		if !found || semver.Compare(candidate.version, greatest) > 0 {
			found    = true
			greatest = candidate.version
		}
	}
	return found, greatest
}

func greatestVersionForPolicy(taggedVersions []taggedVersion, policy semver.BranchPolicy) (bool, semver.Version) {
	found := false
	greatest := semver.Version{}
	for _, candidate := range taggedVersions {
		if !policy.AcceptsTag(candidate.version) {
			continue
		}
		if !found || semver.Compare(candidate.version, greatest) > 0 {
			found    = true
			greatest = candidate.version
		}
	}
	return found, greatest
}
