package semver

import (
	"regexp"
	"strconv"
)

const releaseBranchPatternConstant = `^release-(\d+)\.(\d+)\.x$`

var releaseBranchMatcher = regexp.MustCompile(releaseBranchPatternConstant)

// PolicyKind enumerates the supported version bump policies.
type PolicyKind int

const (
	// PolicyMaster bumps the minor component when untagged commits exist.
	PolicyMaster PolicyKind = iota
	// PolicyRelease bumps the patch component within one major.minor line.
	PolicyRelease
)

// BranchPolicy captures the version bump behaviour selected from a branch name.
type BranchPolicy struct {
	Kind        PolicyKind
	ReleaseLine Version
}

// ResolveBranchPolicy inspects branchName once and returns the policy applied
// for the whole invocation. Branches that do not follow the release naming
// convention behave like master.
func ResolveBranchPolicy(branchName string) BranchPolicy {
	match := releaseBranchMatcher.FindStringSubmatch(branchName)
	if match == nil {
		return BranchPolicy{Kind: PolicyMaster}
	}
	majorComponent, _ := strconv.Atoi(match[1])
	minorComponent, _ := strconv.Atoi(match[2])
	return BranchPolicy{Kind: PolicyRelease, ReleaseLine: Version{Major: majorComponent, Minor: minorComponent}}
}

// AcceptsTag reports whether a tag version participates in resolution under
// this policy. Release branches only consider tags on their own line.
func (policy BranchPolicy) AcceptsTag(tagVersion Version) bool {
	if policy.Kind != PolicyRelease {
		return true
	}
	return tagVersion.SameLine(policy.ReleaseLine)
}

// NextVersion proposes the version following latestTagged when the branch head
// carries commits beyond the latest tag.
func (policy BranchPolicy) NextVersion(latestTagged Version) Version {
	if policy.Kind == PolicyRelease {
		return latestTagged.NextPatch()
	}
	return latestTagged.NextMinor()
}
