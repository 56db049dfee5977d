package semver

import (
	"fmt"
	"regexp"
	"strconv"
)

const (
	versionPatternConstant           = `^(\d+)\.(\d+)\.(\d+)$`
	tagPatternConstant               = `^(?:v|version-)?(\d+)\.(\d+)\.(\d+)$`
	versionTemplateConstant          = "%d.%d.%d"
	malformedVersionTemplateConstant = "malformed semantic version %q"
	malformedTagTemplateConstant     = "tag %q does not encode a semantic version"
)

var (
	versionMatcher = regexp.MustCompile(versionPatternConstant)
	tagMatcher     = regexp.MustCompile(tagPatternConstant)
)

// Version holds the numeric components of a semantic version.
type Version struct {
	Major int
	Minor int
	Patch int
}

// Parse converts a strict major.minor.patch string into a Version.
func Parse(value string) (Version, error) {
	match := versionMatcher.FindStringSubmatch(value)
	if match == nil {
		return Version{}, fmt.Errorf(malformedVersionTemplateConstant, value)
	}
	return versionFromMatch(match), nil
}

// ParseTag converts a release tag into a Version, accepting the bare,
// "v"-prefixed, and "version-"-prefixed tag spellings.
func ParseTag(tagName string) (Version, error) {
	match := tagMatcher.FindStringSubmatch(tagName)
	if match == nil {
		return Version{}, fmt.Errorf(malformedTagTemplateConstant, tagName)
	}
	return versionFromMatch(match), nil
}

// IsTag reports whether tagName encodes a semantic version.
func IsTag(tagName string) bool {
	return tagMatcher.MatchString(tagName)
}

func versionFromMatch(match []string) Version {
	majorComponent, _ := strconv.Atoi(match[1])
	minorComponent, _ := strconv.Atoi(match[2])
	patchComponent, _ := strconv.Atoi(match[3])
	return Version{Major: majorComponent, Minor: minorComponent, Patch: patchComponent}
}

// Compare returns a negative value when left precedes right, zero when equal,
// and a positive value when left follows right.
func Compare(left Version, right Version) int {
	if left.Major != right.Major {
		return left.Major - right.Major
	}
	if left.Minor != right.Minor {
		return left.Minor - right.Minor
	}
	return left.Patch - right.Patch
}

// String renders the canonical major.minor.patch form.
func (version Version) String() string {
	return fmt.Sprintf(versionTemplateConstant, version.Major, version.Minor, version.Patch)
}

// NextMinor returns the version with the minor component incremented and the
// patch component reset.
func (version Version) NextMinor() Version {
	return Version{Major: version.Major, Minor: version.Minor + 1, Patch: 0}
}

// NextPatch returns the version with the patch component incremented.
func (version Version) NextPatch() Version {
	return Version{Major: version.Major, Minor: version.Minor, Patch: version.Patch + 1}
}

// SameLine reports whether both versions belong to the same major.minor line.
func (version Version) SameLine(other Version) bool {
	return version.Major == other.Major && version.Minor == other.Minor
}
