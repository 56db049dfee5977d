// Package semver parses and compares the semantic version strings carried by
// release tags and manifests, and models the branch-dependent bump policy
// applied when a branch head has moved past its latest tag.
package semver
