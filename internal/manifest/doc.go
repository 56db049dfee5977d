// Package manifest defines the release Bill of Materials: the snapshot of
// commit and version for every component repository in a release, plus the
// pinned third-party dependency table and artifact source locators. Manifests
// are immutable once built and persist as one YAML document per release.
package manifest
