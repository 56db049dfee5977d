// Package changelog diffs two release manifests into a human-readable
// document: one markdown section per changed repository listing its one-line
// commit messages, newest first.
package changelog
