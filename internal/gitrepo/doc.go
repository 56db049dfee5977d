// Package gitrepo obtains read-only views of component repositories.
//
// Source prepares an isolated local workspace per repository (clone on first
// use, fetch afterwards) and Repository interrogates the commit graph: branch
// heads, reachable release tags, commit ranges, and ancestry checks. All git
// state is scoped to the workspace directory handed to Checkout, so
// concurrent workers never share mutable repository state.
package gitrepo
