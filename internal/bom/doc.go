// Package bom builds release manifests. A TagResolver walks one repository's
// reachable tags to determine its release commit and version, and Builder
// fans resolution out across every configured repository through a bounded
// worker pool before assembling the manifest in canonical order.
package bom
