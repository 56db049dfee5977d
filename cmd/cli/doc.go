// Package cli constructs the buildtool command-line interface, wiring the
// Cobra command hierarchy, configuration loader, and structured logging
// primitives shared by the bom and changelog commands.
package cli
