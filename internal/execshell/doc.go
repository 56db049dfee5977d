// Package execshell provides structured execution of the git binary.
//
// ShellExecutor wraps os/exec with zap logging, typed failure errors, and an
// observer hook so commands issued against component repositories remain
// observable and testable.
package execshell
