// Package ui renders command lifecycle events as concise console messages so
// that progress across a dozen repository clones stays readable while detailed
// telemetry flows through structured loggers.
package ui
