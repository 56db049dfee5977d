// Package utils hosts the configuration and logging plumbing shared by every
// CLI command: a Viper-backed configuration loader and a zap logger factory.
package utils
