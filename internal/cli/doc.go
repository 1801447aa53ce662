// Package cli provides command-line interface setup and configuration
// for krdeck. It handles flag parsing, command creation, and
// configuration management using cobra and viper, and turns the
// resulting settings into the configs of the pipeline packages.
package cli
