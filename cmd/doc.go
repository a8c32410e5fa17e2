// Package cmd implements the command-line interface for sprint-manager.
//
// This package provides the following commands:
//   - serve: Start the sprint task API (default)
//   - divergences: List and resolve calendar mutations the task store missed
//   - version: Display version information
package cmd
