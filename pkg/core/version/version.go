// ============================================================================
// mExec - Embedded Script Engine
// ============================================================================
//
// Package:     version
// Description: Central version information for the engine and its CLI
// Author:      Mike Stoffels
// Created:     2025-12-06
// License:     MIT
// ============================================================================

package version

import "fmt"

// Version constants
const (
	// Engine is the version of the script engine contract
	Engine = "1.0.0"

	// CLI is the version of the mexec command
	CLI = "1.0.0"

	// HistorySchema is the version of the run history database schema
	HistorySchema = 1
)

// Set at build time via -ldflags
var (
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// String returns the full version line printed by "mexec version"
func String() string {
	return fmt.Sprintf("mexec %s (engine %s, commit %s, built %s)", CLI, Engine, GitCommit, BuildTime)
}
