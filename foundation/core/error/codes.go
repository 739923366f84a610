// File: codes.go
// Title: Error Code Definitions
// Description: Defines the error codes used across mExec. Script errors are
//              split into parameter, structural, guard-overflow, handler and
//              abort classes so callers can react to the class of a failure
//              without parsing messages.
// Author: msto63
// Version: v0.2.0
// Created: 2025-01-24
// Modified: 2025-02-11
//
// Change History:
// - 2025-01-24 v0.1.0: Initial implementation with core error codes
// - 2025-02-11 v0.2.0: Script engine error classes

package error

// Code represents a structured error code for categorizing errors
type Code string

const (
	// General
	CodeUnknown      Code = "UNKNOWN"
	CodeInternal     Code = "INTERNAL"
	CodeNotFound     Code = "NOT_FOUND"
	CodeInvalidInput Code = "INVALID_INPUT"
	CodeTimeout      Code = "TIMEOUT"

	// Storage
	CodeDatabaseError Code = "DATABASE_ERROR"

	// Configuration
	CodeConfigError   Code = "CONFIG_ERROR"
	CodeInvalidConfig Code = "INVALID_CONFIG"

	// Script execution
	CodeScriptParameter     Code = "SCRIPT_PARAMETER"
	CodeScriptStructure     Code = "SCRIPT_STRUCTURE"
	CodeScriptLabelNotFound Code = "SCRIPT_LABEL_NOT_FOUND"
	CodeScriptGuardOverflow Code = "SCRIPT_GUARD_OVERFLOW"
	CodeScriptCommandFailed Code = "SCRIPT_COMMAND_FAILED"
	CodeScriptAborted       Code = "SCRIPT_ABORTED"

	// Child processes
	CodeProcessRunning Code = "PROCESS_RUNNING"
	CodeProcessFailed  Code = "PROCESS_FAILED"
)

// String returns the string representation of the error code
func (c Code) String() string {
	return string(c)
}

// Category returns the category of the error code
func (c Code) Category() string {
	switch c {
	case CodeDatabaseError:
		return "storage"
	case CodeConfigError, CodeInvalidConfig:
		return "config"
	case CodeScriptParameter, CodeScriptStructure, CodeScriptLabelNotFound,
		CodeScriptGuardOverflow, CodeScriptCommandFailed, CodeScriptAborted:
		return "script"
	case CodeProcessRunning, CodeProcessFailed:
		return "process"
	default:
		return "general"
	}
}

// IsFatal reports whether a script error of this code ends the script
// context it occurred in.
func (c Code) IsFatal() bool {
	switch c {
	case CodeScriptStructure, CodeScriptLabelNotFound, CodeScriptGuardOverflow, CodeScriptAborted:
		return true
	default:
		return false
	}
}
