// File: severity.go
// Title: Error Severity Levels
// Description: Severity levels for errors. The logger picks its level from
//              the severity of an error passed to LogError.
// Author: msto63
// Version: v0.2.0
// Created: 2025-01-24
// Modified: 2025-02-11

package error

// Severity represents the severity level of an error
type Severity int

const (
	// SeverityLow indicates a recoverable problem, e.g. a bad command parameter
	SeverityLow Severity = iota

	// SeverityMedium indicates a failed operation the script may handle itself
	SeverityMedium

	// SeverityHigh indicates an error that terminates a script context
	SeverityHigh

	// SeverityCritical indicates an error that terminates the whole engine
	SeverityCritical
)

// String returns the string representation of the severity level
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// GetSeverityFromCode determines appropriate severity level based on error code
func GetSeverityFromCode(code Code) Severity {
	switch code {
	case CodeScriptGuardOverflow, CodeInternal:
		return SeverityCritical
	case CodeScriptStructure, CodeScriptLabelNotFound, CodeDatabaseError:
		return SeverityHigh
	case CodeScriptParameter, CodeInvalidInput, CodeNotFound:
		return SeverityLow
	default:
		return SeverityMedium
	}
}
