// Package log provides structured logging for mExec.
//
// Package: log
// Title: mExec Structured Logging
// Description: Leveled, field-based logging with JSON, text, logfmt and
//              colored console output. Errors from the mExec error package
//              are logged at a level derived from their severity.
// Author: msto63
// Version: v0.2.0
// Created: 2025-01-24
// Modified: 2025-02-11
//
// Change History:
// - 2025-01-24 v0.1.0: Initial implementation with structured logging and error integration
// - 2025-02-11 v0.2.0: Engine scoped fields, lipgloss console colors, async mode removed
//
// Usage:
//
//	import mdwlog "github.com/msto63/mExec/foundation/core/log"
//
//	logger := mdwlog.GetDefault().WithField("component", "engine")
//	logger.Info("script started", mdwlog.Fields{"script": "build", "lines": 12})
//
//	timer := logger.StartTimer("script.run")
//	defer timer.Stop()
//
// Audit entries are written regardless of the configured level. The engine
// uses them for ABORT requests and guard overflows.
package log
