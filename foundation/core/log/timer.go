// File: timer.go
// Title: Performance Timer
// Description: Measures an operation and logs its duration on completion.
// Author: msto63
// Version: v0.2.0
// Created: 2025-01-24
// Modified: 2025-02-11

package log

import (
	"time"
)

// Timer measures the duration of an operation
type Timer struct {
	logger    *Logger
	operation string
	startTime time.Time
	fields    Fields
	level     Level
	stopped   bool
}

// NewTimer creates a new timer for the given operation
func NewTimer(logger *Logger, operation string) *Timer {
	return &Timer{
		logger:    logger,
		operation: operation,
		startTime: time.Now(),
		fields:    make(Fields),
		level:     LevelDebug,
	}
}

// WithLevel sets the log level for the completion message
func (t *Timer) WithLevel(level Level) *Timer {
	t.level = level
	return t
}

// WithField adds a field to be logged when the timer completes
func (t *Timer) WithField(key string, value interface{}) *Timer {
	t.fields[key] = value
	return t
}

// Elapsed returns the elapsed time since the timer was started
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.startTime)
}

// Stop logs the elapsed time once. Later calls return 0.
func (t *Timer) Stop() time.Duration {
	return t.finish(nil)
}

// StopWithError logs the elapsed time together with err at error level
func (t *Timer) StopWithError(err error) time.Duration {
	return t.finish(err)
}

func (t *Timer) finish(err error) time.Duration {
	if t.stopped {
		return 0
	}
	t.stopped = true
	elapsed := t.Elapsed()

	if t.logger == nil {
		return elapsed
	}

	t.fields["operation"] = t.operation
	level, message := t.level, t.operation+" completed"
	if err != nil {
		level, message = LevelError, t.operation+" failed"
	}

	if !t.logger.IsLevelEnabled(level) {
		return elapsed
	}
	entryLogger := t.logger.WithFields(t.fields)
	entryLogger.logTimed(level, message, err, elapsed)
	return elapsed
}

func (l *Logger) logTimed(level Level, message string, err error, d time.Duration) {
	l.mutex.RLock()
	entry := NewEntry(level, message)
	entry.Logger = l.name
	entry.EngineID = l.engineID
	entry.Error = err
	entry.Duration = d
	for k, v := range l.contextFields {
		entry.Fields[k] = v
	}
	formatter, output, writeMu := l.formatter, l.output, l.writeMu
	l.mutex.RUnlock()

	if formatted, ferr := formatter.Format(entry); ferr == nil {
		writeMu.Lock()
		_, _ = output.Write(formatted)
		writeMu.Unlock()
	}
}
