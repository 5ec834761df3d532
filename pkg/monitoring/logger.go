// Package monitoring provides the ambient logging facility shared by the
// HL7v2 engine's transport, routing, CDS and HTTP components.
package monitoring

import (
	"fmt"
	"os"
	"time"
)

// LogLevel represents a logging level.
type LogLevel int

const (
	// LogLevelDebug is for detailed debugging information.
	LogLevelDebug LogLevel = iota

	// LogLevelInfo is for general information.
	LogLevelInfo

	// LogLevelWarn is for warning information.
	LogLevelWarn

	// LogLevelError is for error information.
	LogLevelError

	// LogLevelFatal is for fatal errors that cause the app to exit.
	LogLevelFatal
)

var logLevelNames = map[LogLevel]string{
	LogLevelDebug: "DEBUG",
	LogLevelInfo:  "INFO",
	LogLevelWarn:  "WARN",
	LogLevelError: "ERROR",
	LogLevelFatal: "FATAL",
}

// Logger provides structured, leveled logging tagged with a component name.
type Logger struct {
	component string
	level     LogLevel
}

// NewLogger creates a new component-scoped logger.
func NewLogger(component string, level LogLevel) *Logger {
	return &Logger{
		component: component,
		level:     level,
	}
}

// log logs a message at the specified level.
func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if l == nil || level < l.level {
		return
	}

	levelStr := logLevelNames[level]
	msg := fmt.Sprintf(format, args...)

	logMsg := fmt.Sprintf(
		"%s [%s] %s: %s",
		time.Now().Format(time.RFC3339),
		levelStr,
		l.component,
		msg,
	)

	if level == LogLevelFatal {
		fmt.Fprintln(os.Stderr, logMsg)
		os.Exit(1)
	} else if level == LogLevelError {
		fmt.Fprintln(os.Stderr, logMsg)
	} else {
		fmt.Println(logMsg)
	}
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LogLevelDebug, format, args...)
}

// Info logs an info message.
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LogLevelInfo, format, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LogLevelWarn, format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LogLevelError, format, args...)
}

// Fatal logs a fatal message and exits.
func (l *Logger) Fatal(format string, args ...interface{}) {
	l.log(LogLevelFatal, format, args...)
}

// SetLevel sets the logging level.
func (l *Logger) SetLevel(level LogLevel) {
	l.level = level
}
