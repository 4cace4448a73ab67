// Package logging provides a small, nil-safe hierarchical logger used
// throughout the scanner, hasher, planner, and executor. A nil *Logger is a
// valid, fully functional (if silent) logger, so components can accept a
// logger without forcing every caller to construct one.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"log"

	"github.com/fatih/color"
)

// writer is an io.Writer that splits its input stream into lines and writes
// those lines to an underlying logger.
type writer struct {
	callback func(string)
	buffer   []byte
}

// trimCarriageReturn trims any single trailing carriage return from the end
// of a byte slice.
func trimCarriageReturn(buffer []byte) []byte {
	if len(buffer) > 0 && buffer[len(buffer)-1] == '\r' {
		return buffer[:len(buffer)-1]
	}
	return buffer
}

// Write implements io.Writer.Write.
func (w *writer) Write(buffer []byte) (int, error) {
	w.buffer = append(w.buffer, buffer...)

	var processed int
	remaining := w.buffer
	for {
		index := bytes.IndexByte(remaining, '\n')
		if index == -1 {
			break
		}
		w.callback(string(trimCarriageReturn(remaining[:index])))
		processed += index + 1
		remaining = remaining[index+1:]
	}

	if processed > 0 {
		leftover := len(w.buffer) - processed
		if leftover > 0 {
			copy(w.buffer[:leftover], w.buffer[processed:])
		}
		w.buffer = w.buffer[:leftover]
	}

	return len(buffer), nil
}

// Logger is the main logger type. It has the novel property that it still
// functions if nil, but it doesn't log anything. It uses the standard
// logger provided by the log package, so it respects any flags set for that
// logger. It is safe for concurrent usage.
type Logger struct {
	prefix string
	level  Level
}

// RootLogger is the root logger from which all other loggers derive. It logs
// at LevelInfo by default.
var RootLogger = &Logger{level: LevelInfo}

// NewLogger creates a root logger at the specified level.
func NewLogger(level Level) *Logger {
	return &Logger{level: level}
}

// Sublogger creates a new sublogger with the specified name, inheriting the
// parent's level.
func (l *Logger) Sublogger(name string) *Logger {
	if l == nil {
		return nil
	}
	prefix := name
	if l.prefix != "" {
		prefix = l.prefix + "." + name
	}
	return &Logger{prefix: prefix, level: l.level}
}

// output is the internal logging method.
func (l *Logger) output(calldepth int, line string) {
	if l.prefix != "" {
		line = fmt.Sprintf("[%s] %s", l.prefix, line)
	}
	log.Output(calldepth, line)
}

// enabled reports whether messages at the given level should be emitted.
func (l *Logger) enabled(level Level) bool {
	return l != nil && l.level >= level
}

// Info logs information with semantics equivalent to fmt.Println, gated on
// LevelInfo.
func (l *Logger) Info(v ...any) {
	if l.enabled(LevelInfo) {
		l.output(3, fmt.Sprintln(v...))
	}
}

// Infof logs information with semantics equivalent to fmt.Printf, gated on
// LevelInfo.
func (l *Logger) Infof(format string, v ...any) {
	if l.enabled(LevelInfo) {
		l.output(3, fmt.Sprintf(format, v...))
	}
}

// Debug logs information with semantics equivalent to fmt.Println, gated on
// LevelDebug.
func (l *Logger) Debug(v ...any) {
	if l.enabled(LevelDebug) {
		l.output(3, fmt.Sprintln(v...))
	}
}

// Debugf logs information with semantics equivalent to fmt.Printf, gated on
// LevelDebug.
func (l *Logger) Debugf(format string, v ...any) {
	if l.enabled(LevelDebug) {
		l.output(3, fmt.Sprintf(format, v...))
	}
}

// Warn logs a warning in yellow, gated on LevelWarn.
func (l *Logger) Warn(err error) {
	if l.enabled(LevelWarn) {
		l.output(3, color.YellowString("Warning: %v", err))
	}
}

// Warnf logs a formatted warning in yellow, gated on LevelWarn.
func (l *Logger) Warnf(format string, v ...any) {
	if l.enabled(LevelWarn) {
		l.output(3, color.YellowString("Warning: "+format, v...))
	}
}

// Error logs error information in red, gated on LevelError.
func (l *Logger) Error(err error) {
	if l.enabled(LevelError) {
		l.output(3, color.RedString("Error: %v", err))
	}
}

// Writer returns an io.Writer that writes lines using Info.
func (l *Logger) Writer() io.Writer {
	if l == nil {
		return io.Discard
	}
	return &writer{callback: func(s string) { l.Info(s) }}
}
