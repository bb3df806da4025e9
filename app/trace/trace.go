package trace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ohler55/ojg/oj"
)

// Package trace is the engine side of the forensic log: leveled log lines
// plus the per-cell surgical trace emitted during export. Rendering and
// persisting the lines beyond the sink file is the shell's job; the engine
// only guarantees that writes are serialized and ordered.

// Level classifies a log line
type Level int

const (
	LevelUserAction Level = iota
	LevelSystem
	LevelWarning
	LevelError
	LevelTrace
)

// String returns the string representation of Level
func (l Level) String() string {
	switch l {
	case LevelUserAction:
		return "user"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelTrace:
		return "trace"
	default:
		return "system"
	}
}

// CellTrace is one surgical trace entry: the coordinates, declared type, raw
// input with its runtime type tag, and the value actually written.
type CellTrace struct {
	Row     int    `json:"row"`
	Col     int    `json:"col"`
	Column  string `json:"column"`
	Type    string `json:"type"`
	Raw     any    `json:"raw"`
	RawType string `json:"rawType"`
	Output  string `json:"output"`
	Loss    bool   `json:"loss"`
}

// Logger writes leveled lines and trace entries through one mutex-guarded
// sink. Both the analysis worker and the export worker log concurrently with
// the interactive layer, so every physical write holds the lock.
type Logger struct {
	mu      sync.Mutex
	sink    io.WriteCloser // nil when running console-only
	console io.Writer
}

// NewLogger opens the sink file in append mode. Initialization failure
// degrades to console-only logging; it never blocks the application.
func NewLogger(sinkPath string) *Logger {
	logger := &Logger{console: os.Stderr}
	if sinkPath == "" {
		return logger
	}

	if err := os.MkdirAll(filepath.Dir(sinkPath), 0o755); err == nil {
		if f, err := os.OpenFile(sinkPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			logger.sink = f
			return logger
		}
	}
	fmt.Fprintf(os.Stderr, "log sink unavailable at %s, continuing console-only\n", sinkPath)
	return logger
}

// Log writes one leveled line
func (l *Logger) Log(level Level, message string) {
	line := fmt.Sprintf("%s [%s] %s\n", time.Now().Format("2006-01-02 15:04:05"), level, message)
	l.write(line, level != LevelTrace)
}

// Logf writes one formatted leveled line
func (l *Logger) Logf(level Level, format string, args ...any) {
	l.Log(level, fmt.Sprintf(format, args...))
}

// Cell writes one surgical trace entry as a JSON line. Lossy cells are
// warning severity; clean cells stay trace-only so high row counts do not
// overwhelm interactive views.
func (l *Logger) Cell(entry CellTrace) {
	level := LevelTrace
	if entry.Loss {
		level = LevelWarning
	}
	payload, err := oj.Marshal(entry)
	if err != nil {
		l.Logf(LevelError, "failed to serialize trace entry for %s[%d,%d]: %v", entry.Column, entry.Row, entry.Col, err)
		return
	}
	line := fmt.Sprintf("%s [%s] %s\n", time.Now().Format("2006-01-02 15:04:05"), level, payload)
	l.write(line, entry.Loss)
}

// write serializes the physical write. In console-only mode trace-level
// lines are dropped so high row counts do not drown the terminal.
func (l *Logger) write(line string, important bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sink != nil {
		io.WriteString(l.sink, line)
		return
	}
	if important {
		io.WriteString(l.console, line)
	}
}

// Close releases the sink file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sink != nil {
		err := l.sink.Close()
		l.sink = nil
		return err
	}
	return nil
}
