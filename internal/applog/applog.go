// Package applog provides the application logger. The interactive UI owns
// the terminal, so log lines go to an optional file and into a small ring
// buffer that the UI's log pane reads back with Tail.
package applog

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = []string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel reads a level name from configuration. Unknown names fall
// back to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// ringSize is the number of recent lines kept for the log pane.
const ringSize = 256

type Logger struct {
	mu     sync.Mutex
	level  Level
	output *os.File
	ring   []string
}

// New creates a logger. An empty path keeps the ring buffer only, which
// is the normal interactive mode.
func New(path string, level Level) (*Logger, error) {
	l := &Logger{
		level: level,
		ring:  make([]string, 0, ringSize),
	}
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		l.output = f
	}
	return l, nil
}

func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}

func (l *Logger) log(lvl Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lvl < l.level {
		return
	}

	msg := fmt.Sprintf(format, args...)
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	line := fmt.Sprintf("[%s] [%s] %s", timestamp, levelNames[lvl], msg)

	if len(l.ring) == ringSize {
		copy(l.ring, l.ring[1:])
		l.ring[len(l.ring)-1] = line
	} else {
		l.ring = append(l.ring, line)
	}

	if l.output != nil {
		fmt.Fprintln(l.output, line)
	}
}

// Tail returns up to n of the most recent lines, oldest first. n <= 0
// returns everything the ring holds.
func (l *Logger) Tail(n int) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 || n > len(l.ring) {
		n = len(l.ring)
	}
	out := make([]string, n)
	copy(out, l.ring[len(l.ring)-n:])
	return out
}

// Close closes the log file when one is open.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.output == nil {
		return nil
	}
	err := l.output.Close()
	l.output = nil
	return err
}
