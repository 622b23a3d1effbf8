// Package logsink provides the leveled text log shown to the user.
package logsink

import (
	"fmt"
	"log"
	"strings"
	"sync"
)

// Level is the severity prefix of a line.
type Level string

const (
	LevelLog   Level = "LOG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Entry is one formatted line.
type Entry struct {
	Level Level
	Line  string
}

// String renders the entry as "[LEVEL] message".
func (e Entry) String() string {
	return "[" + string(e.Level) + "] " + e.Line
}

// Logger writes one line per message and fans each entry out to subscribers.
type Logger struct {
	out *log.Logger

	mu     sync.RWMutex
	subs   map[int]func(Entry)
	nextID int
}

// New creates a Logger writing to out, or to the standard logger when out is nil
func New(out *log.Logger) *Logger {
	if out == nil {
		out = log.Default()
	}
	return &Logger{out: out, subs: make(map[int]func(Entry))}
}

// Log writes a plain progress line
func (l *Logger) Log(format string, args ...any) { l.write(LevelLog, format, args...) }

// Info writes an informational line
func (l *Logger) Info(format string, args ...any) { l.write(LevelInfo, format, args...) }

// Warn writes a recoverable problem
func (l *Logger) Warn(format string, args ...any) { l.write(LevelWarn, format, args...) }

// Error writes a user-visible failure
func (l *Logger) Error(format string, args ...any) { l.write(LevelError, format, args...) }

// Subscribe registers fn for every later entry and returns a func that
// removes it. fn runs on the logging goroutine and must not block.
func (l *Logger) Subscribe(fn func(Entry)) (unsubscribe func()) {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.subs[id] = fn
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		delete(l.subs, id)
		l.mu.Unlock()
	}
}

func (l *Logger) write(level Level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	// Keep one line per message.
	msg = strings.ReplaceAll(strings.TrimRight(msg, "\n"), "\n", " ")
	e := Entry{Level: level, Line: msg}

	l.out.Print(e.String())

	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, fn := range l.subs {
		fn(e)
	}
}
