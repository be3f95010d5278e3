// Package audit writes the append-only event log.
package audit

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// DefaultFile is the audit log file name.
const DefaultFile = "system_log.txt"

const timeLayout = "2006-01-02 15:04:05"

// Kind classifies an event.
type Kind string

// event kinds
const (
	System   Kind = "SYSTEM"
	Create   Kind = "CREATE"
	Retrieve Kind = "RETRIEVE"
	Delete   Kind = "DELETE"
	Update   Kind = "UPDATE"
	List     Kind = "LIST"
	Security Kind = "SECURITY"
	Error    Kind = "ERROR"
)

// Log writes one line per event: [YYYY-MM-DD HH:MM:SS] KIND: message.
// A nil *Log discards events.
type Log struct {
	mu    sync.Mutex
	w     io.Writer
	clock func() time.Time
}

// New creates a log writing to w with the local wall clock.
func New(w io.Writer) *Log {
	return &Log{w: w, clock: time.Now}
}

// Open opens path for appending, creating it if needed.
func Open(path string) (*Log, io.Closer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open audit log: %w", err)
	}
	return New(f), f, nil
}

// SetClock overrides the timestamp source.
func (l *Log) SetClock(now func() time.Time) {
	l.clock = now
}

// Event records a message of the given kind.
func (l *Log) Event(kind Kind, msg string) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.clock().Format(timeLayout)
	if _, err := fmt.Fprintf(l.w, "[%s] %s: %s\n", ts, kind, msg); err != nil {
		return fmt.Errorf("audit: write: %w", err)
	}
	return nil
}

// Eventf is Event with formatting.
func (l *Log) Eventf(kind Kind, format string, args ...any) error {
	return l.Event(kind, fmt.Sprintf(format, args...))
}
