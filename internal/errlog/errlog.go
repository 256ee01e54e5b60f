// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package errlog appends human-readable failure records to a text file.
package errlog

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Log is an append-only failure log. Each Write opens the file, appends one
// line, and closes it again, so the file is never held open between
// records and concurrent writers never interleave within a line.
type Log struct {
	path string
	mu   sync.Mutex
}

// New returns a Log that appends to path. The file is created on first write.
func New(path string) *Log {
	return &Log{path: path}
}

// Write appends msg as a single line. Embedded newlines are flattened to
// spaces so one failure is always one line.
func (l *Log) Write(msg string) error {
	line := strings.ReplaceAll(strings.TrimRight(msg, "\r\n"), "\n", " ") + "\n"

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening error log %s: %w", l.path, err)
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return fmt.Errorf("writing error log %s: %w", l.path, err)
	}
	return f.Close()
}
