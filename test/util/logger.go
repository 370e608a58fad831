package util

import (
	"fmt"
	"strings"
	"sync"

	"github.com/kilianp07/fleetsched/core/logger"
)

// RecordingLogger keeps warnings in memory so tests can assert on them.
type RecordingLogger struct {
	logger.NopLogger
	mu    sync.Mutex
	warns []string
}

func (l *RecordingLogger) Warnf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, fmt.Sprintf(format, args...))
}

// Warnings returns a copy of the recorded warnings.
func (l *RecordingLogger) Warnings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warns...)
}

// Warned reports whether any warning contains sub.
func (l *RecordingLogger) Warned(sub string) bool {
	for _, w := range l.Warnings() {
		if strings.Contains(w, sub) {
			return true
		}
	}
	return false
}
