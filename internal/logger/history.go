package logger

import (
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// History keeps the most recent log lines in memory so operator commands
// can replay them without touching the log files. Implemented as a logrus
// hook on Info and above.
type History struct {
	mu      sync.Mutex
	entries []string
	size    int
}

// NewHistory creates a ring of the given capacity
func NewHistory(size int) *History {
	return &History{
		entries: make([]string, 0, size),
		size:    size,
	}
}

// Levels implements logrus.Hook
func (h *History) Levels() []logrus.Level {
	return []logrus.Level{
		logrus.InfoLevel,
		logrus.WarnLevel,
		logrus.ErrorLevel,
		logrus.FatalLevel,
		logrus.PanicLevel,
	}
}

// Fire implements logrus.Hook
func (h *History) Fire(entry *logrus.Entry) error {
	line := fmt.Sprintf("[%s] %s", entry.Time.Format("15:04:05"), entry.Message)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, line)
	if len(h.entries) > h.size {
		h.entries = h.entries[len(h.entries)-h.size:]
	}
	return nil
}

// Tail returns the retained lines, oldest first
func (h *History) Tail() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}

// String renders the tail as a single block for chat output
func (h *History) String() string {
	return strings.Join(h.Tail(), "\n")
}
