package evidence

import (
	"sync"

	"github.com/xkilldash9x/scalpel-qa/api/schemas"
)

// Log is the append-only evidence collection of a run. Timestamps never go
// backwards: an entry older than the last one is clamped to it.
type Log struct {
	mu      sync.Mutex
	entries []schemas.Evidence
}

func NewLog() *Log {
	return &Log{entries: make([]schemas.Evidence, 0)}
}

// Append records e and returns it as stored.
func (l *Log) Append(e schemas.Evidence) schemas.Evidence {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n := len(l.entries); n > 0 {
		if last := l.entries[n-1].Timestamp; e.Timestamp.Before(last) {
			e.Timestamp = last
		}
	}
	l.entries = append(l.entries, e)
	return e
}

// Entries returns a copy of the log in insertion order.
func (l *Log) Entries() []schemas.Evidence {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]schemas.Evidence, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
