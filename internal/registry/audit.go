package registry

import (
	"sync"

	"github.com/alfredjeanlab/parkgate/internal/model"
)

// DefaultAuditCapacity is how many admin audit entries are retained.
const DefaultAuditCapacity = 50

// AuditLog is a bounded, newest-first log of administrative actions.
// When full, adding an entry drops the oldest one.
type AuditLog struct {
	mu       sync.RWMutex
	entries  []model.AuditEntry
	capacity int

	watchers watcherSet
}

// NewAuditLog creates a log holding at most capacity entries.
// A non-positive capacity selects DefaultAuditCapacity.
func NewAuditLog(capacity int) *AuditLog {
	if capacity <= 0 {
		capacity = DefaultAuditCapacity
	}
	return &AuditLog{capacity: capacity}
}

// Add prepends an entry.
func (l *AuditLog) Add(e model.AuditEntry) {
	l.mu.Lock()
	n := len(l.entries) + 1
	if n > l.capacity {
		n = l.capacity
	}
	next := make([]model.AuditEntry, n)
	next[0] = e
	copy(next[1:], l.entries)
	l.entries = next
	l.mu.Unlock()

	l.watchers.notify()
}

// Entries returns a copy of the log, newest first.
func (l *AuditLog) Entries() []model.AuditEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]model.AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of retained entries.
func (l *AuditLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Watch behaves like Registry.Watch.
func (l *AuditLog) Watch() (<-chan struct{}, func()) {
	return l.watchers.add()
}
