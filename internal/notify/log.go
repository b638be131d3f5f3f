// Package notify keeps a bounded, process-local log of cage stage changes.
package notify

import (
	"sync"

	"github.com/rpattn/cagetrack/internal/domain"
)

// DefaultCapacity is the number of events kept when no capacity is configured.
const DefaultCapacity = 500

// Log is a fixed-capacity buffer of stage change events, newest first.
// Append and reads are serialized by a single mutex. Contents are lost on restart.
type Log struct {
	mu     sync.Mutex
	events []domain.StageChangeEvent
	head   int // index of the next slot to write
	size   int
}

// NewLog creates a log holding at most capacity events. Non-positive capacities use DefaultCapacity.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{events: make([]domain.StageChangeEvent, capacity)}
}

// Capacity returns the maximum number of retained events.
func (l *Log) Capacity() int {
	return len(l.events)
}

// Append records event as the newest entry, evicting the oldest when full.
func (l *Log) Append(event domain.StageChangeEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events[l.head] = event
	l.head = (l.head + 1) % len(l.events)
	if l.size < len(l.events) {
		l.size++
	}
}

// Recent returns up to limit events, newest first. The log is not modified.
func (l *Log) Recent(limit int) []domain.StageChangeEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 || l.size == 0 {
		return []domain.StageChangeEvent{}
	}
	if limit > l.size {
		limit = l.size
	}
	out := make([]domain.StageChangeEvent, 0, limit)
	capacity := len(l.events)
	for i := 1; i <= limit; i++ {
		out = append(out, l.events[(l.head-i+capacity)%capacity])
	}
	return out
}

// Len returns the number of retained events.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}

// Clear drops every retained event.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	clear(l.events)
	l.head = 0
	l.size = 0
}
