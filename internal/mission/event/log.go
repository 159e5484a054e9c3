package event

import "sync"

// DefaultLogCap bounds the in-memory event log. Oldest events are evicted
// first once the cap is exceeded.
const DefaultLogCap = 10000

// Log is a bounded, append-only, FIFO-evicting event log. It is safe for
// concurrent use.
type Log struct {
	mu     sync.Mutex
	cap    int
	events []Event
}

// NewLog creates a log bounded at cap events. A cap of zero or less uses
// DefaultLogCap.
func NewLog(cap int) *Log {
	if cap <= 0 {
		cap = DefaultLogCap
	}
	return &Log{cap: cap}
}

// Emit appends an event, evicting the oldest entry when the cap is exceeded.
func (l *Log) Emit(evt Event) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, evt)
	if len(l.events) > l.cap {
		l.events = l.events[len(l.events)-l.cap:]
	}
}

// Events returns a copy of the retained events, oldest first.
func (l *Log) Events() []Event {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Len returns the number of retained events.
func (l *Log) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

var _ Sink = (*Log)(nil)
