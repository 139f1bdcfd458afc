package rpc

import (
	"sync"

	"liqmine/core/events"
)

// StoredEvent is the wire form of a buffered module event.
type StoredEvent struct {
	Sequence   uint64            `json:"sequence"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// EventBuffer retains the most recent module events for RPC consumers. It
// implements events.Emitter and keeps a bounded ring; older events are
// discarded once the capacity is exceeded.
type EventBuffer struct {
	mu       sync.Mutex
	capacity int
	next     uint64
	entries  []StoredEvent
}

const defaultEventCapacity = 1024

// NewEventBuffer creates a buffer retaining up to capacity events.
func NewEventBuffer(capacity int) *EventBuffer {
	if capacity <= 0 {
		capacity = defaultEventCapacity
	}
	return &EventBuffer{capacity: capacity}
}

// Emit implements events.Emitter.
func (b *EventBuffer) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	rendered := evt.Event()
	if rendered == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	b.entries = append(b.entries, StoredEvent{
		Sequence:   b.next,
		Type:       rendered.Type,
		Attributes: rendered.Attributes,
	})
	if len(b.entries) > b.capacity {
		b.entries = b.entries[len(b.entries)-b.capacity:]
	}
}

// Events returns up to limit events with sequence numbers greater than after,
// oldest first. A non-positive limit returns everything retained.
func (b *EventBuffer) Events(after uint64, limit int) []StoredEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]StoredEvent, 0, len(b.entries))
	for _, entry := range b.entries {
		if entry.Sequence <= after {
			continue
		}
		out = append(out, entry)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
