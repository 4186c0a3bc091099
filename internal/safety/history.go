package safety

import (
	"sync"

	"github.com/watchher/monitoring-server/pkg/types"
)

// DefaultHistoryCapacity bounds the rolling event history.
const DefaultHistoryCapacity = 1000

// EventHistory is a fixed-capacity ring buffer of risk events. Appending to
// a full history evicts the oldest entry.
type EventHistory struct {
	mu     sync.Mutex
	events []types.RiskEvent
	head   int // index of the oldest entry
	count  int
}

// NewEventHistory creates an empty history. A non-positive capacity falls
// back to DefaultHistoryCapacity.
func NewEventHistory(capacity int) *EventHistory {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &EventHistory{
		events: make([]types.RiskEvent, capacity),
	}
}

// Capacity returns the fixed capacity.
func (h *EventHistory) Capacity() int {
	return len(h.events)
}

// Append inserts an event at the tail, evicting the oldest entry when full.
func (h *EventHistory) Append(event types.RiskEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	tail := (h.head + h.count) % len(h.events)
	h.events[tail] = event
	if h.count < len(h.events) {
		h.count++
	} else {
		h.head = (h.head + 1) % len(h.events)
	}
}

// Len returns the number of stored events.
func (h *EventHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Snapshot returns all events oldest-first.
func (h *EventHistory) Snapshot() []types.RiskEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]types.RiskEvent, h.count)
	for i := 0; i < h.count; i++ {
		out[i] = h.events[(h.head+i)%len(h.events)]
	}
	return out
}

// Clear empties the history without changing its capacity.
func (h *EventHistory) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.head = 0
	h.count = 0
}
