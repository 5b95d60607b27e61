package monitor

import (
	"sync"
	"time"

	"github.com/emrig/pulsegate/internal/domain"
)

// eventHistory is a bounded in-memory buffer that preserves FIFO ordering.
// When full, the oldest event is evicted regardless of severity. Appends come
// from a single producer (the evaluation path); reads may happen concurrently
// and always receive a consistent copy.
type eventHistory struct {
	mu   sync.Mutex
	data []domain.Event
	cap  int
}

func newEventHistory(capacity int) *eventHistory {
	if capacity <= 0 {
		capacity = defaultHistoryCapacity
	}
	return &eventHistory{
		data: make([]domain.Event, 0, capacity),
		cap:  capacity,
	}
}

// append stores the event, evicting the oldest entry beyond capacity and
// clamping the timestamp so the sequence never goes backwards.
func (h *eventHistory) append(ev domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n := len(h.data); n > 0 && ev.Timestamp.Before(h.data[n-1].Timestamp) {
		ev.Timestamp = h.data[n-1].Timestamp
	}
	if len(h.data) >= h.cap {
		h.data = append(h.data[:0], h.data[1:]...)
	}
	h.data = append(h.data, ev)
}

func (h *eventHistory) all() []domain.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domain.Event, len(h.data))
	copy(out, h.data)
	return out
}

// recent returns the newest n events in chronological order.
func (h *eventHistory) recent(n int) []domain.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n <= 0 || n > len(h.data) {
		n = len(h.data)
	}
	out := make([]domain.Event, n)
	copy(out, h.data[len(h.data)-n:])
	return out
}

func (h *eventHistory) since(cutoff time.Time) []domain.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	// History is time-ordered, so find the first event past the cutoff.
	i := len(h.data)
	for i > 0 && h.data[i-1].Timestamp.After(cutoff) {
		i--
	}
	out := make([]domain.Event, len(h.data)-i)
	copy(out, h.data[i:])
	return out
}

func (h *eventHistory) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.data)
}

func (h *eventHistory) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.data = h.data[:0]
}
