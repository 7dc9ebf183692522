package notice

import "sync"

// History keeps the most recent notices, dropping the oldest once full.
type History struct {
	notices  []Notice
	capacity int
	mu       sync.RWMutex
}

// NewHistory creates a history with the given capacity.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{
		notices:  make([]Notice, 0, capacity),
		capacity: capacity,
	}
}

// All returns a copy of all retained notices, oldest first.
func (h *History) All() []Notice {
	h.mu.RLock()
	defer h.mu.RUnlock()

	notices := make([]Notice, len(h.notices))
	copy(notices, h.notices)
	return notices
}

// Store appends a notice.
func (h *History) Store(n Notice) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.notices = append(h.notices, n)
	if len(h.notices) > h.capacity {
		h.notices = h.notices[1:]
	}
}

// Last returns up to n of the most recent notices, oldest first.
func (h *History) Last(n int) []Notice {
	h.mu.RLock()
	defer h.mu.RUnlock()

	start := len(h.notices) - n
	if start < 0 {
		start = 0
	}
	notices := make([]Notice, len(h.notices)-start)
	copy(notices, h.notices[start:])
	return notices
}

// Reset drops all notices.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notices = h.notices[:0]
}
