package handoff

import (
	"sync"

	"github.com/google/uuid"
)

// selectionBuffer bounds how far a slow subscriber can lag before
// notifications are dropped. The broadcast is fire-and-forget; only the
// latest selection matters.
const selectionBuffer = 8

// Selection identifies the current item in a surface.
type Selection struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Hub fans Selection notifications out to all other open surfaces.
type Hub struct {
	mu   sync.Mutex
	subs map[string]chan Selection
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]chan Selection)}
}

// Subscribe registers a surface and returns its notification channel plus a
// cancel function that closes it.
func (h *Hub) Subscribe() (<-chan Selection, func()) {
	id := uuid.NewString()
	ch := make(chan Selection, selectionBuffer)

	h.mu.Lock()
	h.subs[id] = ch
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish notifies every subscriber that the current item changed. Sends
// never block; a subscriber with a full buffer misses the notification.
func (h *Hub) Publish(sel Selection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- sel:
		default:
		}
	}
}
