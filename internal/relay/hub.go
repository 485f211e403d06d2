package relay

import (
	"sync"
	"time"
)

// Hub is the registry of session rooms. It is constructed explicitly
// and owned by the app server; the package keeps no ambient connection
// state.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]*room

	clock func() time.Time
}

// NewHub returns an empty registry.
func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]*room),
		clock: time.Now,
	}
}

// Sessions reports how many sessions currently have at least one
// connected client.
func (h *Hub) Sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

// join places c in the session's room, creating the room on first use.
func (h *Hub) join(sessionID string, c *client) (displaced *client, count int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[sessionID]
	if !ok {
		r = newRoom()
		h.rooms[sessionID] = r
	}
	return r.join(c)
}

// leave detaches c and evicts the room once its last socket is gone.
// Session state survives in the store; an evicted session re-registers
// on the next connect.
func (h *Hub) leave(sessionID string, c *client) (removed bool, count int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[sessionID]
	if !ok {
		return false, 0
	}
	removed, count = r.leave(c)
	if count == 0 {
		delete(h.rooms, sessionID)
	}
	return removed, count
}

// broadcast fans msg out to the session's clients, skipping skip when
// non-nil. Per-client send failures are ignored; a dead socket is
// detached by its own read loop.
func (h *Hub) broadcast(sessionID string, msg Message, skip *client) {
	h.mu.Lock()
	r, ok := h.rooms[sessionID]
	h.mu.Unlock()
	if !ok {
		return
	}
	for _, c := range r.recipients(skip) {
		_ = c.send(msg)
	}
}

func (h *Hub) now() string {
	clock := h.clock
	if clock == nil {
		clock = time.Now
	}
	return clock().UTC().Format(time.RFC3339)
}
