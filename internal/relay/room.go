package relay

import (
	"encoding/json"
	"sync"

	"golang.org/x/net/websocket"
)

// client is one live socket for a player. The mutex serializes frame
// writes so concurrent fan-out cannot interleave bytes on the wire.
type client struct {
	playerID   string
	playerName string
	conn       *websocket.Conn

	mu      sync.Mutex
	encoder *json.Encoder
}

func newClient(playerID, playerName string, conn *websocket.Conn) *client {
	return &client{
		playerID:   playerID,
		playerName: playerName,
		conn:       conn,
		encoder:    json.NewEncoder(conn),
	}
}

func (c *client) send(msg Message) error {
	if c == nil || c.encoder == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.encoder.Encode(msg)
}

func (c *client) close() {
	if c == nil || c.conn == nil {
		return
	}
	_ = c.conn.Close()
}

// room holds the live sockets of one session keyed by player id, so a
// reconnecting player replaces its stale socket instead of appearing
// twice.
type room struct {
	mu      sync.Mutex
	clients map[string]*client
}

func newRoom() *room {
	return &room{clients: make(map[string]*client)}
}

// join registers c and reports the stale socket it displaced, if any,
// along with the connected count after joining.
func (r *room) join(c *client) (displaced *client, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	displaced = r.clients[c.playerID]
	r.clients[c.playerID] = c
	return displaced, len(r.clients)
}

// leave removes c only while it is still the registered socket for its
// player. A displaced socket's deferred leave must not evict its
// replacement.
func (r *room) leave(c *client) (removed bool, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.clients[c.playerID] != c {
		return false, len(r.clients)
	}
	delete(r.clients, c.playerID)
	return true, len(r.clients)
}

// recipients snapshots the membership minus skip so sends can run
// outside the lock. Pass nil to address every client.
func (r *room) recipients(skip *client) []*client {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*client, 0, len(r.clients))
	for _, c := range r.clients {
		if c == skip {
			continue
		}
		out = append(out, c)
	}
	return out
}
