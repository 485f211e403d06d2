package relay

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"golang.org/x/net/websocket"
)

// Handler returns the websocket endpoint. Connections identify
// themselves with sessionId, playerId, and playerName query parameters.
func (h *Hub) Handler() http.Handler {
	ws := websocket.Handler(h.serve)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if _, err := connParams(r); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		ws.ServeHTTP(w, r)
	})
}

type identity struct {
	sessionID  string
	playerID   string
	playerName string
}

func connParams(r *http.Request) (identity, error) {
	q := r.URL.Query()
	id := identity{
		sessionID:  strings.TrimSpace(q.Get("sessionId")),
		playerID:   strings.TrimSpace(q.Get("playerId")),
		playerName: strings.TrimSpace(q.Get("playerName")),
	}
	switch {
	case id.sessionID == "":
		return identity{}, errors.New("sessionId query parameter is required")
	case id.playerID == "":
		return identity{}, errors.New("playerId query parameter is required")
	case id.playerName == "":
		return identity{}, errors.New("playerName query parameter is required")
	}
	return id, nil
}

func (h *Hub) serve(conn *websocket.Conn) {
	defer func() { _ = conn.Close() }()

	id, err := connParams(conn.Request())
	if err != nil {
		return
	}

	c := newClient(id.playerID, id.playerName, conn)
	displaced, count := h.join(id.sessionID, c)
	if displaced != nil {
		displaced.close()
		log.Printf("relay: replaced stale socket for player %s in session %s", id.playerID, id.sessionID)
	}

	_ = c.send(Message{
		"type":             TypeConnected,
		"playerId":         c.playerID,
		"playerName":       c.playerName,
		"connectedPlayers": count,
		"timestamp":        h.now(),
	})
	h.broadcast(id.sessionID, Message{
		"type":             TypePlayerJoined,
		"playerId":         c.playerID,
		"playerName":       c.playerName,
		"connectedPlayers": count,
		"timestamp":        h.now(),
	}, c)
	defer h.detach(id.sessionID, c)

	decoder := json.NewDecoder(conn)
	decodeErrors := 0
	for {
		var msg Message
		if err := decoder.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			decodeErrors++
			_ = c.send(Message{
				"type":      TypeError,
				"message":   "invalid message payload",
				"timestamp": h.now(),
			})
			if decodeErrors >= maxDecodeErrorsPerConn {
				log.Printf("relay: dropping player %s in session %s after repeated bad frames", id.playerID, id.sessionID)
				return
			}
			continue
		}
		decodeErrors = 0
		if msg == nil {
			continue
		}
		h.dispatch(id.sessionID, c, msg)
	}
}

// dispatch routes one inbound message. In-progress signals skip the
// sender; authoritative confirmations and unrecognized types reach the
// whole session so every client converges on the same event stream.
func (h *Hub) dispatch(sessionID string, sender *client, msg Message) {
	msgType := msg.Type()
	if msgType == TypePing {
		_ = sender.send(Message{"type": TypePong, "timestamp": h.now()})
		return
	}
	msg["timestamp"] = h.now()
	if excludeSenderTypes[msgType] {
		h.broadcast(sessionID, msg, sender)
		return
	}
	h.broadcast(sessionID, msg, nil)
}

// detach runs when a read loop ends. A socket displaced by a reconnect
// is already out of the room and announces nothing.
func (h *Hub) detach(sessionID string, c *client) {
	removed, count := h.leave(sessionID, c)
	if !removed {
		return
	}
	h.broadcast(sessionID, Message{
		"type":             TypePlayerLeft,
		"playerId":         c.playerID,
		"playerName":       c.playerName,
		"connectedPlayers": count,
		"timestamp":        h.now(),
	}, nil)
}
