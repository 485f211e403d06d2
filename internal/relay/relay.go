// Package relay fans websocket messages out to the connected players
// of a game session.
//
// The relay carries no game state. Clients announce events as they act
// (theme picked, recording started, guess submitted) and the relay
// forwards each one to the rest of the session by a per-type routing
// rule. Delivery is best effort with no queuing or replay; the
// refresh_game_state broadcast tells every client to re-read
// authoritative state from the game API.
package relay

// Message is the wire envelope: a flat JSON object with a type field
// plus whatever payload fields the sender attached. The relay stamps a
// server-side timestamp on every message it forwards.
type Message map[string]any

// Type returns the message type, or "" when absent or not a string.
func (m Message) Type() string {
	t, _ := m["type"].(string)
	return t
}

// Messages originated by the relay itself.
const (
	TypeConnected    = "connected"
	TypePlayerJoined = "player_joined"
	TypePlayerLeft   = "player_left"
	TypePong         = "pong"
	TypeError        = "error"
)

// TypePing is answered directly with a pong instead of being relayed.
const TypePing = "ping"

// excludeSenderTypes are in-progress signals relayed to everyone except
// the sender, who already knows its own local state. Authoritative
// confirmations (theme_selected, story_submitted, recording_uploaded,
// guess_submitted, correct_answer, score_updated, game_completed,
// next_turn, turn_completed, refresh_game_state) and unrecognized types
// reach the whole session, sender included.
var excludeSenderTypes = map[string]bool{
	"recording_started":       true,
	"recording_stopped":       true,
	"secret_element_selected": true,
	"elements_generated":      true,
}

// maxDecodeErrorsPerConn caps consecutive malformed frames tolerated
// before the socket is dropped.
const maxDecodeErrorsPerConn = 3
