package events

import (
	"encoding/json"
	"time"
)

// Client → server message types.
const (
	TypeReady = "ready"
	TypeShoot = "shoot"
)

// Server → client message types.
const (
	TypeWelcome = "welcome"
	TypeState   = "state"
	TypeFull    = "full"
	TypeResult  = "result"
)

// ClientMessage is the JSON structure received from clients.
type ClientMessage struct {
	Type string `json:"t"`
}

// ServerMessage is the JSON structure sent to clients.
type ServerMessage struct {
	Type    string          `json:"t"`
	Payload json.RawMessage `json:"p,omitempty"`
}

// Encode builds a ServerMessage with payload marshalled to JSON. A nil
// payload produces a message with no "p" field.
func Encode(msgType string, payload any) (ServerMessage, error) {
	msg := ServerMessage{Type: msgType}
	if payload == nil {
		return msg, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return msg, err
	}
	msg.Payload = raw
	return msg, nil
}

// Welcome tells a freshly joined client which replication key is its own.
type Welcome struct {
	ID       string `json:"id"`
	Room     string `json:"room"`
	Username string `json:"username"`
}

type ShotResult struct {
	Username     string `json:"username"`
	ReactionTime int64  `json:"reactionTime"`
}

// RoundResult describes one resolved round. Winner is empty when nobody won.
type RoundResult struct {
	Room       string        `json:"room"`
	Players    [2]ShotResult `json:"players"`
	Winner     string        `json:"winner,omitempty"`
	EarlyShot  bool          `json:"earlyShot"`
	ResolvedAt time.Time     `json:"resolvedAt"`
}
