package ws

import (
	"encoding/json"
	"time"
)

// ClientMessage represents a message from client to server
type ClientMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ServerMessage represents a message from server to client
type ServerMessage struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// NewServerMessage creates a new server message with current timestamp
func NewServerMessage(event string, data interface{}) *ServerMessage {
	return &ServerMessage{
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Transport-level events handled without reaching the dispatcher
const (
	MsgPing = "ping"
	MsgPong = "pong"
)

// Client message payloads

// JoinGamePayload is the payload for join-game
type JoinGamePayload struct {
	RoomID string `json:"roomId"`
	Name   string `json:"name"`
}

// StartGamePayload is the payload for start-game
type StartGamePayload struct {
	DurationSeconds int `json:"durationSeconds"`
}

// PlayerTypedPayload is the payload for player-typed
type PlayerTypedPayload struct {
	Text string `json:"text"`
}

// TimerUpdatePayload is the payload for timer-update
type TimerUpdatePayload struct {
	SecondsRemaining int `json:"secondsRemaining"`
}
