package domain

import "time"

// EventType is the wire name of an outbound event
type EventType string

const (
	EventUserJoined   EventType = "user-joined"
	EventPlayerJoined EventType = "player-joined"
	EventPlayers      EventType = "players"
	EventPlayerLeft   EventType = "player-left"
	EventNewHost      EventType = "new-host"
	EventPlayerScore  EventType = "player-score"
	EventGameStarted  EventType = "game-started"
	EventGameFinished EventType = "game-finished"
	EventTimerTick    EventType = "timer-tick"
	EventError        EventType = "error"
)

// GameEvent represents an event that occurred in a room
type GameEvent struct {
	Type      EventType   `json:"type"`
	RoomID    string      `json:"roomId"`
	PlayerID  string      `json:"playerId,omitempty"` // Recipient when the event is unicast
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent creates a new room-wide event
func NewEvent(eventType EventType, roomID string, payload interface{}) *GameEvent {
	return &GameEvent{
		Type:      eventType,
		RoomID:    roomID,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// NewPlayerEvent creates an event addressed to a single connection
func NewPlayerEvent(eventType EventType, roomID, playerID string, payload interface{}) *GameEvent {
	return &GameEvent{
		Type:      eventType,
		RoomID:    roomID,
		PlayerID:  playerID,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// Payload types for different events

// UserJoinedPayload announces a joiner by display name
type UserJoinedPayload struct {
	Name string `json:"name"`
}

// PlayerScorePayload is sent whenever a player's score is recomputed
type PlayerScorePayload struct {
	ID    string `json:"id"`
	Score int    `json:"score"`
}

// TimerTickPayload is sent every second of an active round
type TimerTickPayload struct {
	SecondsRemaining int `json:"secondsRemaining"`
}
