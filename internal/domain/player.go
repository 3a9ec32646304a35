package domain

import "time"

// Player represents a connection taking part in a room
type Player struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Score    int       `json:"score"`
	IsHost   bool      `json:"isHost"`
	JoinedAt time.Time `json:"joinedAt"`
}

// NewPlayer creates a new player with the given connection ID and display name
func NewPlayer(id, name string) *Player {
	return &Player{
		ID:       id,
		Name:     name,
		Score:    0,
		JoinedAt: time.Now(),
	}
}

// ResetForNewRound clears the player's score for a new round
func (p *Player) ResetForNewRound() {
	p.Score = 0
}
