package domain

import "time"

// Round represents a single timed typing contest within a room
type Round struct {
	Number          int       `json:"number"`
	Paragraph       string    `json:"paragraph"`
	DurationSeconds int       `json:"durationSeconds"`
	StartedAt       time.Time `json:"startedAt"`
	EndedAt         time.Time `json:"endedAt,omitempty"`
	Abandoned       bool      `json:"abandoned,omitempty"`
}

// NewRound creates a new round with the given parameters
func NewRound(number int, paragraph string, durationSeconds int) *Round {
	return &Round{
		Number:          number,
		Paragraph:       paragraph,
		DurationSeconds: durationSeconds,
		StartedAt:       time.Now(),
	}
}

// End marks the round as finished
func (r *Round) End(abandoned bool) {
	r.EndedAt = time.Now()
	r.Abandoned = abandoned
}

// IsOver returns true once the round has ended
func (r *Round) IsOver() bool {
	return !r.EndedAt.IsZero()
}
