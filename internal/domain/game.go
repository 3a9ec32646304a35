package domain

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// GameSettings holds configurable round parameters
type GameSettings struct {
	DefaultRoundSeconds int `json:"defaultRoundSeconds"`
	MinRoundSeconds     int `json:"minRoundSeconds"`
	MaxRoundSeconds     int `json:"maxRoundSeconds"`
	MaxTypedLength      int `json:"maxTypedLength"`
}

// DefaultGameSettings returns the default game settings
func DefaultGameSettings() GameSettings {
	return GameSettings{
		DefaultRoundSeconds: 60,
		MinRoundSeconds:     5,
		MaxRoundSeconds:     300,
		MaxTypedLength:      4096,
	}
}

// Game is the authoritative state of one room. It performs no locking or I/O;
// callers serialize access.
type Game struct {
	ID           string          `json:"id"`
	Players      *PlayerRegistry `json:"-"`
	Status       Status          `json:"status"`
	Paragraph    string          `json:"paragraph,omitempty"`
	CurrentRound *Round          `json:"currentRound,omitempty"`
	RoundCount   int             `json:"roundCount"`
	Settings     GameSettings    `json:"settings"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// NewGame creates a new room with the given ID
func NewGame(id string, settings GameSettings) *Game {
	return &Game{
		ID:        id,
		Players:   NewPlayerRegistry(),
		Status:    StatusNotStarted,
		Settings:  settings,
		CreatedAt: time.Now(),
	}
}

// Join adds a player in any status. hostAssigned is true when the joiner became host.
func (g *Game) Join(playerID, name string) (player *Player, hostAssigned bool, err error) {
	if playerID == "" || name == "" {
		return nil, false, fmt.Errorf("%w: player id and name are required", ErrValidation)
	}

	player, err = g.Players.AddPlayer(playerID, name)
	if err != nil {
		return nil, false, err
	}

	return player, g.Players.HostID() == playerID, nil
}

// Leave removes a player. It returns whether the player was present and, if
// the host departed, the successor's ID. A room emptied mid-round is abandoned.
func (g *Game) Leave(playerID string) (removed bool, newHostID string, abandoned bool) {
	removed, newHostID = g.Players.RemovePlayer(playerID)
	if !removed {
		return false, "", false
	}

	if g.Players.Len() == 0 && g.Status == StatusInProgress {
		g.endRound(true)
		abandoned = true
	}

	return removed, newHostID, abandoned
}

// IsHost checks if the given player is the host
func (g *Game) IsHost(playerID string) bool {
	return playerID != "" && g.Players.HostID() == playerID
}

// ResolveDuration applies the default and bounds to a requested round length
func (g *Game) ResolveDuration(seconds int) (int, error) {
	if seconds == 0 {
		seconds = g.Settings.DefaultRoundSeconds
	}
	if seconds < g.Settings.MinRoundSeconds || seconds > g.Settings.MaxRoundSeconds {
		return 0, fmt.Errorf("%w: duration must be between %d and %d seconds",
			ErrValidation, g.Settings.MinRoundSeconds, g.Settings.MaxRoundSeconds)
	}
	return seconds, nil
}

// CheckStart validates a start request without mutating state
func (g *Game) CheckStart(invokerID string, seconds int) (int, error) {
	if g.Players.Len() == 0 {
		return 0, ErrNoPlayers
	}
	if !g.IsHost(invokerID) {
		return 0, ErrNotHost
	}
	if !g.Status.AcceptsStart() {
		return 0, ErrInvalidStatus
	}
	return g.ResolveDuration(seconds)
}

// StartRound begins a new round. pick is only called once every check has passed.
func (g *Game) StartRound(invokerID string, seconds int, pick func() string) error {
	seconds, err := g.CheckStart(invokerID, seconds)
	if err != nil {
		return err
	}

	paragraph := pick()
	if paragraph == "" {
		return fmt.Errorf("%w: empty paragraph", ErrValidation)
	}

	g.Players.ResetScores()
	g.RoundCount++
	g.CurrentRound = NewRound(g.RoundCount, paragraph, seconds)
	g.Paragraph = paragraph
	g.Status = StatusInProgress

	return nil
}

// PlayerTyped scores typed text against the active paragraph. Outside an
// active round it is a no-op and updated is false.
func (g *Game) PlayerTyped(playerID, text string) (score int, updated bool, err error) {
	if !g.Players.Has(playerID) {
		return 0, false, ErrUnknownPlayer
	}

	if g.Status != StatusInProgress {
		return 0, false, nil
	}

	if g.Settings.MaxTypedLength > 0 && utf8.RuneCountInString(text) > g.Settings.MaxTypedLength {
		return 0, false, fmt.Errorf("%w: typed text too long", ErrValidation)
	}

	score = Score(text, g.Paragraph)
	if err := g.Players.UpdateScore(playerID, score); err != nil {
		return 0, false, err
	}

	return score, true, nil
}

// Expire ends the active round when its timer reaches zero
func (g *Game) Expire() error {
	if g.Status != StatusInProgress {
		return ErrInvalidStatus
	}
	g.endRound(false)
	return nil
}

func (g *Game) endRound(abandoned bool) {
	if g.CurrentRound != nil && !g.CurrentRound.IsOver() {
		g.CurrentRound.End(abandoned)
	}
	g.Status = StatusFinished
}

// PlayerList returns a snapshot of all players in join order
func (g *Game) PlayerList() []Player {
	return g.Players.List()
}

// HostID returns the current host, or "" when the room is empty
func (g *Game) HostID() string {
	return g.Players.HostID()
}
