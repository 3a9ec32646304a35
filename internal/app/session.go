package app

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"typerace/internal/domain"
)

// Broadcaster delivers outbound events. Implementations must not block on
// network I/O: sessions call them while holding the room lock.
type Broadcaster interface {
	BroadcastToRoom(roomID string, event *domain.GameEvent)
	SendTo(connID string, event *domain.GameEvent)
}

// SessionConfig carries the collaborators shared by every room
type SessionConfig struct {
	Settings     domain.GameSettings
	TickInterval time.Duration
	Broadcaster  Broadcaster
	Paragraphs   ParagraphSource
	Logger       *zap.Logger
	Metrics      *Metrics
}

// RoomSnapshot is a read-only view of a room
type RoomSnapshot struct {
	RoomID           string             `json:"roomId"`
	Status           domain.Status      `json:"status"`
	HostID           string             `json:"hostId,omitempty"`
	Players          []domain.Player    `json:"players"`
	Paragraph        string             `json:"paragraph,omitempty"`
	Round            int                `json:"round"`
	SecondsRemaining int                `json:"secondsRemaining,omitempty"`
	Progress         map[string]float64 `json:"progress,omitempty"` // player ID -> fraction of paragraph typed
	LastRound        *domain.Round      `json:"lastRound,omitempty"`
}

// RoomSession wraps a game with the room's serialization point, its round
// timer and outbound delivery. Every inbound event and every timer callback
// runs under mu.
type RoomSession struct {
	game        *domain.Game
	mu          sync.Mutex
	broadcaster Broadcaster
	paragraphs  ParagraphSource
	logger      *zap.Logger
	metrics     *Metrics

	timer        *RoundTimer
	tickInterval time.Duration
	roundToken   int
	remaining    int

	lastActivity time.Time
	closed       bool
}

// NewRoomSession creates a session for a new room
func NewRoomSession(roomID string, cfg SessionConfig) *RoomSession {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RoomSession{
		game:         domain.NewGame(roomID, cfg.Settings),
		broadcaster:  cfg.Broadcaster,
		paragraphs:   cfg.Paragraphs,
		logger:       logger.With(zap.String("roomId", roomID)),
		metrics:      cfg.Metrics,
		tickInterval: cfg.TickInterval,
		lastActivity: time.Now(),
	}
}

// GetRoomID returns the room ID
func (s *RoomSession) GetRoomID() string {
	return s.game.ID
}

// GetPlayerCount returns the number of players
func (s *RoomSession) GetPlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.Players.Len()
}

// GetStatus returns the current round status
func (s *RoomSession) GetStatus() domain.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.Status
}

// Snapshot returns a copy of the room state
func (s *RoomSession) Snapshot() RoomSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := RoomSnapshot{
		RoomID:    s.game.ID,
		Status:    s.game.Status,
		HostID:    s.game.HostID(),
		Players:   s.game.PlayerList(),
		Paragraph: s.game.Paragraph,
		Round:     s.game.RoundCount,
	}
	if s.game.Status == domain.StatusInProgress {
		snap.SecondsRemaining = s.remaining
	}
	if s.game.Paragraph != "" {
		snap.Progress = make(map[string]float64, len(snap.Players))
		for _, p := range snap.Players {
			snap.Progress[p.ID] = domain.Progress(p.Score, s.game.Paragraph)
		}
	}
	if s.game.CurrentRound != nil {
		round := *s.game.CurrentRound
		snap.LastRound = &round
	}
	return snap
}

// Join adds a player. The caller must already have subscribed the
// connection to the room channel so it receives the join broadcasts.
func (s *RoomSession) Join(playerID, name string) (domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.Player{}, domain.ErrRoomClosed
	}

	player, hostAssigned, err := s.game.Join(playerID, name)
	if err != nil {
		return domain.Player{}, err
	}

	s.touch()
	if s.metrics != nil {
		s.metrics.ConnectedPlayers.Inc()
	}
	s.logger.Info("player joined", zap.String("playerId", playerID), zap.String("name", name))

	s.broadcast(domain.EventPlayerJoined, *player)
	s.broadcast(domain.EventUserJoined, &domain.UserJoinedPayload{Name: player.Name})
	if hostAssigned {
		s.broadcast(domain.EventNewHost, playerID)
	}

	// Initial sync for the joiner
	s.sendTo(playerID, domain.EventPlayers, s.game.PlayerList())
	if !hostAssigned {
		s.sendTo(playerID, domain.EventNewHost, s.game.HostID())
	}
	if s.game.Status == domain.StatusInProgress {
		s.sendTo(playerID, domain.EventGameStarted, s.game.Paragraph)
		s.sendTo(playerID, domain.EventTimerTick, &domain.TimerTickPayload{SecondsRemaining: s.remaining})
	}

	return *player, nil
}

// Leave removes a player. It returns false when the player was not in the room.
func (s *RoomSession) Leave(playerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed, newHostID, abandoned := s.game.Leave(playerID)
	if !removed {
		return false
	}

	s.touch()
	if s.metrics != nil {
		s.metrics.ConnectedPlayers.Dec()
	}
	s.logger.Info("player left", zap.String("playerId", playerID))

	if abandoned {
		s.stopTimer()
		if s.metrics != nil {
			s.metrics.RoundsAbandoned.Inc()
		}
		s.logger.Info("round abandoned", zap.Int("round", s.game.RoundCount))
	}

	if s.game.Players.Len() == 0 {
		return true
	}

	s.broadcast(domain.EventPlayerLeft, playerID)
	if newHostID != "" {
		s.logger.Info("host migrated", zap.String("hostId", newHostID))
		s.broadcast(domain.EventNewHost, newHostID)
	}

	return true
}

// Start begins a round on behalf of playerID (host only)
func (s *RoomSession) Start(playerID string, durationSeconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.game.StartRound(playerID, durationSeconds, s.paragraphs.PickParagraph); err != nil {
		return err
	}

	s.touch()
	round := s.game.CurrentRound
	s.roundToken++
	token := s.roundToken
	s.remaining = round.DurationSeconds

	if s.metrics != nil {
		s.metrics.RoundsStarted.Inc()
	}
	s.logger.Info("round started",
		zap.Int("round", round.Number),
		zap.Int("durationSeconds", round.DurationSeconds),
	)

	s.broadcast(domain.EventPlayers, s.game.PlayerList())
	s.broadcast(domain.EventGameStarted, round.Paragraph)

	s.timer = NewRoundTimer(s.tickInterval)
	s.timer.Start(round.DurationSeconds,
		func(remaining int) { s.onTick(token, remaining) },
		func() { s.onExpire(token) },
	)

	return nil
}

// PlayerTyped scores a player's current text and broadcasts the new score
func (s *RoomSession) PlayerTyped(playerID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	score, updated, err := s.game.PlayerTyped(playerID, text)
	if err != nil || !updated {
		return err
	}

	s.touch()
	s.broadcast(domain.EventPlayerScore, &domain.PlayerScorePayload{ID: playerID, Score: score})
	return nil
}

// ReportTimer records a client's countdown value. It never affects the round.
func (s *RoomSession) ReportTimer(playerID string, secondsRemaining int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.game.Players.Has(playerID) {
		return domain.ErrUnknownPlayer
	}
	if s.game.Status != domain.StatusInProgress {
		return nil
	}

	drift := secondsRemaining - s.remaining
	if drift < 0 {
		drift = -drift
	}
	if s.metrics != nil {
		s.metrics.TimerDrift.Observe(float64(drift))
	}
	s.logger.Debug("client timer report",
		zap.String("playerId", playerID),
		zap.Int("client", secondsRemaining),
		zap.Int("server", s.remaining),
	)
	return nil
}

// onTick runs on the timer goroutine
func (s *RoomSession) onTick(token, remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.roundLive(token) {
		return
	}

	s.remaining = remaining
	s.broadcast(domain.EventTimerTick, &domain.TimerTickPayload{SecondsRemaining: remaining})
}

// onExpire runs on the timer goroutine
func (s *RoomSession) onExpire(token int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.roundLive(token) {
		return
	}

	if err := s.game.Expire(); err != nil {
		s.logger.Error("failed to end round", zap.Error(err))
		return
	}

	s.timer = nil
	s.remaining = 0
	s.touch()
	if s.metrics != nil {
		s.metrics.RoundsFinished.Inc()
	}
	s.logger.Info("round finished", zap.Int("round", s.game.RoundCount))

	s.broadcast(domain.EventGameFinished, nil)
}

// roundLive reports whether a timer callback still belongs to the active
// round of a non-empty room. Caller must hold mu.
func (s *RoomSession) roundLive(token int) bool {
	return !s.closed &&
		token == s.roundToken &&
		s.game.Status == domain.StatusInProgress &&
		s.game.Players.Len() > 0
}

// CloseIfIdle closes the session when it has no players and has seen no
// activity for ttl. It reports whether the session is now closed.
func (s *RoomSession) CloseIfIdle(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return true
	}
	if s.game.Players.Len() > 0 || now.Sub(s.lastActivity) < ttl {
		return false
	}

	s.closeLocked()
	return true
}

// Close shuts down the session
func (s *RoomSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *RoomSession) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	s.stopTimer()
}

// stopTimer cancels the active round timer. Caller must hold mu.
func (s *RoomSession) stopTimer() {
	if s.timer != nil {
		s.timer.Cancel()
		s.timer = nil
	}
}

func (s *RoomSession) touch() {
	s.lastActivity = time.Now()
}

func (s *RoomSession) broadcast(eventType domain.EventType, payload interface{}) {
	s.broadcaster.BroadcastToRoom(s.game.ID, domain.NewEvent(eventType, s.game.ID, payload))
}

func (s *RoomSession) sendTo(playerID string, eventType domain.EventType, payload interface{}) {
	s.broadcaster.SendTo(playerID, domain.NewPlayerEvent(eventType, s.game.ID, playerID, payload))
}
