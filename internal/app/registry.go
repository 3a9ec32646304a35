package app

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"typerace/internal/domain"
)

// RoomRegistry maps room IDs to their sessions for the lifetime of the process
type RoomRegistry struct {
	sessions map[string]*RoomSession
	mu       sync.RWMutex
	config   SessionConfig
	logger   *zap.Logger
	metrics  *Metrics
}

// NewRoomRegistry creates an empty registry. cfg is shared by every room it creates.
func NewRoomRegistry(cfg SessionConfig) *RoomRegistry {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
		cfg.Logger = logger
	}

	return &RoomRegistry{
		sessions: make(map[string]*RoomSession),
		config:   cfg,
		logger:   logger,
		metrics:  cfg.Metrics,
	}
}

// GetOrCreate returns the session for roomID, creating it if absent.
// Insert-if-absent is atomic: concurrent callers always share one session.
func (r *RoomRegistry) GetOrCreate(roomID string) (*RoomSession, bool) {
	r.mu.RLock()
	session, ok := r.sessions[roomID]
	r.mu.RUnlock()
	if ok {
		return session, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if session, ok := r.sessions[roomID]; ok {
		return session, false
	}

	session = NewRoomSession(roomID, r.config)
	r.sessions[roomID] = session
	r.updateRoomGauge()

	r.logger.Info("room created", zap.String("roomId", roomID))

	return session, true
}

// GetSession returns a room session by ID
func (r *RoomRegistry) GetSession(roomID string) (*RoomSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}

	return session, nil
}

// GetSessionCount returns the number of rooms
func (r *RoomRegistry) GetSessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// GetTotalPlayerCount returns the total number of players across all rooms
func (r *RoomRegistry) GetTotalPlayerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, session := range r.sessions {
		total += session.GetPlayerCount()
	}
	return total
}

// Discard drops session from the registry if it is still the entry for roomID
func (r *RoomRegistry) Discard(roomID string, session *RoomSession) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.sessions[roomID]; ok && current == session {
		delete(r.sessions, roomID)
		r.updateRoomGauge()
	}
}

// EvictIdle removes rooms that have had no players and no activity for ttl.
// It returns the evicted room IDs.
func (r *RoomRegistry) EvictIdle(ttl time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	evicted := make([]string, 0)

	for roomID, session := range r.sessions {
		if session.CloseIfIdle(now, ttl) {
			delete(r.sessions, roomID)
			evicted = append(evicted, roomID)
			r.logger.Info("idle room evicted", zap.String("roomId", roomID))
		}
	}

	r.updateRoomGauge()
	return evicted
}

// Close shuts down every session
func (r *RoomRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, session := range r.sessions {
		session.Close()
	}
	r.sessions = make(map[string]*RoomSession)
	r.updateRoomGauge()
}

// updateRoomGauge must be called with mu held
func (r *RoomRegistry) updateRoomGauge() {
	if r.metrics != nil {
		r.metrics.ActiveRooms.Set(float64(len(r.sessions)))
	}
}
