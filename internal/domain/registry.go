package domain

// PlayerRegistry holds the players of one room in join order.
// The earliest-joined remaining player is the host successor.
type PlayerRegistry struct {
	players map[string]*Player
	order   []string
	hostID  string
}

// NewPlayerRegistry creates an empty registry
func NewPlayerRegistry() *PlayerRegistry {
	return &PlayerRegistry{
		players: make(map[string]*Player),
		order:   make([]string, 0),
	}
}

// AddPlayer registers a player. The first player of an empty registry becomes host.
func (r *PlayerRegistry) AddPlayer(id, name string) (*Player, error) {
	if _, ok := r.players[id]; ok {
		return nil, ErrDuplicateID
	}

	player := NewPlayer(id, name)
	r.players[id] = player
	r.order = append(r.order, id)

	if r.hostID == "" {
		r.setHost(id)
	}

	return player, nil
}

// RemovePlayer removes a player and returns whether it was present and the
// new host ID when the host changed. Absent IDs are a no-op.
func (r *PlayerRegistry) RemovePlayer(id string) (removed bool, newHostID string) {
	if _, ok := r.players[id]; !ok {
		return false, ""
	}

	delete(r.players, id)
	for i, pid := range r.order {
		if pid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	if r.hostID != id {
		return true, ""
	}

	r.hostID = ""
	if len(r.order) > 0 {
		r.setHost(r.order[0])
		return true, r.hostID
	}
	return true, ""
}

// UpdateScore sets a player's score
func (r *PlayerRegistry) UpdateScore(id string, score int) error {
	player, ok := r.players[id]
	if !ok {
		return ErrUnknownPlayer
	}
	if score < 0 {
		score = 0
	}
	player.Score = score
	return nil
}

// ResetScores zeroes every player's score
func (r *PlayerRegistry) ResetScores() {
	for _, p := range r.players {
		p.ResetForNewRound()
	}
}

// Get returns a player by ID
func (r *PlayerRegistry) Get(id string) (*Player, error) {
	player, ok := r.players[id]
	if !ok {
		return nil, ErrUnknownPlayer
	}
	return player, nil
}

// Has reports whether the ID is registered
func (r *PlayerRegistry) Has(id string) bool {
	_, ok := r.players[id]
	return ok
}

// HostID returns the current host, or "" when the registry is empty
func (r *PlayerRegistry) HostID() string {
	return r.hostID
}

// Len returns the number of players
func (r *PlayerRegistry) Len() int {
	return len(r.order)
}

// List returns a copy of all players in join order
func (r *PlayerRegistry) List() []Player {
	players := make([]Player, 0, len(r.order))
	for _, id := range r.order {
		players = append(players, *r.players[id])
	}
	return players
}

func (r *PlayerRegistry) setHost(id string) {
	if prev, ok := r.players[r.hostID]; ok {
		prev.IsHost = false
	}
	r.hostID = id
	r.players[id].IsHost = true
}
