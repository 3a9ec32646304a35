package app

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"

	"typerace/internal/domain"
)

// EventKind is the wire name of an inbound client event
type EventKind string

const (
	EventJoinGame    EventKind = "join-game"
	EventStartGame   EventKind = "start-game"
	EventPlayerTyped EventKind = "player-typed"
	EventTimerUpdate EventKind = "timer-update"
	EventLeave       EventKind = "leave"
	EventDisconnect  EventKind = "disconnect"
)

// InboundEvent is a single client action. Only the fields relevant to Kind are set.
type InboundEvent struct {
	Kind             EventKind
	ConnID           string
	RoomID           string
	Name             string
	DurationSeconds  int
	Text             string
	SecondsRemaining int
}

// Transport is the real-time substrate the dispatcher drives
type Transport interface {
	Broadcaster
	Subscribe(connID, roomID string)
	Unsubscribe(connID, roomID string)
}

// joinAttempts bounds retries when a room is evicted between lookup and join
const joinAttempts = 3

// Dispatcher routes inbound events to the connection's room and reports
// failures to the sender. Events from one connection must be dispatched
// sequentially; different connections may dispatch concurrently.
type Dispatcher struct {
	rooms         *RoomRegistry
	transport     Transport
	maxNameLength int
	memberships   map[string]string // connID -> roomID
	mu            sync.RWMutex
	logger        *zap.Logger
	metrics       *Metrics
}

// NewDispatcher creates a dispatcher over the given registry and transport
func NewDispatcher(rooms *RoomRegistry, transport Transport, maxNameLength int, logger *zap.Logger, metrics *Metrics) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		rooms:         rooms,
		transport:     transport,
		maxNameLength: maxNameLength,
		memberships:   make(map[string]string),
		logger:        logger,
		metrics:       metrics,
	}
}

// Dispatch handles one inbound event. Any error has already been reported
// to the sender when Dispatch returns it.
func (d *Dispatcher) Dispatch(ev InboundEvent) error {
	if d.metrics != nil {
		d.metrics.InboundEvents.WithLabelValues(eventLabel(ev.Kind)).Inc()
	}

	var err error
	switch ev.Kind {
	case EventJoinGame:
		err = d.handleJoin(ev)
	case EventStartGame:
		err = d.withRoom(ev.ConnID, func(s *RoomSession) error {
			return s.Start(ev.ConnID, ev.DurationSeconds)
		})
	case EventPlayerTyped:
		err = d.withRoom(ev.ConnID, func(s *RoomSession) error {
			return s.PlayerTyped(ev.ConnID, ev.Text)
		})
	case EventTimerUpdate:
		err = d.withRoom(ev.ConnID, func(s *RoomSession) error {
			return s.ReportTimer(ev.ConnID, ev.SecondsRemaining)
		})
	case EventLeave, EventDisconnect:
		d.leave(ev.ConnID)
	default:
		err = fmt.Errorf("%w: unknown event %q", domain.ErrValidation, ev.Kind)
	}

	if err != nil {
		d.reportError(ev, err)
	}
	return err
}

// eventLabel bounds the metric label set to the known event kinds
func eventLabel(kind EventKind) string {
	switch kind {
	case EventJoinGame, EventStartGame, EventPlayerTyped, EventTimerUpdate, EventLeave, EventDisconnect:
		return string(kind)
	default:
		return "unknown"
	}
}

// RoomOf returns the room a connection currently belongs to
func (d *Dispatcher) RoomOf(connID string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	roomID, ok := d.memberships[connID]
	return roomID, ok
}

func (d *Dispatcher) handleJoin(ev InboundEvent) error {
	roomID := strings.TrimSpace(ev.RoomID)
	if roomID == "" {
		return fmt.Errorf("%w: room ID is required", domain.ErrValidation)
	}

	name := d.normalizeName(ev.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrValidation)
	}

	if current, ok := d.RoomOf(ev.ConnID); ok {
		if current == roomID {
			return domain.ErrDuplicateID
		}
		d.leave(ev.ConnID)
	}

	for attempt := 0; attempt < joinAttempts; attempt++ {
		session, _ := d.rooms.GetOrCreate(roomID)

		d.transport.Subscribe(ev.ConnID, roomID)
		_, err := session.Join(ev.ConnID, name)
		if err == nil {
			d.mu.Lock()
			d.memberships[ev.ConnID] = roomID
			d.mu.Unlock()
			return nil
		}

		d.transport.Unsubscribe(ev.ConnID, roomID)
		if !errors.Is(err, domain.ErrRoomClosed) {
			return err
		}
		d.rooms.Discard(roomID, session)
	}

	return domain.ErrRoomClosed
}

func (d *Dispatcher) leave(connID string) {
	d.mu.Lock()
	roomID, ok := d.memberships[connID]
	delete(d.memberships, connID)
	d.mu.Unlock()

	if !ok {
		return
	}

	d.transport.Unsubscribe(connID, roomID)

	session, err := d.rooms.GetSession(roomID)
	if err != nil {
		return
	}
	session.Leave(connID)
}

func (d *Dispatcher) withRoom(connID string, fn func(*RoomSession) error) error {
	roomID, ok := d.RoomOf(connID)
	if !ok {
		return domain.ErrUnknownPlayer
	}

	session, err := d.rooms.GetSession(roomID)
	if err != nil {
		return domain.ErrUnknownPlayer
	}

	return fn(session)
}

func (d *Dispatcher) normalizeName(name string) string {
	name = strings.TrimSpace(name)
	if d.maxNameLength > 0 && utf8.RuneCountInString(name) > d.maxNameLength {
		name = string([]rune(name)[:d.maxNameLength])
	}
	return name
}

func (d *Dispatcher) reportError(ev InboundEvent, err error) {
	kind, message := classifyError(err)
	if d.metrics != nil {
		d.metrics.Errors.WithLabelValues(kind).Inc()
	}

	d.logger.Debug("event rejected",
		zap.String("event", string(ev.Kind)),
		zap.String("connId", ev.ConnID),
		zap.Error(err),
	)

	roomID, _ := d.RoomOf(ev.ConnID)
	d.transport.SendTo(ev.ConnID, domain.NewPlayerEvent(domain.EventError, roomID, ev.ConnID, message))
}

// classifyError maps an error to a metric label and a message for the sender
func classifyError(err error) (kind, message string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		msg := strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": ")
		return "validation", capitalize(msg)
	case errors.Is(err, domain.ErrNotHost):
		return "not_host", "Only the host can start the game"
	case errors.Is(err, domain.ErrNoPlayers):
		return "no_players", "There are no players in this room"
	case errors.Is(err, domain.ErrUnknownPlayer):
		return "unknown_player", "You have not joined a game"
	case errors.Is(err, domain.ErrDuplicateID):
		return "duplicate_id", "You have already joined this game"
	case errors.Is(err, domain.ErrInvalidStatus):
		return "invalid_status", "A round is already in progress"
	case errors.Is(err, domain.ErrRoomClosed):
		return "room_closed", "Game is unavailable, please try again"
	default:
		return "internal", "Internal error"
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return strings.ToUpper(string(r)) + s[size:]
}
