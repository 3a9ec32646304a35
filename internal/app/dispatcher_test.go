package app

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"typerace/internal/domain"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *RoomRegistry, *recordingTransport) {
	t.Helper()
	tr := newRecordingTransport()
	cfg := newTestConfig(t, tr)
	rooms := NewRoomRegistry(cfg)
	t.Cleanup(rooms.Close)
	return NewDispatcher(rooms, tr, 8, zap.NewNop(), cfg.Metrics), rooms, tr
}

func join(connID, roomID, name string) InboundEvent {
	return InboundEvent{Kind: EventJoinGame, ConnID: connID, RoomID: roomID, Name: name}
}

func lastErrorTo(tr *recordingTransport, connID string) string {
	var msg string
	for _, e := range tr.events(domain.EventError) {
		if e.to == connID {
			msg = e.event.Payload.(string)
		}
	}
	return msg
}

func TestDispatcher_JoinValidation(t *testing.T) {
	d, rooms, tr := newTestDispatcher(t)

	err := d.Dispatch(join("c1", "", "Alice"))
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "Room ID is required", lastErrorTo(tr, "c1"))

	err = d.Dispatch(join("c1", "R", "   "))
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "Name is required", lastErrorTo(tr, "c1"))

	assert.Zero(t, rooms.GetSessionCount(), "rejected joins create no rooms")
}

func TestDispatcher_JoinCreatesRoomAndSubscribes(t *testing.T) {
	d, rooms, tr := newTestDispatcher(t)

	require.NoError(t, d.Dispatch(join("c1", "R", "Alice")))
	require.NoError(t, d.Dispatch(join("c2", "R", "Bob")))

	assert.Equal(t, 1, rooms.GetSessionCount())
	assert.Equal(t, 2, tr.subscribers("R"))

	roomID, ok := d.RoomOf("c2")
	assert.True(t, ok)
	assert.Equal(t, "R", roomID)
}

func TestDispatcher_NameIsTruncated(t *testing.T) {
	d, rooms, _ := newTestDispatcher(t)
	require.NoError(t, d.Dispatch(join("c1", "R", "  Bartholomew  ")))

	s, err := rooms.GetSession("R")
	require.NoError(t, err)
	assert.Equal(t, "Bartholo", s.Snapshot().Players[0].Name)
}

func TestDispatcher_DuplicateJoin(t *testing.T) {
	d, _, tr := newTestDispatcher(t)
	require.NoError(t, d.Dispatch(join("c1", "R", "Alice")))

	err := d.Dispatch(join("c1", "R", "Alice"))
	assert.ErrorIs(t, err, domain.ErrDuplicateID)
	assert.Equal(t, "You have already joined this game", lastErrorTo(tr, "c1"))
}

func TestDispatcher_JoinOtherRoomLeavesFirst(t *testing.T) {
	d, rooms, tr := newTestDispatcher(t)
	require.NoError(t, d.Dispatch(join("c1", "R1", "Alice")))
	require.NoError(t, d.Dispatch(join("c1", "R2", "Alice")))

	r1, _ := rooms.GetSession("R1")
	assert.Zero(t, r1.GetPlayerCount())
	assert.Zero(t, tr.subscribers("R1"))

	roomID, _ := d.RoomOf("c1")
	assert.Equal(t, "R2", roomID)
}

func TestDispatcher_StartRequiresHost(t *testing.T) {
	d, rooms, tr := newTestDispatcher(t)
	require.NoError(t, d.Dispatch(join("c1", "R", "Alice")))
	require.NoError(t, d.Dispatch(join("c2", "R", "Bob")))

	err := d.Dispatch(InboundEvent{Kind: EventStartGame, ConnID: "c2", DurationSeconds: 60})
	assert.ErrorIs(t, err, domain.ErrNotHost)
	assert.Equal(t, "Only the host can start the game", lastErrorTo(tr, "c2"))
	assert.Empty(t, lastErrorTo(tr, "c1"), "errors go to the sender only")

	require.NoError(t, d.Dispatch(InboundEvent{Kind: EventStartGame, ConnID: "c1", DurationSeconds: 60}))
	s, _ := rooms.GetSession("R")
	assert.Equal(t, domain.StatusInProgress, s.GetStatus())
}

func TestDispatcher_EventsWithoutRoom(t *testing.T) {
	d, _, tr := newTestDispatcher(t)

	for _, kind := range []EventKind{EventStartGame, EventPlayerTyped, EventTimerUpdate} {
		err := d.Dispatch(InboundEvent{Kind: kind, ConnID: "lost"})
		assert.ErrorIs(t, err, domain.ErrUnknownPlayer)
	}
	assert.Equal(t, "You have not joined a game", lastErrorTo(tr, "lost"))

	assert.NoError(t, d.Dispatch(InboundEvent{Kind: EventLeave, ConnID: "lost"}))
	assert.NoError(t, d.Dispatch(InboundEvent{Kind: EventDisconnect, ConnID: "lost"}))
}

func TestDispatcher_UnknownEvent(t *testing.T) {
	d, _, tr := newTestDispatcher(t)
	err := d.Dispatch(InboundEvent{Kind: "dance", ConnID: "c1"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, `Unknown event "dance"`, lastErrorTo(tr, "c1"))
}

func TestDispatcher_PlayerTypedAndTimerUpdate(t *testing.T) {
	d, rooms, tr := newTestDispatcher(t)
	require.NoError(t, d.Dispatch(join("c1", "R", "Alice")))
	require.NoError(t, d.Dispatch(InboundEvent{Kind: EventStartGame, ConnID: "c1", DurationSeconds: 60}))

	require.NoError(t, d.Dispatch(InboundEvent{Kind: EventPlayerTyped, ConnID: "c1", Text: "Sphinx of"}))
	assert.Equal(t, &domain.PlayerScorePayload{ID: "c1", Score: 9}, tr.last(domain.EventPlayerScore).event.Payload)

	require.NoError(t, d.Dispatch(InboundEvent{Kind: EventTimerUpdate, ConnID: "c1", SecondsRemaining: 0}))
	s, _ := rooms.GetSession("R")
	assert.Equal(t, domain.StatusInProgress, s.GetStatus(), "client timer reports never end a round")
}

func TestDispatcher_DisconnectMigratesHost(t *testing.T) {
	d, rooms, tr := newTestDispatcher(t)
	require.NoError(t, d.Dispatch(join("c1", "R", "Alice")))
	require.NoError(t, d.Dispatch(join("c2", "R", "Bob")))

	require.NoError(t, d.Dispatch(InboundEvent{Kind: EventDisconnect, ConnID: "c1"}))

	s, _ := rooms.GetSession("R")
	assert.Equal(t, "c2", s.Snapshot().HostID)
	assert.Equal(t, "c2", tr.last(domain.EventNewHost).event.Payload)
	assert.Equal(t, 1, tr.subscribers("R"))

	_, ok := d.RoomOf("c1")
	assert.False(t, ok)
}

func TestDispatcher_LastLeaveThenRejoinBecomesHost(t *testing.T) {
	d, rooms, _ := newTestDispatcher(t)
	require.NoError(t, d.Dispatch(join("c1", "R", "Alice")))
	require.NoError(t, d.Dispatch(InboundEvent{Kind: EventLeave, ConnID: "c1"}))

	s, _ := rooms.GetSession("R")
	assert.Zero(t, s.GetPlayerCount())
	assert.Empty(t, s.Snapshot().HostID)

	require.NoError(t, d.Dispatch(join("c9", "R", "Nina")))
	assert.Equal(t, "c9", s.Snapshot().HostID)
}

func TestDispatcher_JoinRetriesAfterEviction(t *testing.T) {
	d, rooms, _ := newTestDispatcher(t)
	stale, _ := rooms.GetOrCreate("R")
	time.Sleep(2 * time.Millisecond)
	require.True(t, stale.CloseIfIdle(time.Now(), time.Millisecond))

	require.NoError(t, d.Dispatch(join("c1", "R", "Alice")))

	fresh, err := rooms.GetSession("R")
	require.NoError(t, err)
	assert.NotSame(t, stale, fresh)
	assert.Equal(t, 1, fresh.GetPlayerCount())
}

func TestDispatcher_CountsEvents(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	_ = d.Dispatch(join("c1", "R", "Alice"))
	_ = d.Dispatch(InboundEvent{Kind: EventStartGame, ConnID: "c2"})

	assert.Equal(t, 1.0, testutil.ToFloat64(d.metrics.InboundEvents.WithLabelValues(string(EventJoinGame))))
	assert.Equal(t, 1.0, testutil.ToFloat64(d.metrics.Errors.WithLabelValues("unknown_player")))
}

func TestDispatcher_UnknownEventsShareOneSeries(t *testing.T) {
	d, _, tr := newTestDispatcher(t)
	for i := 0; i < 50; i++ {
		_ = d.Dispatch(InboundEvent{Kind: EventKind(fmt.Sprintf("junk-%d", i)), ConnID: "c1"})
	}

	assert.Equal(t, 1, testutil.CollectAndCount(d.metrics.InboundEvents))
	assert.Equal(t, 50.0, testutil.ToFloat64(d.metrics.InboundEvents.WithLabelValues("unknown")))
	assert.Equal(t, `Unknown event "junk-49"`, lastErrorTo(tr, "c1"))
}
