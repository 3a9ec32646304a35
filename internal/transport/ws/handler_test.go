package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"typerace/internal/app"
	"typerace/internal/domain"
)

const testParagraph = "Pack my box with five dozen liquor jugs."

type testServer struct {
	*httptest.Server
	hub     *Hub
	rooms   *app.RoomRegistry
	metrics *app.Metrics
}

func newTestServer(t *testing.T, tick time.Duration, opts ClientOptions) *testServer {
	t.Helper()

	logger := zap.NewNop()
	metrics := app.NewMetrics("test", prometheus.NewRegistry())
	hub := NewHub(logger)

	settings := domain.DefaultGameSettings()
	settings.MinRoundSeconds = 1
	rooms := app.NewRoomRegistry(app.SessionConfig{
		Settings:     settings,
		TickInterval: tick,
		Broadcaster:  hub,
		Paragraphs:   app.NewStaticParagraphs([]string{testParagraph}),
		Logger:       logger,
		Metrics:      metrics,
	})
	dispatcher := app.NewDispatcher(rooms, hub, 32, logger, metrics)

	opts.Metrics = metrics
	srv := httptest.NewServer(NewHandler(hub, dispatcher, []string{"*"}, opts, logger))
	t.Cleanup(func() {
		srv.Close()
		rooms.Close()
	})

	return &testServer{Server: srv, hub: hub, rooms: rooms, metrics: metrics}
}

func (s *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event string, data interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"event": event, "data": data}))
}

// await reads messages until one with the given event arrives
func await(t *testing.T, conn *websocket.Conn, event string) ServerMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var msg ServerMessage
		require.NoError(t, conn.ReadJSON(&msg), "waiting for %s", event)
		if msg.Event == event {
			return msg
		}
	}
}

func TestHandler_RoundOverWebsocket(t *testing.T) {
	srv := newTestServer(t, 100*time.Millisecond, ClientOptions{})

	host := srv.dial(t)
	send(t, host, "join-game", map[string]string{"roomId": "lobby", "name": "Ada"})
	hostID := await(t, host, "new-host")
	require.IsType(t, "", hostID.Data)
	players := await(t, host, "players")
	require.Len(t, players.Data, 1)

	guest := srv.dial(t)
	send(t, guest, "join-game", map[string]string{"roomId": "lobby", "name": "Grace"})
	await(t, guest, "players")
	joined := await(t, host, "user-joined")
	assert.Equal(t, map[string]interface{}{"name": "Grace"}, joined.Data)

	send(t, guest, "start-game", map[string]int{"durationSeconds": 3})
	errMsg := await(t, guest, "error")
	assert.Equal(t, "Only the host can start the game", errMsg.Data)

	send(t, host, "start-game", map[string]int{"durationSeconds": 3})
	started := await(t, guest, "game-started")
	assert.Equal(t, testParagraph, started.Data)

	send(t, guest, "player-typed", map[string]string{"text": "Pack my"})
	score := await(t, host, "player-score")
	assert.Equal(t, float64(7), score.Data.(map[string]interface{})["score"])

	await(t, host, "game-finished")
	await(t, guest, "game-finished")
}

func TestHandler_DisconnectMigratesHost(t *testing.T) {
	srv := newTestServer(t, 5*time.Millisecond, ClientOptions{})

	host := srv.dial(t)
	send(t, host, "join-game", map[string]string{"roomId": "r", "name": "Ada"})
	await(t, host, "players")

	guest := srv.dial(t)
	send(t, guest, "join-game", map[string]string{"roomId": "r", "name": "Grace"})
	await(t, guest, "players")
	current := await(t, guest, "new-host")

	require.NoError(t, host.Close())

	left := await(t, guest, "player-left")
	assert.Equal(t, current.Data, left.Data)
	next := await(t, guest, "new-host")
	assert.NotEqual(t, current.Data, next.Data)
}

func TestHandler_MalformedMessages(t *testing.T) {
	srv := newTestServer(t, 5*time.Millisecond, ClientOptions{})
	conn := srv.dial(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	msg := await(t, conn, "error")
	assert.Equal(t, "Invalid message format", msg.Data)

	send(t, conn, "join-game", "lobby")
	msg = await(t, conn, "error")
	assert.Equal(t, "Invalid payload", msg.Data)

	send(t, conn, "player-typed", map[string]string{"text": "x"})
	msg = await(t, conn, "error")
	assert.Equal(t, "You have not joined a game", msg.Data)

	send(t, conn, "ping", nil)
	await(t, conn, "pong")
}

func TestHandler_TypingIsThrottled(t *testing.T) {
	srv := newTestServer(t, 5*time.Millisecond, ClientOptions{TypingRate: 0.001, TypingBurst: 1})
	conn := srv.dial(t)

	send(t, conn, "join-game", map[string]string{"roomId": "r", "name": "Ada"})
	await(t, conn, "players")

	send(t, conn, "player-typed", map[string]string{"text": "P"})
	send(t, conn, "player-typed", map[string]string{"text": "Pa"})
	send(t, conn, "player-typed", map[string]string{"text": "Pac"})
	send(t, conn, "ping", nil)
	await(t, conn, "pong")

	assert.Equal(t, float64(2), testutil.ToFloat64(srv.metrics.ThrottledTyping))
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://play.example.com"})

	req := httptest.NewRequest("GET", "http://api.example.com/ws", nil)
	assert.True(t, check(req), "no origin header")

	req.Header.Set("Origin", "https://play.example.com")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(req))

	req.Header.Set("Origin", "http://api.example.com")
	assert.True(t, check(req), "same host")

	assert.True(t, originChecker([]string{"*"})(req))
}
