package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"typerace/internal/app"
	"typerace/internal/domain"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 16384

	// Size of the send channel buffer
	sendBufferSize = 256
)

// EventDispatcher consumes inbound client events
type EventDispatcher interface {
	Dispatch(ev app.InboundEvent) error
}

// Client represents a WebSocket client connection
type Client struct {
	conn       *websocket.Conn
	hub        *Hub
	dispatcher EventDispatcher
	connID     string
	send       chan []byte
	done       chan struct{}
	typing     *rate.Limiter
	logger     *zap.Logger
	metrics    *app.Metrics
	mu         sync.Mutex
	closed     bool
}

// ClientOptions configures per-connection limits
type ClientOptions struct {
	TypingRate  float64
	TypingBurst int
	Metrics     *app.Metrics
}

// NewClient creates a new WebSocket client
func NewClient(conn *websocket.Conn, hub *Hub, dispatcher EventDispatcher, connID string, opts ClientOptions, logger *zap.Logger) *Client {
	limit := rate.Inf
	if opts.TypingRate > 0 {
		limit = rate.Limit(opts.TypingRate)
	}
	burst := opts.TypingBurst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		conn:       conn,
		hub:        hub,
		dispatcher: dispatcher,
		connID:     connID,
		send:       make(chan []byte, sendBufferSize),
		done:       make(chan struct{}),
		typing:     rate.NewLimiter(limit, burst),
		logger:     logger.With(zap.String("connId", connID)),
		metrics:    opts.Metrics,
	}
}

// GetConnID returns the connection ID, which doubles as the player ID
func (c *Client) GetConnID() string {
	return c.connID
}

// Send queues a message for the write pump. It never blocks.
func (c *Client) Send(message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	select {
	case c.send <- data:
		return nil
	default:
		// Buffer full, message dropped
		c.logger.Warn("send buffer full, message dropped")
		return nil
	}
}

// Close closes the underlying connection
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	close(c.done)
	return c.conn.Close()
}

// Run starts the client's read and write pumps
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// readPump pumps messages from the WebSocket connection
func (c *Client) readPump() {
	defer func() {
		c.dispatcher.Dispatch(app.InboundEvent{Kind: app.EventDisconnect, ConnID: c.connID})
		c.hub.Unregister(c.connID)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read error", zap.Error(err))
			}
			break
		}

		c.handleMessage(message)
	}
}

// writePump pumps messages from the send channel to the WebSocket connection.
// Each message is written as its own text frame.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage decodes one client message and hands it to the dispatcher
func (c *Client) handleMessage(data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("Invalid message format")
		return
	}

	ev := app.InboundEvent{Kind: app.EventKind(msg.Event), ConnID: c.connID}

	switch ev.Kind {
	case app.EventJoinGame:
		var p JoinGamePayload
		if !c.decode(msg.Data, &p) {
			return
		}
		ev.RoomID, ev.Name = p.RoomID, p.Name
	case app.EventStartGame:
		var p StartGamePayload
		if len(msg.Data) > 0 && !c.decode(msg.Data, &p) {
			return
		}
		ev.DurationSeconds = p.DurationSeconds
	case app.EventPlayerTyped:
		if !c.typing.Allow() {
			if c.metrics != nil {
				c.metrics.ThrottledTyping.Inc()
			}
			return
		}
		var p PlayerTypedPayload
		if !c.decode(msg.Data, &p) {
			return
		}
		ev.Text = p.Text
	case app.EventTimerUpdate:
		var p TimerUpdatePayload
		if !c.decode(msg.Data, &p) {
			return
		}
		ev.SecondsRemaining = p.SecondsRemaining
	case app.EventDisconnect:
		// Reserved for the read pump
		c.sendError("Unknown event")
		return
	case MsgPing:
		c.sendPong()
		return
	}

	c.dispatcher.Dispatch(ev)
}

func (c *Client) decode(data json.RawMessage, v interface{}) bool {
	if len(data) == 0 {
		c.sendError("Invalid payload")
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		c.sendError("Invalid payload")
		return false
	}
	return true
}

// sendError sends an error message to the client
func (c *Client) sendError(message string) {
	c.Send(NewServerMessage(string(domain.EventError), message))
}

// sendPong sends a pong message in response to ping
func (c *Client) sendPong() {
	c.Send(NewServerMessage(MsgPong, nil))
}
