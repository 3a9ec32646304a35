package ws

import (
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler handles WebSocket connections
type Handler struct {
	hub        *Hub
	dispatcher EventDispatcher
	upgrader   websocket.Upgrader
	opts       ClientOptions
	logger     *zap.Logger
}

// NewHandler creates a new WebSocket handler. An allowedOrigins list
// containing "*" accepts any origin.
func NewHandler(hub *Hub, dispatcher EventDispatcher, allowedOrigins []string, opts ClientOptions, logger *zap.Logger) *Handler {
	return &Handler{
		hub:        hub,
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		opts:   opts,
		logger: logger,
	}
}

// ServeHTTP handles WebSocket upgrade requests
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	connID := uuid.New().String()
	client := NewClient(conn, h.hub, h.dispatcher, connID, h.opts, h.logger)
	h.hub.Register(client)

	h.logger.Info("websocket connected", zap.String("connId", connID))
	client.Run()
	h.logger.Info("websocket disconnected", zap.String("connId", connID))
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := set[origin]; ok {
			return true
		}
		// Same-host requests are always allowed
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}
