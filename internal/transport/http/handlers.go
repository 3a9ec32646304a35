package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"typerace/internal/app"
	"typerace/internal/domain"
)

// Response is a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo contains error details
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// GetRoomResponse is the response for getting room info
type GetRoomResponse struct {
	app.RoomSnapshot
	PlayerCount int `json:"playerCount"`
}

// HealthResponse is the response for health check
type HealthResponse struct {
	Status string `json:"status"`
}

// StatsResponse is the response for stats endpoint
type StatsResponse struct {
	ActiveRooms  int `json:"activeRooms"`
	TotalPlayers int `json:"totalPlayers"`
}

// handleGetRoom handles GET /api/rooms/:roomId
func (s *Server) handleGetRoom(c *gin.Context) {
	roomID := strings.TrimSpace(c.Param("roomId"))
	if roomID == "" {
		s.sendError(c, http.StatusBadRequest, "MISSING_ROOM_ID", "Room ID is required")
		return
	}

	session, err := s.rooms.GetSession(roomID)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			s.sendError(c, http.StatusNotFound, "ROOM_NOT_FOUND", "Room not found")
		} else {
			s.sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		}
		return
	}

	snap := session.Snapshot()
	s.sendSuccess(c, &GetRoomResponse{
		RoomSnapshot: snap,
		PlayerCount:  len(snap.Players),
	})
}

// handleHealth handles GET /api/health
func (s *Server) handleHealth(c *gin.Context) {
	s.sendSuccess(c, &HealthResponse{
		Status: "ok",
	})
}

// handleStats handles GET /api/stats
func (s *Server) handleStats(c *gin.Context) {
	s.sendSuccess(c, &StatsResponse{
		ActiveRooms:  s.rooms.GetSessionCount(),
		TotalPlayers: s.rooms.GetTotalPlayerCount(),
	})
}

// sendSuccess sends a successful JSON response
func (s *Server) sendSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, &Response{
		Success: true,
		Data:    data,
	})
}

// sendError sends an error JSON response
func (s *Server) sendError(c *gin.Context, status int, code, message string) {
	c.JSON(status, &Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	})
}
