// Package websocket upgrades HTTP requests into hub clients.
package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"realtime-chat/internal/hub"
	"realtime-chat/internal/middleware"
	"realtime-chat/internal/service"
)

// anonymousName is the display name used when no identity is presented
// or the presented one cannot be resolved.
const anonymousName = "anonymous"

// WebSocketHandler handles WebSocket upgrade requests and client
// registration.
type WebSocketHandler struct {
	upgrader    websocket.Upgrader
	hub         *hub.Hub
	roomService *service.RoomService
	authService *service.AuthService
}

// NewWebSocketHandler creates a WebSocketHandler.
func NewWebSocketHandler(h *hub.Hub, roomService *service.RoomService, authService *service.AuthService) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}
	if roomService == nil {
		panic("RoomService cannot be nil for WebSocketHandler")
	}
	if authService == nil {
		panic("AuthService cannot be nil for WebSocketHandler")
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// TODO: restrict origins once the frontend domain is settled.
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	return &WebSocketHandler{
		upgrader:    upgrader,
		hub:         h,
		roomService: roomService,
		authService: authService,
	}
}

// HandleConnection handles GET /ws/:room. The path segment is the room
// name; the room is created on first join. Identity is optional: a
// valid token binds the connection to that user, anything else joins
// anonymously.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	roomName := c.Param("room")
	logCtx := logrus.WithField("room_name", roomName)

	var userID *uint
	name := anonymousName
	if id, ok := middleware.UserIDFromContext(c); ok {
		user, err := h.authService.FindUserByID(c.Request.Context(), id)
		if err != nil {
			// The token was valid but the account is gone; treat the
			// connection as anonymous rather than rejecting it.
			logCtx.WithError(err).WithField("user_id", id).Warn("WS Handler: could not resolve user, continuing as anonymous")
		} else {
			uid := user.ID
			userID = &uid
			name = user.Username
		}
	}
	logCtx = logCtx.WithField("name", name)

	room, err := h.roomService.GetOrCreateByName(c.Request.Context(), roomName)
	if err != nil {
		logCtx.WithError(err).Error("WS Handler: failed to resolve room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve room"})
		return
	}
	logCtx = logCtx.WithField("room_id", room.ID)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade writes its own HTTP error response.
		logCtx.WithError(err).Error("WS Handler: failed to upgrade connection")
		return
	}
	logCtx.Info("WS Handler: connection upgraded to WebSocket")

	client := hub.NewClient(h.hub, conn, room.ID, userID, name)

	if !h.hub.QueueMessage(hub.HubMessage{Type: "register", Client: client}) {
		logCtx.Error("WS Handler: hub message channel full, failed to register client")
		client.CloseConn()
		return
	}

	go client.Run()
}
