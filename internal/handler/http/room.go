package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"realtime-chat/internal/middleware"
	"realtime-chat/internal/service"
)

// RoomHandler handles room management and message history endpoints.
type RoomHandler struct {
	roomService *service.RoomService
	chatService *service.ChatService
}

// NewRoomHandler creates a RoomHandler.
func NewRoomHandler(roomService *service.RoomService, chatService *service.ChatService) *RoomHandler {
	if roomService == nil {
		panic("RoomService cannot be nil for RoomHandler")
	}
	if chatService == nil {
		panic("ChatService cannot be nil for RoomHandler")
	}
	return &RoomHandler{roomService: roomService, chatService: chatService}
}

// CreateRoomRequest is the POST /api/rooms body. Name is optional;
// rooms without one can only be reached by id.
type CreateRoomRequest struct {
	Name      *string `json:"name" binding:"omitempty,min=1,max=191"`
	IsPrivate bool    `json:"is_private"`
}

// CreateRoomResponse is the successful creation payload.
type CreateRoomResponse struct {
	Message string  `json:"message"`
	RoomID  uint    `json:"room_id"`
	Name    *string `json:"name,omitempty"`
}

// CreateRoom handles explicit room creation. Requires authentication.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		logrus.Warn("Handler.CreateRoom: User ID not found in context, middleware missing or failed?")
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}
	logCtx := logrus.WithField("user_id", userID)

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logCtx.WithError(err).Warn("Handler.CreateRoom: Invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	newRoom, err := h.roomService.CreateRoom(c.Request.Context(), req.Name, req.IsPrivate)
	if err != nil {
		logCtx.WithError(err).Warn("Handler.CreateRoom: Failed to create room via service")
		HandleServiceError(c, err)
		return
	}

	logCtx.WithField("room_id", newRoom.ID).Info("Handler.CreateRoom: Room created successfully")
	SuccessResponse(c, http.StatusOK, CreateRoomResponse{
		Message: "Room created successfully",
		RoomID:  newRoom.ID,
		Name:    newRoom.Name,
	})
}

// maxHistoryLimit caps how many messages one history request may ask
// for, matching the depth of the per-room cache.
const maxHistoryLimit = 100

// MessageResponse is one history entry in the GET messages payload.
type MessageResponse struct {
	ID        uint      `json:"id"`
	Content   string    `json:"content"`
	SenderID  *uint     `json:"sender_id"`
	Timestamp time.Time `json:"timestamp"`
}

// History handles GET /api/rooms/:roomId/messages. Messages come back
// oldest first; limit defaults to 50.
func (h *RoomHandler) History(c *gin.Context) {
	roomIDStr := c.Param("roomId")
	roomIDUint64, err := strconv.ParseUint(roomIDStr, 10, 32)
	if err != nil {
		logrus.WithError(err).Warnf("Handler.History: Invalid room ID format: %s", roomIDStr)
		ErrorResponse(c, http.StatusBadRequest, "Invalid room ID format")
		return
	}
	roomID := uint(roomIDUint64)
	logCtx := logrus.WithField("room_id", roomID)

	if _, err := h.roomService.FindRoomByID(c.Request.Context(), roomID); err != nil {
		if errors.Is(err, service.ErrRoomNotFound) {
			logCtx.Warn("Handler.History: Room not found")
			ErrorResponse(c, http.StatusNotFound, "Room not found")
		} else {
			logCtx.WithError(err).Error("Handler.History: Error checking room existence")
			ErrorResponse(c, http.StatusInternalServerError, "Failed to validate room")
		}
		return
	}

	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			ErrorResponse(c, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	messages, err := h.chatService.RecentMessages(c.Request.Context(), roomID, limit)
	if err != nil {
		logCtx.WithError(err).Error("Handler.History: Failed to load message history")
		ErrorResponse(c, http.StatusInternalServerError, "Failed to load message history")
		return
	}

	resp := make([]MessageResponse, 0, len(messages))
	for _, msg := range messages {
		resp = append(resp, MessageResponse{
			ID:        msg.ID,
			Content:   msg.Content,
			SenderID:  msg.SenderID,
			Timestamp: msg.Timestamp,
		})
	}
	SuccessResponse(c, http.StatusOK, gin.H{"room_id": roomID, "messages": resp})
}
