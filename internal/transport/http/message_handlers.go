package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/causerie-chat/server/internal/proto"
	"github.com/causerie-chat/server/internal/store"
)

// MessageHandlers provides HTTP handlers for message history endpoints.
type MessageHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(st store.Store, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{
		store: st,
		log:   logger,
	}
}

// PostMessageRequest represents the post message request body.
type PostMessageRequest struct {
	Room    int64  `json:"room" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// MessageResponseBody represents a room message in API responses.
type MessageResponseBody struct {
	ID        int64          `json:"id"`
	RoomID    int64          `json:"roomId"`
	Content   string         `json:"content"`
	Author    proto.UserItem `json:"author"`
	CreatedAt string         `json:"createdAt"`
}

// RoomHistory handles room message history, oldest first, with author
// projection.
// GET /api/messages/:roomId
func (h *MessageHandlers) RoomHistory(c *gin.Context) {
	roomID, err := strconv.ParseInt(c.Param("roomId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, MessageResponse{Message: "ID de la salle manquant"})
		return
	}

	messages, err := h.store.ListRoomMessages(c.Request.Context(), roomID)
	if err != nil {
		h.log.Error().Err(err).Int64("room_id", roomID).Msg("failed to list room messages")
		c.JSON(http.StatusInternalServerError, MessageResponse{Message: "Erreur serveur"})
		return
	}

	authors, err := h.loadAuthors(c, messages)
	if err != nil {
		h.log.Error().Err(err).Int64("room_id", roomID).Msg("failed to load message authors")
		c.JSON(http.StatusInternalServerError, MessageResponse{Message: "Erreur serveur"})
		return
	}

	response := make([]MessageResponseBody, 0, len(messages))
	for _, msg := range messages {
		response = append(response, MessageResponseBody{
			ID:        msg.ID,
			RoomID:    msg.RoomID,
			Content:   msg.Content,
			Author:    authors[msg.AuthorID],
			CreatedAt: msg.CreatedAt.Format(timeFormat),
		})
	}
	c.JSON(http.StatusOK, response)
}

// PostMessage persists a room message over plain HTTP.
// POST /api/messages
func (h *MessageHandlers) PostMessage(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, MessageResponse{Message: "Accès refusé. Token manquant."})
		return
	}

	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, MessageResponse{Message: "Contenu et salle requis"})
		return
	}

	msg, err := h.store.SaveMessage(c.Request.Context(), req.Room, userID, req.Content)
	if err != nil {
		h.log.Error().Err(err).Int64("room_id", req.Room).Msg("failed to save message")
		c.JSON(http.StatusInternalServerError, MessageResponse{Message: "Erreur serveur"})
		return
	}

	c.JSON(http.StatusCreated, MessageResponseBody{
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		Content:   msg.Content,
		Author:    proto.UserItem{ID: userID},
		CreatedAt: msg.CreatedAt.Format(timeFormat),
	})
}

// Conversation handles private message history with another user, both
// directions, oldest first.
// GET /api/private-messages/:userId
func (h *MessageHandlers) Conversation(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, MessageResponse{Message: "Accès refusé. Token manquant."})
		return
	}

	otherID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, MessageResponse{Message: "ID utilisateur cible manquant"})
		return
	}

	messages, err := h.store.ListConversation(c.Request.Context(), userID, otherID)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to load conversation")
		c.JSON(http.StatusInternalServerError, MessageResponse{Message: "Erreur chargement messages privés"})
		return
	}

	users, err := h.store.GetUsersByIDs(c.Request.Context(), []int64{userID, otherID})
	if err != nil {
		h.log.Error().Err(err).Msg("failed to load conversation parties")
		c.JSON(http.StatusInternalServerError, MessageResponse{Message: "Erreur chargement messages privés"})
		return
	}
	byID := make(map[int64]proto.UserItem, len(users))
	for _, u := range users {
		byID[u.ID] = proto.UserItem{ID: u.ID, Username: u.Username, Email: u.Email}
	}

	response := make([]proto.PrivateMessagePayload, 0, len(messages))
	for _, msg := range messages {
		response = append(response, proto.PrivateMessagePayload{
			ID:        msg.ID,
			Content:   msg.Content,
			From:      byID[msg.FromUserID],
			To:        byID[msg.ToUserID],
			CreatedAt: msg.CreatedAt.Format(timeFormat),
		})
	}
	c.JSON(http.StatusOK, response)
}

func (h *MessageHandlers) loadAuthors(c *gin.Context, messages []*store.Message) (map[int64]proto.UserItem, error) {
	seen := make(map[int64]struct{}, len(messages))
	ids := make([]int64, 0, len(messages))
	for _, msg := range messages {
		if _, ok := seen[msg.AuthorID]; ok {
			continue
		}
		seen[msg.AuthorID] = struct{}{}
		ids = append(ids, msg.AuthorID)
	}

	users, err := h.store.GetUsersByIDs(c.Request.Context(), ids)
	if err != nil {
		return nil, err
	}

	authors := make(map[int64]proto.UserItem, len(users))
	for _, u := range users {
		authors[u.ID] = proto.UserItem{ID: u.ID, Username: u.Username, Email: u.Email}
	}
	return authors, nil
}
