package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/causerie-chat/server/internal/store"
)

// AdminHandlers provides HTTP handlers for moderation endpoints.
type AdminHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewAdminHandlers creates a new admin handlers instance.
func NewAdminHandlers(st store.Store, logger *zerolog.Logger) *AdminHandlers {
	return &AdminHandlers{
		store: st,
		log:   logger,
	}
}

// AdminUserResponse represents a user in moderation listings.
type AdminUserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Reports  int    `json:"reports"`
	IsBanned bool   `json:"isBanned"`
}

// Ban handles banning a user. Admin only.
// PATCH /api/admin/ban/:userId
func (h *AdminHandlers) Ban(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, MessageResponse{Message: "ID utilisateur cible manquant"})
		return
	}

	user, err := h.store.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, MessageResponse{Message: "Utilisateur non trouvé"})
			return
		}
		h.log.Error().Err(err).Msg("failed to load user")
		c.JSON(http.StatusInternalServerError, MessageResponse{Message: "Erreur serveur"})
		return
	}

	if err := h.store.BanUser(c.Request.Context(), userID); err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("failed to ban user")
		c.JSON(http.StatusInternalServerError, MessageResponse{Message: "Erreur serveur"})
		return
	}

	h.log.Info().Int64("user_id", userID).Str("username", user.Username).Msg("user banned")
	c.JSON(http.StatusOK, MessageResponse{Message: fmt.Sprintf("Utilisateur %s banni.", user.Username)})
}

// ListUsers handles the moderation user listing. Admin only.
// GET /api/admin/users
func (h *AdminHandlers) ListUsers(c *gin.Context) {
	users, err := h.store.ListUsers(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list users")
		c.JSON(http.StatusInternalServerError, MessageResponse{Message: "Erreur serveur"})
		return
	}

	response := make([]AdminUserResponse, 0, len(users))
	for _, u := range users {
		response = append(response, AdminUserResponse{
			ID:       u.ID,
			Username: u.Username,
			Email:    u.Email,
			Role:     string(u.Role),
			Reports:  u.Reports,
			IsBanned: u.IsBanned,
		})
	}
	c.JSON(http.StatusOK, response)
}

// Report handles reporting a user. Any authenticated user may report; the
// store auto-bans at the report threshold.
// POST /api/admin/report/:userId
func (h *AdminHandlers) Report(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, MessageResponse{Message: "ID utilisateur cible manquant"})
		return
	}

	user, err := h.store.ReportUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, MessageResponse{Message: "Utilisateur non trouvé"})
			return
		}
		h.log.Error().Err(err).Int64("user_id", userID).Msg("failed to report user")
		c.JSON(http.StatusInternalServerError, MessageResponse{Message: "Erreur serveur"})
		return
	}

	h.log.Info().Int64("user_id", userID).Int("reports", user.Reports).Bool("banned", user.IsBanned).Msg("user reported")
	c.JSON(http.StatusOK, MessageResponse{Message: fmt.Sprintf("Utilisateur %s signalé.", user.Username)})
}
