package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/causerie-chat/server/internal/store"
)

// UserHandlers provides HTTP handlers for user listing, blocking, and
// profile updates.
type UserHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(st store.Store, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		store: st,
		log:   logger,
	}
}

// UpdateProfileRequest represents the profile update request body.
type UpdateProfileRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
}

// ListUsers handles listing all users.
// GET /api/users
func (h *UserHandlers) ListUsers(c *gin.Context) {
	users, err := h.store.ListUsers(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list users")
		c.JSON(http.StatusInternalServerError, MessageResponse{Message: "Erreur serveur"})
		return
	}

	response := make([]UserResponse, 0, len(users))
	for _, u := range users {
		response = append(response, UserResponse{ID: u.ID, Username: u.Username, Email: u.Email, Role: string(u.Role)})
	}
	c.JSON(http.StatusOK, response)
}

// Block handles blocking another user.
// POST /api/users/block/:userId
func (h *UserHandlers) Block(c *gin.Context) {
	blockerID, ok := authedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, MessageResponse{Message: "Accès refusé. Token manquant."})
		return
	}

	blockedID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, MessageResponse{Message: "ID utilisateur cible manquant"})
		return
	}
	if blockerID == blockedID {
		c.JSON(http.StatusBadRequest, MessageResponse{Message: "Vous ne pouvez pas vous bloquer vous-même."})
		return
	}

	if _, err := h.store.GetUserByID(c.Request.Context(), blockedID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, MessageResponse{Message: "Utilisateur non trouvé."})
			return
		}
		h.log.Error().Err(err).Msg("failed to load user")
		c.JSON(http.StatusInternalServerError, MessageResponse{Message: "Erreur serveur."})
		return
	}

	if err := h.store.BlockUser(c.Request.Context(), blockerID, blockedID); err != nil {
		h.log.Error().Err(err).Msg("failed to block user")
		c.JSON(http.StatusInternalServerError, MessageResponse{Message: "Erreur serveur."})
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Utilisateur bloqué avec succès."})
}

// Unblock handles unblocking a user.
// POST /api/users/unblock/:userId
func (h *UserHandlers) Unblock(c *gin.Context) {
	blockerID, ok := authedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, MessageResponse{Message: "Accès refusé. Token manquant."})
		return
	}

	blockedID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, MessageResponse{Message: "ID utilisateur cible manquant"})
		return
	}

	if err := h.store.UnblockUser(c.Request.Context(), blockerID, blockedID); err != nil {
		h.log.Error().Err(err).Msg("failed to unblock user")
		c.JSON(http.StatusInternalServerError, MessageResponse{Message: "Erreur serveur."})
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Utilisateur débloqué avec succès."})
}

// ListBlocked handles listing the users blocked by the caller.
// GET /api/users/blocked
func (h *UserHandlers) ListBlocked(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, MessageResponse{Message: "Accès refusé. Token manquant."})
		return
	}

	blocked, err := h.store.ListBlockedUsers(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list blocked users")
		c.JSON(http.StatusInternalServerError, MessageResponse{Message: "Erreur serveur."})
		return
	}

	response := make([]UserResponse, 0, len(blocked))
	for _, u := range blocked {
		response = append(response, UserResponse{ID: u.ID, Username: u.Username, Email: u.Email, Role: string(u.Role)})
	}
	c.JSON(http.StatusOK, response)
}

// UpdateProfile handles own-profile updates.
// PUT /api/users/:id and PATCH /api/users/:id/full
// The full variant additionally returns the updated user.
func (h *UserHandlers) UpdateProfile(full bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := authedUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, MessageResponse{Message: "Accès refusé. Token manquant."})
			return
		}

		targetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || targetID != userID {
			c.JSON(http.StatusForbidden, MessageResponse{Message: "Vous ne pouvez modifier que votre propre profil."})
			return
		}

		var req UpdateProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, MessageResponse{Message: "Nom d'utilisateur et email sont requis."})
			return
		}

		ctx := c.Request.Context()
		username := strings.TrimSpace(req.Username)
		email := strings.ToLower(strings.TrimSpace(req.Email))

		if taken, err := h.identifiersTaken(c, userID, username, email); err != nil {
			h.log.Error().Err(err).Msg("failed to check profile uniqueness")
			c.JSON(http.StatusInternalServerError, MessageResponse{Message: "Erreur serveur."})
			return
		} else if taken {
			c.JSON(http.StatusBadRequest, MessageResponse{Message: "Nom d'utilisateur ou email déjà utilisé."})
			return
		}

		if err := h.store.UpdateProfile(ctx, userID, username, email); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, MessageResponse{Message: "Utilisateur non trouvé."})
				return
			}
			h.log.Error().Err(err).Msg("failed to update profile")
			c.JSON(http.StatusInternalServerError, MessageResponse{Message: "Erreur serveur."})
			return
		}

		if !full {
			c.JSON(http.StatusOK, MessageResponse{Message: "Profil mis à jour avec succès."})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Profil mis à jour avec succès.",
			"user":    UserResponse{ID: userID, Username: username, Email: email},
		})
	}
}

// identifiersTaken reports whether another user already holds the username or
// email.
func (h *UserHandlers) identifiersTaken(c *gin.Context, selfID int64, username, email string) (bool, error) {
	ctx := c.Request.Context()

	if existing, err := h.store.GetUserByUsername(ctx, username); err == nil {
		if existing.ID != selfID {
			return true, nil
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}

	if existing, err := h.store.GetUserByEmail(ctx, email); err == nil {
		if existing.ID != selfID {
			return true, nil
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}

	return false, nil
}
