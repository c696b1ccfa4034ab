package user

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ymgch/slack-pulse/backend/internal/store"
	"github.com/ymgch/slack-pulse/backend/pkg/utils"
)

// Messenger forwards a message to the chat platform on a user's behalf.
type Messenger interface {
	PostMessage(ctx context.Context, userToken, channelID, text string) error
}

// Handler serves user registration and the reply-as-user endpoint.
type Handler struct {
	store     store.Store
	messenger Messenger
	now       func() time.Time
	log       *zap.Logger
}

// New creates the user handler.
func New(st store.Store, messenger Messenger, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		store:     st,
		messenger: messenger,
		now:       time.Now,
		log:       log,
	}
}

// RegisterRoutes mounts the user endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/register-user", h.handleRegister)
	r.Post("/reply", h.handleReply)
}

// handleRegister creates or updates a user document. A message copy is
// only persisted for registered receivers, so this is the trigger that
// opts a user into the pipeline.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserID         string `json:"user_id"`
		RealName       string `json:"real_name"`
		DisplayName    string `json:"display_name"`
		Email          string `json:"email"`
		SlackTeamID    string `json:"slack_team_id"`
		SlackUserToken string `json:"slack_user_token"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.UserID == "" {
		utils.RespondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	now := h.now()
	fields := store.Fields{
		"user_id":          payload.UserID,
		"real_name":        payload.RealName,
		"display_name":     payload.DisplayName,
		"email":            payload.Email,
		"slack_team_id":    payload.SlackTeamID,
		"slack_user_token": payload.SlackUserToken,
		"updated_at":       now,
	}

	if _, err := h.store.Get(r.Context(), store.UsersCollection, payload.UserID); errors.Is(err, store.ErrNotFound) {
		fields["created_at"] = now
	}

	stored, err := h.store.Upsert(r.Context(), store.UsersCollection, payload.UserID, fields)
	if err != nil {
		h.log.Error("failed to upsert user", zap.String("user_id", payload.UserID), zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to store user")
		return
	}

	h.log.Info("user registered", zap.String("user_id", payload.UserID))
	utils.RespondJSON(w, http.StatusOK, stored)
}

// handleReply forwards text to Slack using the stored per-user token.
func (h *Handler) handleReply(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserID  string `json:"user_id"`
		Channel string `json:"channel"`
		Text    string `json:"text"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.UserID == "" || payload.Channel == "" || payload.Text == "" {
		utils.RespondError(w, http.StatusBadRequest, "user_id, channel and text are required")
		return
	}

	doc, err := h.store.Get(r.Context(), store.UsersCollection, payload.UserID)
	if errors.Is(err, store.ErrNotFound) {
		utils.RespondError(w, http.StatusNotFound, "user not registered")
		return
	}
	if err != nil {
		h.log.Error("failed to look up user", zap.String("user_id", payload.UserID), zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to look up user")
		return
	}

	token, _ := doc["slack_user_token"].(string)
	if token == "" {
		utils.RespondError(w, http.StatusNotFound, "user has no stored token")
		return
	}

	if err := h.messenger.PostMessage(r.Context(), token, payload.Channel, payload.Text); err != nil {
		h.log.Error("failed to forward reply", zap.String("user_id", payload.UserID), zap.Error(err))
		utils.RespondError(w, http.StatusBadGateway, "failed to send message")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
