package webhook

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ymgch/slack-pulse/backend/internal/model/event"
	eventservice "github.com/ymgch/slack-pulse/backend/internal/service/event"
	"github.com/ymgch/slack-pulse/backend/internal/service/verify"
	"github.com/ymgch/slack-pulse/backend/pkg/utils"
)

// Slack request signing headers.
const (
	headerTimestamp = "X-Slack-Request-Timestamp"
	headerSignature = "X-Slack-Signature"
)

// Handler terminates the Slack Events API webhook.
type Handler struct {
	svc           *eventservice.Service
	signingSecret string
	now           func() time.Time
	log           *zap.Logger
}

// New creates the webhook handler.
func New(svc *eventservice.Service, signingSecret string, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		svc:           svc,
		signingSecret: signingSecret,
		now:           time.Now,
		log:           log,
	}
}

// RegisterRoutes mounts the webhook endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/slack/event", h.handleEvent)
}

// handleEvent parses the envelope first and answers url_verification
// probes before enforcing the signature: Slack's URL check can precede
// signing-secret distribution in a fresh workspace install. All other
// payloads are authenticated before any side effect runs.
func (h *Handler) handleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	env, err := event.ParseEnvelope(body)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if env.IsHandshake() {
		h.log.Info("answering url_verification challenge")
		utils.RespondJSON(w, http.StatusOK, map[string]string{"challenge": env.Challenge})
		return
	}

	ts := r.Header.Get(headerTimestamp)
	sig := r.Header.Get(headerSignature)
	if !verify.Request(body, ts, sig, h.signingSecret, h.now()) {
		h.log.Warn("rejecting webhook with invalid signature")
		utils.RespondError(w, http.StatusForbidden, "invalid signature")
		return
	}

	if env.Type == event.TypeEventCallback {
		if err := h.svc.HandleCallback(r.Context(), env); err != nil {
			if errors.Is(err, eventservice.ErrMissingEventFields) {
				utils.RespondError(w, http.StatusBadRequest, "event is missing required fields")
				return
			}
			// Downstream faults never bounce the webhook; Slack must
			// not retry because of them.
			h.log.Error("event dispatch failed", zap.Error(err))
		}
	}

	utils.RespondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
