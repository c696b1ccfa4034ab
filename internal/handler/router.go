package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ymgch/slack-pulse/backend/internal/handler/user"
	"github.com/ymgch/slack-pulse/backend/internal/handler/webhook"
	"github.com/ymgch/slack-pulse/backend/internal/handler/ws"
	middlewarePkg "github.com/ymgch/slack-pulse/backend/internal/middleware"
	"github.com/ymgch/slack-pulse/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(webhookHandler *webhook.Handler, wsHandler *ws.Handler, userHandler *user.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	webhookHandler.RegisterRoutes(r)
	wsHandler.RegisterRoutes(r)
	userHandler.RegisterRoutes(r)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
