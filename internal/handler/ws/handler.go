package ws

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ymgch/slack-pulse/backend/internal/service/hub"
)

// Handler accepts viewer connections and feeds them to the hub.
type Handler struct {
	hub      *hub.Hub
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// New creates the websocket handler.
func New(h *hub.Hub, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		hub: h,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: log,
	}
}

// RegisterRoutes mounts the viewer endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleViewer)
}

// handleViewer upgrades the connection, registers it with the hub and
// runs the receive loop until the remote side closes.
func (h *Handler) handleViewer(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	vc := &viewerConn{id: uuid.NewString(), conn: conn}
	h.hub.Register(vc)
	h.log.Info("viewer websocket accepted", zap.String("conn_id", vc.id))

	defer func() {
		h.hub.Unregister(vc)
		_ = vc.Close()
	}()

	h.readLoop(vc)
}

// readLoop answers the liveness probe and discards everything else.
// Remote close terminates the loop and triggers unregister.
func (h *Handler) readLoop(vc *viewerConn) {
	for {
		_, data, err := vc.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Warn("viewer read error", zap.String("conn_id", vc.id), zap.Error(err))
			}
			return
		}

		if string(data) == "ping" {
			if err := vc.writeText("pong"); err != nil {
				h.log.Warn("failed to answer ping", zap.String("conn_id", vc.id), zap.Error(err))
				return
			}
		}
	}
}

// viewerConn serializes writes to one gorilla connection so hub
// broadcasts and ping replies never interleave a frame.
type viewerConn struct {
	id   string
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *viewerConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *viewerConn) writeText(s string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, []byte(s))
}

func (c *viewerConn) Close() error {
	return c.conn.Close()
}
