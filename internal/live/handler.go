package live

import (
	"net/http"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Origin policy is enforced upstream; the engine sits behind the
	// platform gateway.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Handler upgrades subscribers onto the hub.
type Handler struct {
	hub    *Hub
	acker  Acknowledger
	logger *slog.Logger
}

// NewHandler creates the live Handler.
func NewHandler(hub *Hub, acker Acknowledger, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{hub: hub, acker: acker, logger: logger}
}

// Register registers the live route with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/live", h.handleLive)
}

func (h *Handler) handleLive(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.logger.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	c := newConn(ws, h.logger)
	h.hub.register(c)
	defer func() {
		h.hub.unregister(c)
		c.close()
	}()

	go c.writeLoop()
	c.readLoop(r.Context(), h.acker)
}
