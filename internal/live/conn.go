package live

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"

	monitormodels "dataguard/internal/monitor/models"
	"dataguard/pkg/domain"
)

const (
	// pingInterval is how often the server pings each connection.
	pingInterval = 30 * time.Second
	// pongWait allows two missed pongs plus transit slack before the
	// connection is considered dead.
	pongWait = 2*pingInterval + 5*time.Second
	// writeWait bounds a single frame write.
	writeWait = 10 * time.Second
	// sendBuffer is the per-connection outbound queue; overflow drops the
	// connection, not the hub.
	sendBuffer = 32
	// maxMessageSize bounds inbound control messages.
	maxMessageSize = 4 << 10
)

// clientMessage is what subscribers send: subscription changes and alert
// acknowledgements.
type clientMessage struct {
	Type     string   `json:"type"`
	AssetIDs []string `json:"assetIds,omitempty"`
	AlertID  string   `json:"alertId,omitempty"`
}

// serverMessage is the outbound envelope.
type serverMessage struct {
	Type      string    `json:"type"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// conn is one live subscriber.
type conn struct {
	ws     *websocket.Conn
	scope  *scopeSet
	logger *slog.Logger

	// mu guards send and closed: the hub may broadcast concurrently with
	// the handler tearing the connection down.
	mu     sync.Mutex
	send   chan serverMessage
	closed bool
}

func newConn(ws *websocket.Conn, logger *slog.Logger) *conn {
	return &conn{
		ws:     ws,
		scope:  newScopeSet(),
		send:   make(chan serverMessage, sendBuffer),
		logger: logger,
	}
}

func (c *conn) wants(assetID domain.AssetID) bool {
	return c.scope.covers(assetID)
}

// enqueue hands a message to the writer without blocking. A full buffer
// means the consumer stopped draining; drop the connection.
func (c *conn) enqueue(msg serverMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
		c.logger.Warn("disconnecting slow live subscriber")
		c.closeLocked()
	}
}

func (c *conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *conn) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// writeLoop is the single writer for the connection: outbound messages and
// heartbeat pings both go through it.
func (c *conn) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Acknowledger lets subscribers acknowledge alerts over the socket.
type Acknowledger interface {
	Acknowledge(ctx context.Context, id domain.AlertID) (*monitormodels.Alert, error)
}

// readLoop consumes subscription and acknowledgement messages until the
// peer goes away or stops answering pings.
func (c *conn) readLoop(ctx context.Context, acker Acknowledger) {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("live subscriber read failed", "error", err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.logger.Warn("malformed live message", "error", err)
			continue
		}

		switch msg.Type {
		case "subscribe":
			c.scope.replace(msg.AssetIDs)
			// Confirm so clients know from which point events flow.
			c.enqueue(serverMessage{
				Type:      "subscribed",
				Payload:   msg.AssetIDs,
				Timestamp: time.Now().UTC(),
			})
		case "acknowledge":
			c.handleAcknowledge(ctx, acker, msg.AlertID)
		default:
			c.logger.Warn("unknown live message type", "type", msg.Type)
		}
	}
}

func (c *conn) handleAcknowledge(ctx context.Context, acker Acknowledger, rawID string) {
	if acker == nil || rawID == "" {
		return
	}
	id, err := domain.ParseAlertID(rawID)
	if err != nil {
		c.logger.Warn("acknowledge with malformed alert id", "alert_id", rawID)
		return
	}
	if _, err := acker.Acknowledge(ctx, id); err != nil {
		c.logger.Warn("acknowledge failed", "alert_id", rawID, "error", err)
	}
	// The resulting ack event reaches this and every other subscriber
	// through the bus.
}
