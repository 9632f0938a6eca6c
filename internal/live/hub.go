// Package live pushes quality events to websocket subscribers. The hub owns
// the connection set and fans bus events out filtered by each subscriber's
// asset scope; each connection gets one writer goroutine and a bounded send
// buffer, and a consumer that stops draining is disconnected rather than
// allowed to stall the hub.
package live

import (
	"context"
	"sync"

	"log/slog"

	"dataguard/internal/events"
	"dataguard/pkg/domain"
)

// Hub routes bus events to subscribed connections.
type Hub struct {
	bus    *events.Bus
	logger *slog.Logger

	mu    sync.RWMutex
	conns map[*conn]struct{}
}

// NewHub creates a hub over the given bus.
func NewHub(bus *events.Bus, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Hub{
		bus:    bus,
		logger: logger,
		conns:  make(map[*conn]struct{}),
	}
}

// Run consumes the bus until the context ends, fanning each event out to
// connections whose scope covers it.
func (h *Hub) Run(ctx context.Context) error {
	ch, cancel := h.bus.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return ctx.Err()
		case event, ok := <-ch:
			if !ok {
				h.closeAll()
				return nil
			}
			h.broadcast(event)
		}
	}
}

func (h *Hub) broadcast(event events.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns {
		if !c.wants(event.AssetID) {
			continue
		}
		c.enqueue(serverMessage{
			Type:      string(event.Type),
			Payload:   event.Payload,
			Timestamp: event.Timestamp,
		})
	}
}

func (h *Hub) register(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = struct{}{}
}

func (h *Hub) unregister(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	conns := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.conns = make(map[*conn]struct{})
	h.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
}

// Subscribers reports the current connection count.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// scopeAll is the wildcard subscription covering every asset.
const scopeAll = "all"

// scopeSet tracks one connection's subscribed assets.
type scopeSet struct {
	mu  sync.RWMutex
	ids map[domain.AssetID]struct{}
	all bool
}

func newScopeSet() *scopeSet {
	return &scopeSet{ids: make(map[domain.AssetID]struct{})}
}

func (s *scopeSet) replace(assetIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.all = false
	s.ids = make(map[domain.AssetID]struct{}, len(assetIDs))
	for _, id := range assetIDs {
		if id == scopeAll {
			s.all = true
			continue
		}
		s.ids[domain.AssetID(id)] = struct{}{}
	}
}

func (s *scopeSet) covers(assetID domain.AssetID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.all {
		return true
	}
	// Empty-scoped events are broadcast to everyone with any subscription.
	if assetID == "" {
		return s.all || len(s.ids) > 0
	}
	_, ok := s.ids[assetID]
	return ok
}
