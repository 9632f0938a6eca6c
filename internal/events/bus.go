// Package events is the in-process pub/sub channel between the producers of
// quality signals (monitor, issue lifecycle) and their consumers (websocket
// hub). Delivery is best-effort: a subscriber that stops draining loses
// events rather than stalling publishers.
package events

import (
	"sync"
	"time"

	"log/slog"

	"dataguard/pkg/domain"
)

// Type discriminates event envelopes on the wire and on the bus.
type Type string

const (
	TypeMetricChange Type = "metric_change"
	TypeAlert        Type = "alert"
	TypeAck          Type = "ack"
	TypeIssueChange  Type = "issue_change"
)

// Event is one bus message. AssetID scopes fan-out: subscribers only see
// events for assets they asked for. Events with an empty AssetID are
// broadcast to everyone.
type Event struct {
	Type      Type
	AssetID   domain.AssetID
	Payload   any
	Timestamp time.Time
}

// subscriber is one registered consumer.
type subscriber struct {
	ch chan Event
}

// Bus fans events out to subscribers.
type Bus struct {
	logger     *slog.Logger
	bufferSize int

	mu     sync.RWMutex
	subs   map[int]*subscriber
	nextID int
	closed bool
}

// New creates a bus. bufferSize is the per-subscriber channel depth; events
// beyond it are dropped for that subscriber.
func New(logger *slog.Logger, bufferSize int) *Bus {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if bufferSize < 1 {
		bufferSize = 64
	}
	return &Bus{
		logger:     logger,
		bufferSize: bufferSize,
		subs:       make(map[int]*subscriber),
	}
}

// Subscribe registers a consumer. The returned cancel func must be called
// exactly once; it closes the channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	sub := &subscriber{ch: make(chan Event, b.bufferSize)}
	b.subs[id] = sub

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if s, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(s.ch)
		}
	}
	return sub.ch, cancel
}

// Publish delivers the event to every subscriber without blocking. A full
// subscriber buffer drops the event for that subscriber only.
func (b *Bus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	for _, sub := range b.subs {
		select {
		case sub.ch <- event:
		default:
			b.logger.Warn("dropping event for slow subscriber",
				"type", event.Type,
				"asset_id", event.AssetID,
			)
		}
	}
}

// Close shuts the bus down; subsequent publishes are no-ops and all
// subscriber channels are closed.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}
