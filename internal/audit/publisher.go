// Package audit records an append-only trail of governance actions: issue
// lifecycle changes, rule edits, alerts and scan passes.
package audit

import (
	"context"
	"sync"
	"time"
)

// Sink receives audit events. Implementations must be safe for concurrent
// use.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Publisher captures structured audit events. It is append-only and writes
// through a Sink so tests can swap the backend easily.
type Publisher struct {
	sink Sink
}

// NewPublisher creates a publisher over the given sink.
func NewPublisher(sink Sink) *Publisher {
	return &Publisher{sink: sink}
}

// Emit records one event, stamping the time if the caller did not.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return p.sink.Append(ctx, event)
}

// MemorySink buffers events in memory for development and tests.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Append stores the event.
func (s *MemorySink) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of everything appended so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
