package audit

import (
	"context"

	"log/slog"
)

// Worker consumes audit events from a channel and persists them, keeping
// sink latency off the request and scan paths.
type Worker struct {
	publisher *Publisher
	inbox     <-chan Event
	logger    *slog.Logger
}

// NewWorker wires an inbox to the publisher.
func NewWorker(publisher *Publisher, inbox <-chan Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Worker{publisher: publisher, inbox: inbox, logger: logger}
}

// Run drains the inbox until the context ends. A sink failure is logged and
// the worker keeps going; the audit trail is best-effort when the sink is
// down, and losing one event must not stop the rest.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.publisher.Emit(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "audit event dropped",
					"category", event.Category,
					"action", event.Action,
					"subject", event.Subject,
					"error", err,
				)
			}
		}
	}
}
