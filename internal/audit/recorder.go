package audit

import (
	"context"
	"time"

	"log/slog"

	issuemodels "dataguard/internal/issues/models"
	"dataguard/pkg/domain"
)

// Recorder is the non-blocking front door the domain services talk to. It
// enqueues events onto the worker inbox; a full inbox drops the event with
// a log line rather than stalling a scan or a request.
type Recorder struct {
	inbox  chan Event
	logger *slog.Logger
}

// NewRecorder creates a recorder with the given inbox depth.
func NewRecorder(depth int, logger *slog.Logger) *Recorder {
	if depth < 1 {
		depth = 256
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Recorder{inbox: make(chan Event, depth), logger: logger}
}

// Inbox exposes the channel the Worker drains.
func (r *Recorder) Inbox() <-chan Event { return r.inbox }

func (r *Recorder) enqueue(event Event) {
	event.Timestamp = time.Now().UTC()
	select {
	case r.inbox <- event:
	default:
		r.logger.Warn("audit inbox full, dropping event",
			"category", event.Category,
			"action", event.Action,
			"subject", event.Subject,
		)
	}
}

// IssueEvent records an issue lifecycle change.
func (r *Recorder) IssueEvent(_ context.Context, issue *issuemodels.QualityIssue, action, reason string) {
	r.enqueue(Event{
		Category: CategoryIssue,
		Action:   action,
		Subject:  issue.ID.String(),
		AssetID:  issue.AssetID,
		RuleType: issue.RuleType,
		Reason:   reason,
	})
}

// RuleEvent records a rule registry change.
func (r *Recorder) RuleEvent(_ context.Context, ruleType domain.RuleType, action, reason string) {
	r.enqueue(Event{
		Category: CategoryRule,
		Action:   action,
		Subject:  string(ruleType),
		RuleType: ruleType,
		Reason:   reason,
	})
}

// AlertEvent records an alert being raised or acknowledged.
func (r *Recorder) AlertEvent(_ context.Context, alertID string, assetID domain.AssetID, action, reason string) {
	r.enqueue(Event{
		Category: CategoryAlert,
		Action:   action,
		Subject:  alertID,
		AssetID:  assetID,
		Reason:   reason,
	})
}

// ScanEvent records a completed or failed scan pass.
func (r *Recorder) ScanEvent(_ context.Context, ruleType domain.RuleType, action, reason string) {
	r.enqueue(Event{
		Category: CategoryScan,
		Action:   action,
		Subject:  string(ruleType),
		RuleType: ruleType,
		Reason:   reason,
	})
}
