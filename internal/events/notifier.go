package events

import (
	issuemodels "dataguard/internal/issues/models"
)

// IssueNotifier adapts the bus to the issue service's notifier port.
type IssueNotifier struct {
	bus *Bus
}

// NewIssueNotifier creates the adapter.
func NewIssueNotifier(bus *Bus) *IssueNotifier {
	return &IssueNotifier{bus: bus}
}

// NotifyIssue publishes an issue lifecycle change scoped to its asset.
func (n *IssueNotifier) NotifyIssue(issue *issuemodels.QualityIssue, action string) {
	n.bus.Publish(Event{
		Type:    TypeIssueChange,
		AssetID: issue.AssetID,
		Payload: map[string]any{
			"action": action,
			"issue":  issue,
		},
	})
}
