package audit

import (
	"time"

	"dataguard/pkg/domain"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Timestamp time.Time       `json:"timestamp"`
	Category  string          `json:"category"`
	Action    string          `json:"action"`
	Subject   string          `json:"subject"`
	AssetID   domain.AssetID  `json:"asset_id,omitempty"`
	RuleType  domain.RuleType `json:"rule_type,omitempty"`
	Reason    string          `json:"reason,omitempty"`
}

// Event categories.
const (
	CategoryIssue = "issue"
	CategoryRule  = "rule"
	CategoryAlert = "alert"
	CategoryScan  = "scan"
)
