package models

import "time"

// AlertCategory enumerates the health dimensions alerts fire against.
type AlertCategory string

const (
	AlertCategoryMigration     AlertCategory = "migration"
	AlertCategoryAdoption      AlertCategory = "adoption"
	AlertCategoryQuality       AlertCategory = "quality"
	AlertCategoryAccessibility AlertCategory = "accessibility"
)

// AlertSeverity orders alerts for operators.
type AlertSeverity string

const (
	AlertSeverityCritical AlertSeverity = "critical"
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityInfo     AlertSeverity = "info"
)

// Alert is one breach of a threshold rule. At most one open alert exists per
// dedup key; alerts stay open until resolved explicitly, even after the
// underlying condition clears.
type Alert struct {
	ID             string        `json:"id"`
	Category       AlertCategory `json:"category"`
	Severity       AlertSeverity `json:"severity"`
	Message        string        `json:"message"`
	ActionRequired string        `json:"action_required"`
	DedupKey       string        `json:"dedup_key"`
	CreatedAt      time.Time     `json:"created_at"`
	Resolved       bool          `json:"resolved"`
	ResolvedAt     *time.Time    `json:"resolved_at,omitempty"`
	ResolvedBy     string        `json:"resolved_by,omitempty"`
}
