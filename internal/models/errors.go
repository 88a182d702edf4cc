package models

import "time"

// ErrorCategory enumerates integration failure domains.
type ErrorCategory string

const (
	ErrorCategoryComponent     ErrorCategory = "component"
	ErrorCategoryTheme         ErrorCategory = "theme"
	ErrorCategoryAccessibility ErrorCategory = "accessibility"
	ErrorCategoryPerformance   ErrorCategory = "performance"
	ErrorCategoryIntegration   ErrorCategory = "integration"
)

// Severity captures impact levels.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ErrorRecord is one classified failure filed against an entity or the system
// at large. Immutable except for the resolution fields.
type ErrorRecord struct {
	ID         string        `json:"id"`
	Timestamp  time.Time     `json:"timestamp"`
	Category   ErrorCategory `json:"category"`
	Severity   Severity      `json:"severity"`
	Component  string        `json:"component,omitempty"`
	Message    string        `json:"message"`
	Resolved   bool          `json:"resolved"`
	ResolvedAt *time.Time    `json:"resolved_at,omitempty"`
	ResolvedBy string        `json:"resolved_by,omitempty"`
}

// ErrorPattern clusters records sharing a normalized message shape, so
// recurring failures surface independently of raw log volume.
type ErrorPattern struct {
	Key         string    `json:"key"`
	Occurrences int       `json:"occurrences"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
	Components  []string  `json:"components,omitempty"`
}

// ErrorMetrics aggregates journal state for scoring and reports.
type ErrorMetrics struct {
	Total            int                   `json:"total"`
	ByCategory       map[ErrorCategory]int `json:"by_category,omitempty"`
	BySeverity       map[Severity]int      `json:"by_severity,omitempty"`
	ByComponent      map[string]int        `json:"by_component,omitempty"`
	Unresolved       int                   `json:"unresolved"`
	MeanResolutionMs float64               `json:"mean_resolution_ms"`
	RatePerHour      float64               `json:"rate_per_hour"`
	Patterns         int                   `json:"patterns"`
}
