package models

import "time"

// InteractionType enumerates instrumented interaction kinds.
type InteractionType string

const (
	InteractionClick    InteractionType = "click"
	InteractionFocus    InteractionType = "focus"
	InteractionKeyboard InteractionType = "keyboard"
	InteractionTouch    InteractionType = "touch"
	InteractionScroll   InteractionType = "scroll"
	InteractionSubmit   InteractionType = "submit"
)

// UXSample records the outcome of a single user interaction.
type UXSample struct {
	Type      InteractionType `json:"type"`
	Component string          `json:"component"`
	Success   bool            `json:"success"`
	Reason    string          `json:"reason,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// AccessibilityViolation records one rule breach reported by the external
// accessibility checker.
type AccessibilityViolation struct {
	RuleID    string    `json:"rule_id"`
	Severity  Severity  `json:"severity"`
	Element   string    `json:"element"`
	Timestamp time.Time `json:"timestamp"`
}

// TaskCompletionStat holds the rolling completion estimate for a named user task.
type TaskCompletionStat struct {
	Name           string  `json:"name"`
	CompletionRate float64 `json:"completion_rate"`
	MeanDurationMs float64 `json:"mean_duration_ms"`
	Samples        int     `json:"samples"`
}

// UXMetrics aggregates store state for scoring and reports.
type UXMetrics struct {
	Samples            int                  `json:"samples"`
	FailedSamples      int                  `json:"failed_samples"`
	Violations         int                  `json:"violations"`
	AccessibilityScore float64              `json:"accessibility_score"`
	TaskCompletions    []TaskCompletionStat `json:"task_completions,omitempty"`
}
