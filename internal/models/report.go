package models

import "time"

// Recommendation is one prioritised action derived from current health state.
// Lower priority values sort first.
type Recommendation struct {
	Priority int    `json:"priority"`
	Action   string `json:"action"`
}

// TrendPoint is one historical snapshot of the headline health signals.
type TrendPoint struct {
	Timestamp     time.Time `json:"timestamp"`
	Velocity      float64   `json:"velocity"`
	ErrorRate     float64   `json:"error_rate"`
	Adoption      float64   `json:"adoption"`
	Accessibility float64   `json:"accessibility"`
}

// Report is the periodic snapshot delivered to the configured sink.
type Report struct {
	GeneratedAt     time.Time        `json:"generated_at"`
	Score           HealthScore      `json:"score"`
	OpenAlerts      []Alert          `json:"open_alerts"`
	Usage           UsageMetrics     `json:"usage"`
	Migration       MigrationMetrics `json:"migration"`
	Errors          ErrorMetrics     `json:"errors"`
	UX              UXMetrics        `json:"ux"`
	Recommendations []Recommendation `json:"recommendations"`
	Trends          []TrendPoint     `json:"trends,omitempty"`
}
