package models

import "time"

// Sub-score weights for the overall health score.
const (
	WeightMigration     = 0.25
	WeightAdoption      = 0.25
	WeightQuality       = 0.20
	WeightAccessibility = 0.20
	WeightPerformance   = 0.10
)

// HealthScore is the five-dimension weighted summary of integration state.
// Each sub-score sits in [0,100].
type HealthScore struct {
	Migration     float64   `json:"migration"`
	Adoption      float64   `json:"adoption"`
	Quality       float64   `json:"quality"`
	Accessibility float64   `json:"accessibility"`
	Performance   float64   `json:"performance"`
	Overall       float64   `json:"overall"`
	ComputedAt    time.Time `json:"computed_at"`
}
