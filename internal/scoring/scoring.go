// Package scoring turns point-in-time store snapshots into the five-dimension
// weighted health score. It holds no state of its own; the monitor keeps the
// most recent score for queries and trend history.
package scoring

import (
	"time"

	"github.com/componentry/healthmon/internal/models"
)

// Snapshot carries the store readings a scoring pass needs. Performance is
// injected by an external collaborator; the engine never measures it itself.
type Snapshot struct {
	MigrationProgress  float64
	Entities           int
	Pages              int
	ErrorRatePerHour   float64
	AccessibilityScore float64
	Performance        float64
}

// Compute derives all sub-scores and the weighted overall score.
func Compute(s Snapshot, at time.Time) models.HealthScore {
	score := models.HealthScore{
		Migration:     clamp(s.MigrationProgress),
		Adoption:      adoptionScore(s.Entities, s.Pages),
		Quality:       qualityScore(s.ErrorRatePerHour),
		Accessibility: clamp(s.AccessibilityScore),
		Performance:   clamp(s.Performance),
		ComputedAt:    at,
	}
	score.Overall = models.WeightMigration*score.Migration +
		models.WeightAdoption*score.Adoption +
		models.WeightQuality*score.Quality +
		models.WeightAccessibility*score.Accessibility +
		models.WeightPerformance*score.Performance
	return score
}

// adoptionScore relates instrumented entities to observed pages, capped at 100.
// With no observed pages there is nothing to adopt yet, which scores clean.
func adoptionScore(entities, pages int) float64 {
	if pages == 0 {
		return 100
	}
	return clamp(float64(entities) / float64(pages) * 100)
}

func qualityScore(ratePerHour float64) float64 {
	return clamp(100 - ratePerHour*10)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
