// Package report assembles the periodic health snapshot and delivers it to the
// configured sink.
package report

import (
	"sync"
	"time"

	"github.com/componentry/healthmon/internal/models"
)

// Generator builds reports from current scores, alerts and store metrics, and
// maintains the bounded trend history.
type Generator struct {
	rules *RuleEngine
	trend *trendHistory
}

// NewGenerator constructs a Generator keeping up to historySize trend points.
func NewGenerator(rules *RuleEngine, historySize int) *Generator {
	return &Generator{rules: rules, trend: newTrendHistory(historySize)}
}

// Inputs carries everything one report needs.
type Inputs struct {
	Score      models.HealthScore
	OpenAlerts []models.Alert
	Usage      models.UsageMetrics
	Migration  models.MigrationMetrics
	Errors     models.ErrorMetrics
	UX         models.UXMetrics
}

// Assemble produces a report snapshot from the current trend history without
// extending it, so on-demand reads cannot flush the bounded buffer. OpenAlerts
// is expected pre-sorted by the alert manager (severity then recency).
func (g *Generator) Assemble(in Inputs, at time.Time) models.Report {
	criticalAlerts := 0
	for _, alert := range in.OpenAlerts {
		if alert.Severity == models.AlertSeverityCritical {
			criticalAlerts++
		}
	}

	return models.Report{
		GeneratedAt:     at,
		Score:           in.Score,
		OpenAlerts:      in.OpenAlerts,
		Usage:           in.Usage,
		Migration:       in.Migration,
		Errors:          in.Errors,
		UX:              in.UX,
		Recommendations: g.rules.Recommend(in.Score, criticalAlerts),
		Trends:          g.trend.points(),
	}
}

// AssembleAndRecord appends a trend point for this snapshot before assembling.
// Scheduled reporting passes use it so the history advances once per tick.
func (g *Generator) AssembleAndRecord(in Inputs, at time.Time) models.Report {
	g.trend.push(models.TrendPoint{
		Timestamp:     at,
		Velocity:      in.Migration.VelocityPerDay,
		ErrorRate:     in.Errors.RatePerHour,
		Adoption:      in.Score.Adoption,
		Accessibility: in.Score.Accessibility,
	})
	return g.Assemble(in, at)
}

// trendHistory is a fixed-capacity buffer of recent trend points, oldest first.
type trendHistory struct {
	mu      sync.Mutex
	buf     []models.TrendPoint
	maxSize int
}

func newTrendHistory(maxSize int) *trendHistory {
	if maxSize <= 0 {
		maxSize = 12
	}
	return &trendHistory{maxSize: maxSize}
}

func (t *trendHistory) push(p models.TrendPoint) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buf = append(t.buf, p)
	if len(t.buf) > t.maxSize {
		copy(t.buf[0:], t.buf[1:])
		t.buf = t.buf[:t.maxSize]
	}
}

func (t *trendHistory) points() []models.TrendPoint {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]models.TrendPoint(nil), t.buf...)
}
