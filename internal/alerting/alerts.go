// Package alerting evaluates threshold rules against current health state and
// maintains the deduplicated open/resolved alert lifecycle.
package alerting

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/componentry/healthmon/internal/config"
	"github.com/componentry/healthmon/internal/models"
)

// Input carries the signals the rule set is checked against.
type Input struct {
	BlockedTasks       int
	ErrorRatePerHour   float64
	AdoptionScore      float64
	AccessibilityScore float64
	VelocityPerDay     float64
}

// Manager owns the alert store. At most one open alert exists per dedup key;
// alerts stay open until resolved explicitly, even after the breaching
// condition clears. Stored alerts beyond the capacity ceiling are pruned
// oldest-first regardless of resolution state.
type Manager struct {
	mu     sync.Mutex
	now    func() time.Time
	logger *slog.Logger
	max    int
	alerts []*models.Alert
	open   map[string]*models.Alert
}

// NewManager constructs a manager storing up to max alerts. now and logger may
// be nil.
func NewManager(max int, now func() time.Time, logger *slog.Logger) *Manager {
	if max <= 0 {
		max = 200
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{now: now, logger: logger, max: max, open: make(map[string]*models.Alert)}
}

// Evaluate checks the fixed rule set against in. Rules that breach without a
// matching open alert create one; breaches with an existing open alert leave it
// untouched. Returns newly created alerts.
func (m *Manager) Evaluate(in Input, th config.ThresholdConfig) []models.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	var created []models.Alert
	fire := func(category models.AlertCategory, severity models.AlertSeverity, dedup, message, action string) {
		if _, exists := m.open[dedup]; exists {
			return
		}
		alert := &models.Alert{
			ID:             uuid.NewString(),
			Category:       category,
			Severity:       severity,
			Message:        message,
			ActionRequired: action,
			DedupKey:       dedup,
			CreatedAt:      m.now(),
		}
		m.alerts = append(m.alerts, alert)
		m.open[dedup] = alert
		created = append(created, *alert)
		m.logger.Warn("alert opened",
			slog.String("category", string(category)),
			slog.String("severity", string(severity)),
			slog.String("message", message))
	}

	if in.BlockedTasks > 0 {
		fire(models.AlertCategoryMigration, models.AlertSeverityCritical,
			"migration:blocked-tasks",
			fmt.Sprintf("%d migration tasks are blocked", in.BlockedTasks),
			"Unblock migration tasks or re-plan their rollout")
	}
	if in.ErrorRatePerHour > th.ErrorRate {
		fire(models.AlertCategoryQuality, models.AlertSeverityCritical,
			"quality:error-rate",
			fmt.Sprintf("error rate %.1f/h exceeds threshold %.1f/h", in.ErrorRatePerHour, th.ErrorRate),
			"Investigate recurring error patterns and reduce error rate")
	}
	if in.AdoptionScore < th.Adoption {
		fire(models.AlertCategoryAdoption, models.AlertSeverityWarning,
			"adoption:below-threshold",
			fmt.Sprintf("component adoption %.0f%% is below %.0f%%", in.AdoptionScore, th.Adoption),
			"Increase design-system component adoption across pages")
	}
	if in.AccessibilityScore < th.Accessibility {
		fire(models.AlertCategoryAccessibility, models.AlertSeverityCritical,
			"accessibility:below-threshold",
			fmt.Sprintf("accessibility score %.0f is below %.0f", in.AccessibilityScore, th.Accessibility),
			"Address open accessibility violations")
	}
	if th.Velocity > 0 && in.VelocityPerDay < th.Velocity {
		fire(models.AlertCategoryMigration, models.AlertSeverityWarning,
			"migration:velocity",
			fmt.Sprintf("migration velocity %.2f/day is below target %.2f/day", in.VelocityPerDay, th.Velocity),
			"Accelerate migration of remaining components")
	}

	m.pruneLocked()
	return created
}

// pruneLocked drops the oldest stored alerts beyond the ceiling, open or not.
func (m *Manager) pruneLocked() {
	for len(m.alerts) > m.max {
		oldest := m.alerts[0]
		copy(m.alerts[0:], m.alerts[1:])
		m.alerts[len(m.alerts)-1] = nil
		m.alerts = m.alerts[:len(m.alerts)-1]
		if !oldest.Resolved {
			if current, ok := m.open[oldest.DedupKey]; ok && current == oldest {
				delete(m.open, oldest.DedupKey)
			}
		}
	}
}

// Active returns open alerts sorted by severity then recency, both descending.
func (m *Manager) Active() []models.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Alert, 0, len(m.open))
	for _, alert := range m.alerts {
		if !alert.Resolved {
			out = append(out, copyAlert(alert))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := severityRank(out[i].Severity), severityRank(out[j].Severity)
		if ri != rj {
			return ri > rj
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// OpenCount returns the number of open alerts.
func (m *Manager) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.open)
}

// Resolve closes an alert. Returns false for unknown ids; repeated calls are
// no-ops reporting true.
func (m *Manager) Resolve(id, resolvedBy string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, alert := range m.alerts {
		if alert.ID != id {
			continue
		}
		if alert.Resolved {
			return true
		}
		ts := m.now()
		alert.Resolved = true
		alert.ResolvedAt = &ts
		alert.ResolvedBy = resolvedBy
		if current, ok := m.open[alert.DedupKey]; ok && current == alert {
			delete(m.open, alert.DedupKey)
		}
		return true
	}
	m.logger.Debug("resolve ignored for unknown alert", slog.String("id", id))
	return false
}

func severityRank(s models.AlertSeverity) int {
	switch s {
	case models.AlertSeverityCritical:
		return 3
	case models.AlertSeverityWarning:
		return 2
	case models.AlertSeverityInfo:
		return 1
	default:
		return 0
	}
}

func copyAlert(alert *models.Alert) models.Alert {
	out := *alert
	if alert.ResolvedAt != nil {
		ts := *alert.ResolvedAt
		out.ResolvedAt = &ts
	}
	return out
}
