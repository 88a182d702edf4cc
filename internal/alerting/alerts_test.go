package alerting

import (
	"testing"
	"time"

	"github.com/componentry/healthmon/internal/config"
	"github.com/componentry/healthmon/internal/models"
)

func healthyInput() Input {
	return Input{
		BlockedTasks:       0,
		ErrorRatePerHour:   0,
		AdoptionScore:      90,
		AccessibilityScore: 95,
		VelocityPerDay:     1,
	}
}

func thresholds() config.ThresholdConfig {
	return config.ThresholdConfig{ErrorRate: 5, Adoption: 50, Accessibility: 80, Velocity: 0.5}
}

func TestEvaluateDedup(t *testing.T) {
	manager := NewManager(100, nil, nil)

	in := healthyInput()
	in.ErrorRatePerHour = 7

	created := manager.Evaluate(in, thresholds())
	if len(created) != 1 {
		t.Fatalf("expected one alert, got %d", len(created))
	}
	if created[0].Category != models.AlertCategoryQuality || created[0].Severity != models.AlertSeverityCritical {
		t.Fatalf("unexpected alert: %+v", created[0])
	}

	// Further breaching evaluations must not duplicate the open alert.
	for i := 0; i < 5; i++ {
		if again := manager.Evaluate(in, thresholds()); len(again) != 0 {
			t.Fatalf("expected no new alerts, got %d", len(again))
		}
	}
	if got := manager.OpenCount(); got != 1 {
		t.Fatalf("expected 1 open alert, got %d", got)
	}
}

func TestAlertsPersistAfterConditionClears(t *testing.T) {
	manager := NewManager(100, nil, nil)

	in := healthyInput()
	in.BlockedTasks = 2
	manager.Evaluate(in, thresholds())

	// Condition clears; the alert stays open until resolved explicitly.
	manager.Evaluate(healthyInput(), thresholds())
	if got := manager.OpenCount(); got != 1 {
		t.Fatalf("expected alert to persist, open=%d", got)
	}
}

func TestResolveLifecycle(t *testing.T) {
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	manager := NewManager(100, func() time.Time { return current }, nil)

	in := healthyInput()
	in.AccessibilityScore = 40
	created := manager.Evaluate(in, thresholds())
	if len(created) != 1 {
		t.Fatalf("expected one alert, got %d", len(created))
	}

	if ok := manager.Resolve(created[0].ID, "operator"); !ok {
		t.Fatalf("expected resolve to succeed")
	}
	if active := manager.Active(); len(active) != 0 {
		t.Fatalf("expected no active alerts, got %d", len(active))
	}

	// Second resolve is a no-op.
	if ok := manager.Resolve(created[0].ID, "someone-else"); !ok {
		t.Fatalf("expected repeated resolve to report success")
	}
	if ok := manager.Resolve("unknown-id", ""); ok {
		t.Fatalf("expected unknown id to report failure")
	}
}

func TestReopenAfterResolve(t *testing.T) {
	manager := NewManager(100, nil, nil)

	in := healthyInput()
	in.ErrorRatePerHour = 9
	created := manager.Evaluate(in, thresholds())
	manager.Resolve(created[0].ID, "op")

	// Still breaching on the next cycle: a fresh alert opens.
	again := manager.Evaluate(in, thresholds())
	if len(again) != 1 {
		t.Fatalf("expected new alert after resolution, got %d", len(again))
	}
	if again[0].ID == created[0].ID {
		t.Fatalf("expected a distinct alert id")
	}
}

func TestActiveSorting(t *testing.T) {
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	manager := NewManager(100, func() time.Time { return current }, nil)

	in := healthyInput()
	in.AdoptionScore = 10
	manager.Evaluate(in, thresholds())

	current = current.Add(time.Minute)
	in = healthyInput()
	in.ErrorRatePerHour = 9
	in.AccessibilityScore = 40
	manager.Evaluate(in, thresholds())

	active := manager.Active()
	if len(active) != 3 {
		t.Fatalf("expected 3 active alerts, got %d", len(active))
	}
	if active[0].Severity != models.AlertSeverityCritical || active[1].Severity != models.AlertSeverityCritical {
		t.Fatalf("expected critical alerts first: %+v", active)
	}
	if active[2].Severity != models.AlertSeverityWarning {
		t.Fatalf("expected warning last: %+v", active[2])
	}
}

func TestPruneOldestFirst(t *testing.T) {
	manager := NewManager(2, nil, nil)

	in := healthyInput()
	in.BlockedTasks = 1
	in.ErrorRatePerHour = 9
	in.AccessibilityScore = 40
	manager.Evaluate(in, thresholds())

	// Three breaches against a capacity of two: the oldest stored alert is gone.
	active := manager.Active()
	if len(active) != 2 {
		t.Fatalf("expected prune to 2 alerts, got %d", len(active))
	}
}
