package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/componentry/healthmon/internal/models"
)

// Accessibility penalty weights, applied once per violation category.
const (
	penaltyMissingName = 30
	penaltyKeyboard    = 20
	penaltyContrast    = 25

	// Categories with more violations than this get their penalty scaled up.
	severityCountThreshold = 5
	severityMultiplier     = 1.5
)

// UXStore keeps interaction samples, accessibility violations and rolling
// task-completion estimates. Samples and violations share the journal's
// bounded FIFO eviction policy.
type UXStore struct {
	mu         sync.Mutex
	now        func() time.Time
	max        int
	samples    []models.UXSample
	violations []models.AccessibilityViolation
	tasks      map[string]*taskStat
}

type taskStat struct {
	rate    float64
	meanMs  float64
	samples int
}

// NewUXStore constructs a store holding up to max samples and max violations.
func NewUXStore(max int, now func() time.Time) *UXStore {
	if max <= 0 {
		max = 1000
	}
	if now == nil {
		now = time.Now
	}
	return &UXStore{now: now, max: max, tasks: make(map[string]*taskStat)}
}

// RecordSample appends one interaction outcome.
func (s *UXStore) RecordSample(sample models.UXSample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sample.Timestamp.IsZero() {
		sample.Timestamp = s.now()
	}
	s.samples = append(s.samples, sample)
	if len(s.samples) > s.max {
		copy(s.samples[0:], s.samples[1:])
		s.samples = s.samples[:s.max]
	}
}

// RecordViolation appends one accessibility rule breach.
func (s *UXStore) RecordViolation(v models.AccessibilityViolation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v.Timestamp.IsZero() {
		v.Timestamp = s.now()
	}
	s.violations = append(s.violations, v)
	if len(s.violations) > s.max {
		copy(s.violations[0:], s.violations[1:])
		s.violations = s.violations[:s.max]
	}
}

// TaskCompletion folds one task outcome into the rolling estimates. Success
// pulls the completion rate toward 1 slowly; failure decays it faster.
func (s *UXStore) TaskCompletion(name string, durationMs float64, success bool) {
	if name == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stat, ok := s.tasks[name]
	if !ok {
		stat = &taskStat{rate: 1, meanMs: durationMs}
		s.tasks[name] = stat
	} else {
		stat.meanMs = (stat.meanMs + durationMs) / 2
	}
	if success {
		stat.rate = (stat.rate + 1) / 2
	} else {
		stat.rate = stat.rate * 0.9
	}
	stat.samples++
}

// AccessibilityScore returns 100 minus per-category penalties: missing
// accessible names, keyboard-navigation errors, and contrast violations each
// count once regardless of volume, scaled up only when a category exceeds the
// count threshold.
func (s *UXStore) AccessibilityScore() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessibilityScoreLocked()
}

func (s *UXStore) accessibilityScoreLocked() float64 {
	missingName := 0
	keyboard := 0
	contrast := 0
	for _, v := range s.violations {
		rule := strings.ToLower(v.RuleID)
		switch {
		case containsAny(rule, "name", "label", "alt"):
			missingName++
		case containsAny(rule, "keyboard", "focus", "tabindex"):
			keyboard++
		case strings.Contains(rule, "contrast"):
			contrast++
		}
	}
	for _, sample := range s.samples {
		if sample.Type == models.InteractionKeyboard && !sample.Success {
			keyboard++
		}
	}

	score := 100.0
	score -= scaledPenalty(penaltyMissingName, missingName)
	score -= scaledPenalty(penaltyKeyboard, keyboard)
	score -= scaledPenalty(penaltyContrast, contrast)
	if score < 0 {
		score = 0
	}
	return score
}

func scaledPenalty(base float64, count int) float64 {
	if count == 0 {
		return 0
	}
	if count > severityCountThreshold {
		return base * severityMultiplier
	}
	return base
}

// Metrics aggregates store state for scoring and reports.
func (s *UXStore) Metrics() models.UXMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := models.UXMetrics{
		Samples:            len(s.samples),
		Violations:         len(s.violations),
		AccessibilityScore: s.accessibilityScoreLocked(),
	}
	for _, sample := range s.samples {
		if !sample.Success {
			m.FailedSamples++
		}
	}
	for name, stat := range s.tasks {
		m.TaskCompletions = append(m.TaskCompletions, models.TaskCompletionStat{
			Name:           name,
			CompletionRate: stat.rate,
			MeanDurationMs: stat.meanMs,
			Samples:        stat.samples,
		})
	}
	sort.Slice(m.TaskCompletions, func(i, j int) bool {
		return m.TaskCompletions[i].Name < m.TaskCompletions[j].Name
	})
	return m
}
