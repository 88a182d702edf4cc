package store

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/componentry/healthmon/internal/models"
)

// ErrUnknownTask signals an update against a task id absent from the catalog.
var ErrUnknownTask = errors.New("unknown migration task")

// ErrInvalidTransition signals a status change that violates ledger invariants.
var ErrInvalidTransition = errors.New("invalid migration transition")

// TaskSpec is one catalog entry describing a planned migration.
type TaskSpec struct {
	ID              string  `yaml:"id"`
	Component       string  `yaml:"component"`
	Source          string  `yaml:"source"`
	Target          string  `yaml:"target"`
	EstimatedEffort float64 `yaml:"estimatedEffort"`
}

// CatalogFile is the YAML root structure for the task catalog.
type CatalogFile struct {
	Tasks []TaskSpec `yaml:"tasks"`
}

// LoadCatalog reads task specs from the provided path. A missing file yields an
// empty catalog so the ledger still functions with no planned tasks.
func LoadCatalog(path string) ([]TaskSpec, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var file CatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse migration catalog: %w", err)
	}
	return file.Tasks, nil
}

// Ledger tracks migration rollout state for the static task catalog. Invariants:
// a task is Blocked exactly when it carries blockers, and Completed implies
// progress 100.
type Ledger struct {
	mu    sync.Mutex
	now   func() time.Time
	tasks map[string]*models.MigrationTask
	order []string
}

// NewLedger constructs a ledger from catalog specs. now may be nil.
func NewLedger(specs []TaskSpec, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	l := &Ledger{now: now, tasks: make(map[string]*models.MigrationTask, len(specs))}
	for _, spec := range specs {
		if spec.ID == "" {
			continue
		}
		if _, exists := l.tasks[spec.ID]; exists {
			continue
		}
		l.tasks[spec.ID] = &models.MigrationTask{
			ID:              spec.ID,
			Component:       spec.Component,
			Source:          spec.Source,
			Target:          spec.Target,
			Status:          models.MigrationNotStarted,
			EstimatedEffort: spec.EstimatedEffort,
		}
		l.order = append(l.order, spec.ID)
	}
	return l
}

// UpdateStatus applies an explicit status change. Progress, when non-nil, is
// clamped to [0,100]. Transitions that would break the blocked/blockers or
// completed/progress invariants return ErrInvalidTransition.
func (l *Ledger) UpdateStatus(id string, status models.MigrationStatus, progress *float64) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	task, ok := l.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, id)
	}

	if status == models.MigrationBlocked && len(task.Blockers) == 0 {
		return fmt.Errorf("%w: task %s has no blockers", ErrInvalidTransition, id)
	}
	if status != models.MigrationBlocked && len(task.Blockers) > 0 {
		return fmt.Errorf("%w: task %s still has %d blockers", ErrInvalidTransition, id, len(task.Blockers))
	}

	ts := l.now()
	if progress != nil {
		task.Progress = clampProgress(*progress)
	}

	switch status {
	case models.MigrationCompleted:
		task.Progress = 100
		if task.CompletedAt == nil {
			completed := ts
			task.CompletedAt = &completed
		}
		if task.StartedAt == nil {
			started := ts
			task.StartedAt = &started
		}
	case models.MigrationInProgress:
		if task.StartedAt == nil {
			started := ts
			task.StartedAt = &started
		}
		task.CompletedAt = nil
	case models.MigrationNotStarted:
		task.Progress = 0
		task.StartedAt = nil
		task.CompletedAt = nil
	}

	task.Status = status
	return nil
}

// RecordEffort accumulates actual effort spent on a task.
func (l *Ledger) RecordEffort(id string, effort float64) error {
	if effort <= 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	task, ok := l.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, id)
	}
	task.ActualEffort += effort
	return nil
}

// AddBlocker records a blocker and forces the task into Blocked.
func (l *Ledger) AddBlocker(id, text string) error {
	if text == "" {
		return fmt.Errorf("%w: empty blocker", ErrInvalidTransition)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	task, ok := l.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, id)
	}
	for _, existing := range task.Blockers {
		if existing == text {
			task.Status = models.MigrationBlocked
			return nil
		}
	}
	task.Blockers = append(task.Blockers, text)
	task.Status = models.MigrationBlocked
	return nil
}

// RemoveBlocker clears a blocker; removing the last one transitions the task to
// InProgress when it has progress, NotStarted otherwise. Removing a blocker the
// task does not carry is a no-op.
func (l *Ledger) RemoveBlocker(id, text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	task, ok := l.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, id)
	}

	removed := false
	kept := task.Blockers[:0]
	for _, existing := range task.Blockers {
		if existing != text {
			kept = append(kept, existing)
		} else {
			removed = true
		}
	}
	if !removed {
		return nil
	}
	task.Blockers = kept
	if len(task.Blockers) > 0 {
		return nil
	}
	task.Blockers = nil

	if task.Progress > 0 {
		task.Status = models.MigrationInProgress
		if task.StartedAt == nil {
			started := l.now()
			task.StartedAt = &started
		}
	} else {
		task.Status = models.MigrationNotStarted
	}
	return nil
}

// Velocity returns completed tasks per day over the trailing window.
func (l *Ledger) Velocity(windowDays int) float64 {
	if windowDays <= 0 {
		return 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.velocityLocked(windowDays)
}

func (l *Ledger) velocityLocked(windowDays int) float64 {
	cutoff := l.now().Add(-time.Duration(windowDays) * 24 * time.Hour)
	completed := 0
	for _, task := range l.tasks {
		if task.CompletedAt != nil && task.CompletedAt.After(cutoff) {
			completed++
		}
	}
	return float64(completed) / float64(windowDays)
}

// EstimatedCompletion projects when the remaining tasks finish at the current
// velocity. ok is false when velocity is zero.
func (l *Ledger) EstimatedCompletion(windowDays int) (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	velocity := l.velocityLocked(windowDays)
	if velocity <= 0 {
		return time.Time{}, false
	}
	remaining := 0
	for _, task := range l.tasks {
		if task.Status != models.MigrationCompleted {
			remaining++
		}
	}
	days := float64(remaining) / velocity
	return l.now().Add(time.Duration(days * 24 * float64(time.Hour))), true
}

// MeanProgress averages task-level progress, the canonical migration health
// signal. An empty catalog scores 100.
func (l *Ledger) MeanProgress() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.tasks) == 0 {
		return 100
	}
	sum := 0.0
	for _, task := range l.tasks {
		sum += task.Progress
	}
	return sum / float64(len(l.tasks))
}

// Task returns a copy of one task.
func (l *Ledger) Task(id string) (models.MigrationTask, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	task, ok := l.tasks[id]
	if !ok {
		return models.MigrationTask{}, false
	}
	return copyTask(task), true
}

// Snapshot returns copies of all tasks in catalog order.
func (l *Ledger) Snapshot() []models.MigrationTask {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.MigrationTask, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, copyTask(l.tasks[id]))
	}
	return out
}

// Metrics aggregates ledger state for scoring and reports.
func (l *Ledger) Metrics(windowDays int) models.MigrationMetrics {
	l.mu.Lock()
	defer l.mu.Unlock()

	m := models.MigrationMetrics{Tasks: len(l.tasks)}
	sum := 0.0
	for _, task := range l.tasks {
		sum += task.Progress
		switch task.Status {
		case models.MigrationNotStarted:
			m.NotStarted++
		case models.MigrationInProgress:
			m.InProgress++
		case models.MigrationCompleted:
			m.Completed++
		case models.MigrationBlocked:
			m.Blocked++
		}
	}
	if len(l.tasks) == 0 {
		m.MeanProgress = 100
	} else {
		m.MeanProgress = sum / float64(len(l.tasks))
	}
	m.VelocityPerDay = l.velocityLocked(windowDays)
	if m.VelocityPerDay > 0 {
		remaining := m.Tasks - m.Completed
		days := float64(remaining) / m.VelocityPerDay
		eta := l.now().Add(time.Duration(days * 24 * float64(time.Hour)))
		m.EstimatedCompletion = &eta
	}
	return m
}

func copyTask(task *models.MigrationTask) models.MigrationTask {
	out := *task
	out.Blockers = append([]string(nil), task.Blockers...)
	if task.StartedAt != nil {
		started := *task.StartedAt
		out.StartedAt = &started
	}
	if task.CompletedAt != nil {
		completed := *task.CompletedAt
		out.CompletedAt = &completed
	}
	return out
}

func clampProgress(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
