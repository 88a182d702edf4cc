package models

import "time"

// MigrationStatus enumerates rollout states for a migration task.
type MigrationStatus string

const (
	MigrationNotStarted MigrationStatus = "not_started"
	MigrationInProgress MigrationStatus = "in_progress"
	MigrationCompleted  MigrationStatus = "completed"
	MigrationBlocked    MigrationStatus = "blocked"
)

// Valid reports whether the status is one of the known values.
func (s MigrationStatus) Valid() bool {
	switch s {
	case MigrationNotStarted, MigrationInProgress, MigrationCompleted, MigrationBlocked:
		return true
	}
	return false
}

// MigrationTask tracks rollout of target behaviour replacing source behaviour
// for one logical component. Status and blockers are kept consistent: a task is
// blocked exactly when it carries at least one blocker.
type MigrationTask struct {
	ID              string          `json:"id"`
	Component       string          `json:"component"`
	Source          string          `json:"source"`
	Target          string          `json:"target"`
	Status          MigrationStatus `json:"status"`
	Progress        float64         `json:"progress"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	Blockers        []string        `json:"blockers,omitempty"`
	EstimatedEffort float64         `json:"estimated_effort,omitempty"`
	ActualEffort    float64         `json:"actual_effort,omitempty"`
}

// MigrationMetrics aggregates ledger state for scoring and reports.
type MigrationMetrics struct {
	Tasks               int        `json:"tasks"`
	NotStarted          int        `json:"not_started"`
	InProgress          int        `json:"in_progress"`
	Completed           int        `json:"completed"`
	Blocked             int        `json:"blocked"`
	MeanProgress        float64    `json:"mean_progress"`
	VelocityPerDay      float64    `json:"velocity_per_day"`
	EstimatedCompletion *time.Time `json:"estimated_completion,omitempty"`
}
