package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/componentry/healthmon/internal/models"
	"github.com/componentry/healthmon/internal/store"
)

// Service is the monitor surface the HTTP layer depends on.
type Service interface {
	SubmitUsageEvent(entity, page, variant string, attrs []string)
	SubmitErrorEvent(ev store.ErrorEvent) models.ErrorRecord
	SubmitMigrationUpdate(taskID string, status models.MigrationStatus, progress *float64) error
	AddBlocker(taskID, text string) error
	RemoveBlocker(taskID, text string) error
	SubmitUXSample(sample models.UXSample)
	SubmitTaskCompletion(name string, durationMs float64, success bool)
	SubmitAccessibilityViolation(v models.AccessibilityViolation)
	SubmitPerformanceScore(value float64)
	HealthScore() models.HealthScore
	ActiveAlerts() []models.Alert
	ResolveAlert(id, resolvedBy string) bool
	ResolveError(id, resolvedBy string)
	QueryErrors(filter store.ErrorFilter) []models.ErrorRecord
	ErrorPatterns() []models.ErrorPattern
	UsageRecords() []models.UsageRecord
	MigrationTasks() []models.MigrationTask
	GenerateReport() models.Report
}

// ErrorResponse is the envelope for all error replies.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Handlers binds the monitor service to gin routes.
type Handlers struct {
	svc    Service
	logger *slog.Logger
}

// NewHandlers constructs the route handler set.
func NewHandlers(svc Service, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{svc: svc, logger: logger}
}

// RegisterRoutes attaches every endpoint to the router.
func RegisterRoutes(router *gin.Engine, h *Handlers) {
	router.GET("/healthz", h.Healthz)

	v1 := router.Group("/v1")
	{
		events := v1.Group("/events")
		events.POST("/usage", h.SubmitUsage)
		events.POST("/error", h.SubmitError)
		events.POST("/migration", h.SubmitMigration)
		events.POST("/ux", h.SubmitUXSample)
		events.POST("/ux/task", h.SubmitTaskCompletion)
		events.POST("/accessibility", h.SubmitAccessibility)
		events.POST("/performance", h.SubmitPerformance)

		v1.POST("/migration/:id/blockers", h.AddBlocker)
		v1.DELETE("/migration/:id/blockers", h.RemoveBlocker)
		v1.GET("/migration", h.ListMigrationTasks)

		v1.GET("/score", h.GetScore)
		v1.GET("/alerts", h.ListAlerts)
		v1.POST("/alerts/:id/resolve", h.ResolveAlert)
		v1.GET("/errors", h.ListErrors)
		v1.GET("/errors/patterns", h.ListErrorPatterns)
		v1.POST("/errors/:id/resolve", h.ResolveError)
		v1.GET("/usage", h.ListUsage)
		v1.GET("/report", h.GetReport)
	}
}

// Healthz is the liveness probe.
func (h *Handlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type usageEventRequest struct {
	Entity     string   `json:"entity"`
	Page       string   `json:"page"`
	Variant    string   `json:"variant"`
	Attributes []string `json:"attributes"`
}

// SubmitUsage ingests one usage observation.
func (h *Handlers) SubmitUsage(c *gin.Context) {
	var req usageEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "INVALID_REQUEST"})
		return
	}
	h.svc.SubmitUsageEvent(req.Entity, req.Page, req.Variant, req.Attributes)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

type errorEventRequest struct {
	Category  string `json:"category"`
	Severity  string `json:"severity"`
	Component string `json:"component"`
	Message   string `json:"message"`
	Context   string `json:"context"`
}

// SubmitError ingests one failure report and returns the stored record.
func (h *Handlers) SubmitError(c *gin.Context) {
	var req errorEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "INVALID_REQUEST"})
		return
	}
	if req.Message == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "message is required", Code: "INVALID_REQUEST"})
		return
	}
	record := h.svc.SubmitErrorEvent(store.ErrorEvent{
		Category:  models.ErrorCategory(req.Category),
		Severity:  models.Severity(req.Severity),
		Component: req.Component,
		Message:   req.Message,
		Context:   req.Context,
	})
	c.JSON(http.StatusCreated, record)
}

type migrationUpdateRequest struct {
	TaskID   string   `json:"task_id"`
	Status   string   `json:"status"`
	Progress *float64 `json:"progress"`
}

// SubmitMigration applies a status change to a ledger task.
func (h *Handlers) SubmitMigration(c *gin.Context) {
	var req migrationUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "INVALID_REQUEST"})
		return
	}
	status := models.MigrationStatus(req.Status)
	if !status.Valid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown migration status: " + req.Status, Code: "INVALID_STATUS"})
		return
	}
	if err := h.svc.SubmitMigrationUpdate(req.TaskID, status, req.Progress); err != nil {
		h.writeLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

type blockerRequest struct {
	Blocker string `json:"blocker"`
}

// AddBlocker records a blocker against a migration task.
func (h *Handlers) AddBlocker(c *gin.Context) {
	var req blockerRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Blocker == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "blocker text is required", Code: "INVALID_REQUEST"})
		return
	}
	if err := h.svc.AddBlocker(c.Param("id"), req.Blocker); err != nil {
		h.writeLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "blocked"})
}

// RemoveBlocker clears a blocker from a migration task.
func (h *Handlers) RemoveBlocker(c *gin.Context) {
	var req blockerRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Blocker == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "blocker text is required", Code: "INVALID_REQUEST"})
		return
	}
	if err := h.svc.RemoveBlocker(c.Param("id"), req.Blocker); err != nil {
		h.writeLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "unblocked"})
}

// ListMigrationTasks returns the full ledger.
func (h *Handlers) ListMigrationTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.svc.MigrationTasks()})
}

type uxSampleRequest struct {
	Type      string `json:"type"`
	Component string `json:"component"`
	Success   *bool  `json:"success"`
	Reason    string `json:"reason"`
}

// SubmitUXSample ingests one interaction outcome.
func (h *Handlers) SubmitUXSample(c *gin.Context) {
	var req uxSampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "INVALID_REQUEST"})
		return
	}
	if req.Component == "" || req.Success == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "component and success are required", Code: "INVALID_REQUEST"})
		return
	}
	h.svc.SubmitUXSample(models.UXSample{
		Type:      models.InteractionType(req.Type),
		Component: req.Component,
		Success:   *req.Success,
		Reason:    req.Reason,
	})
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

type taskCompletionRequest struct {
	Name       string  `json:"name"`
	DurationMs float64 `json:"duration_ms"`
	Success    *bool   `json:"success"`
}

// SubmitTaskCompletion folds one user-task outcome into the rolling estimates.
func (h *Handlers) SubmitTaskCompletion(c *gin.Context) {
	var req taskCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "INVALID_REQUEST"})
		return
	}
	if req.Name == "" || req.Success == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "name and success are required", Code: "INVALID_REQUEST"})
		return
	}
	h.svc.SubmitTaskCompletion(req.Name, req.DurationMs, *req.Success)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

type accessibilityRequest struct {
	RuleID   string `json:"rule_id"`
	Severity string `json:"severity"`
	Element  string `json:"element"`
}

// SubmitAccessibility ingests one accessibility rule breach.
func (h *Handlers) SubmitAccessibility(c *gin.Context) {
	var req accessibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RuleID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "rule_id is required", Code: "INVALID_REQUEST"})
		return
	}
	h.svc.SubmitAccessibilityViolation(models.AccessibilityViolation{
		RuleID:   req.RuleID,
		Severity: models.Severity(req.Severity),
		Element:  req.Element,
	})
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

type performanceRequest struct {
	Score *float64 `json:"score"`
}

// SubmitPerformance injects the externally measured performance score.
func (h *Handlers) SubmitPerformance(c *gin.Context) {
	var req performanceRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Score == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "score is required", Code: "INVALID_REQUEST"})
		return
	}
	h.svc.SubmitPerformanceScore(*req.Score)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// GetScore returns the current health score.
func (h *Handlers) GetScore(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.HealthScore())
}

// ListAlerts returns open alerts sorted by severity then recency.
func (h *Handlers) ListAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"alerts": h.svc.ActiveAlerts()})
}

type resolveRequest struct {
	ResolvedBy string `json:"resolved_by"`
}

// ResolveAlert closes an alert by id.
func (h *Handlers) ResolveAlert(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req = resolveRequest{}
	}
	if !h.svc.ResolveAlert(c.Param("id"), req.ResolvedBy) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "alert not found", Code: "NOT_FOUND"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "resolved"})
}

// ResolveError marks an error record resolved. Unknown ids are tolerated.
func (h *Handlers) ResolveError(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req = resolveRequest{}
	}
	h.svc.ResolveError(c.Param("id"), req.ResolvedBy)
	c.JSON(http.StatusOK, gin.H{"status": "resolved"})
}

// ListErrors returns journal records matching the query filters.
func (h *Handlers) ListErrors(c *gin.Context) {
	filter := store.ErrorFilter{
		Category:  models.ErrorCategory(c.Query("category")),
		Severity:  models.Severity(c.Query("severity")),
		Component: c.Query("component"),
	}
	if v := c.Query("resolved"); v != "" {
		resolved, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "resolved must be a boolean", Code: "INVALID_REQUEST"})
			return
		}
		filter.Resolved = &resolved
	}
	if v := c.Query("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "since must be RFC3339", Code: "INVALID_REQUEST"})
			return
		}
		filter.Since = since
	}
	c.JSON(http.StatusOK, gin.H{"errors": h.svc.QueryErrors(filter)})
}

// ListErrorPatterns returns the clustered recurring-failure index.
func (h *Handlers) ListErrorPatterns(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"patterns": h.svc.ErrorPatterns()})
}

// ListUsage returns all tracked entity records.
func (h *Handlers) ListUsage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"usage": h.svc.UsageRecords()})
}

// GetReport assembles and returns a report on demand.
func (h *Handlers) GetReport(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.GenerateReport())
}

func (h *Handlers) writeLedgerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrUnknownTask):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "NOT_FOUND"})
	case errors.Is(err, store.ErrInvalidTransition):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Code: "INVALID_TRANSITION"})
	default:
		h.logger.Error("ledger update failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error", Code: "INTERNAL"})
	}
}
