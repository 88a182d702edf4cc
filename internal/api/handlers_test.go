package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/componentry/healthmon/internal/config"
	"github.com/componentry/healthmon/internal/models"
	"github.com/componentry/healthmon/internal/monitor"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testCatalog = `tasks:
  - id: "mig-button"
    component: "Button"
    source: "legacy-button"
    target: "ds-button"
    estimatedEffort: 3
  - id: "mig-modal"
    component: "Modal"
    source: "legacy-modal"
    target: "ds-modal"
    estimatedEffort: 8
`

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()

	catalogPath := filepath.Join(t.TempDir(), "tasks.yaml")
	if err := os.WriteFile(catalogPath, []byte(testCatalog), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Migration.CatalogPath = catalogPath
	cfg.Reporting.RulesPath = ""

	m, err := monitor.New(cfg, nil, nil, nil)
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}

	router := gin.New()
	RegisterRoutes(router, NewHandlers(m, nil))
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	router := setupRouter(t)
	w := doJSON(t, router, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestSubmitUsageAndQuery(t *testing.T) {
	router := setupRouter(t)

	for i := 0; i < 3; i++ {
		w := doJSON(t, router, http.MethodPost, "/v1/events/usage", map[string]any{
			"entity": "ds-button", "page": "/invoices", "variant": "primary",
		})
		if w.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
		}
	}

	w := doJSON(t, router, http.MethodGet, "/v1/usage", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Usage []models.UsageRecord `json:"usage"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Usage) != 1 || resp.Usage[0].Count != 3 {
		t.Fatalf("unexpected usage records: %+v", resp.Usage)
	}
}

func TestSubmitUsageRejectsBadBody(t *testing.T) {
	router := setupRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/events/usage", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestSubmitErrorReturnsRecord(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(t, router, http.MethodPost, "/v1/events/error", map[string]any{
		"component": "InvoiceForm",
		"message":   "Cannot read property 'onClick' of undefined",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var record models.ErrorRecord
	if err := json.Unmarshal(w.Body.Bytes(), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record.ID == "" {
		t.Fatalf("expected record id")
	}
	if record.Category != models.ErrorCategoryComponent {
		t.Fatalf("expected component classification, got %s", record.Category)
	}

	// Missing message is rejected.
	w = doJSON(t, router, http.MethodPost, "/v1/events/error", map[string]any{"component": "X"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty message, got %d", w.Code)
	}
}

func TestErrorQueryFilters(t *testing.T) {
	router := setupRouter(t)

	doJSON(t, router, http.MethodPost, "/v1/events/error", map[string]any{
		"component": "Grid", "message": "render crash",
	})
	doJSON(t, router, http.MethodPost, "/v1/events/error", map[string]any{
		"component": "Modal", "message": "focus trap broken; keyboard users stuck",
	})

	w := doJSON(t, router, http.MethodGet, "/v1/errors?component=Grid", nil)
	var resp struct {
		Errors []models.ErrorRecord `json:"errors"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Errors) != 1 || resp.Errors[0].Component != "Grid" {
		t.Fatalf("unexpected filtered errors: %+v", resp.Errors)
	}

	w = doJSON(t, router, http.MethodGet, "/v1/errors?resolved=maybe", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad resolved filter, got %d", w.Code)
	}
}

func TestMigrationLifecycleOverHTTP(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(t, router, http.MethodPost, "/v1/events/migration", map[string]any{
		"task_id": "mig-button", "status": "in_progress", "progress": 40,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// Unknown task id maps to 404.
	w = doJSON(t, router, http.MethodPost, "/v1/events/migration", map[string]any{
		"task_id": "mig-ghost", "status": "in_progress",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	// Unknown status maps to 400.
	w = doJSON(t, router, http.MethodPost, "/v1/events/migration", map[string]any{
		"task_id": "mig-button", "status": "paused",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	// Blocked without blocker text violates the ledger invariant.
	w = doJSON(t, router, http.MethodPost, "/v1/events/migration", map[string]any{
		"task_id": "mig-button", "status": "blocked",
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}

	// Blockers flow through the dedicated endpoints.
	w = doJSON(t, router, http.MethodPost, "/v1/migration/mig-button/blockers", map[string]any{
		"blocker": "waiting on design tokens",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	w = doJSON(t, router, http.MethodDelete, "/v1/migration/mig-button/blockers", map[string]any{
		"blocker": "waiting on design tokens",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/v1/migration", nil)
	var resp struct {
		Tasks []models.MigrationTask `json:"tasks"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(resp.Tasks))
	}
	for _, task := range resp.Tasks {
		if task.ID == "mig-button" && task.Status != models.MigrationInProgress {
			t.Fatalf("expected mig-button back in progress, got %s", task.Status)
		}
	}
}

func TestScoreEndpoint(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(t, router, http.MethodGet, "/v1/score", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var score models.HealthScore
	if err := json.Unmarshal(w.Body.Bytes(), &score); err != nil {
		t.Fatalf("decode score: %v", err)
	}
	if score.Overall <= 0 || score.Overall > 100 {
		t.Fatalf("overall score out of range: %v", score.Overall)
	}
}

func TestAlertResolutionOverHTTP(t *testing.T) {
	router := setupRouter(t)

	// Drive the accessibility score below the default threshold.
	for _, rule := range []string{"button-accessible-name", "color-contrast", "focus-order"} {
		doJSON(t, router, http.MethodPost, "/v1/events/accessibility", map[string]any{
			"rule_id": rule, "element": "#main",
		})
	}

	// Alerts only open on evaluation ticks; none has run yet.
	w := doJSON(t, router, http.MethodGet, "/v1/alerts", nil)
	var resp struct {
		Alerts []models.Alert `json:"alerts"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode alerts: %v", err)
	}
	if len(resp.Alerts) != 0 {
		t.Fatalf("expected no alerts before an evaluation tick, got %d", len(resp.Alerts))
	}

	w = doJSON(t, router, http.MethodPost, "/v1/alerts/no-such-id/resolve", map[string]any{
		"resolved_by": "operator",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown alert, got %d", w.Code)
	}
}

func TestPerformanceValidation(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(t, router, http.MethodPost, "/v1/events/performance", map[string]any{"score": 64.5})
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/v1/events/performance", map[string]any{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing score, got %d", w.Code)
	}
}

func TestReportEndpoint(t *testing.T) {
	router := setupRouter(t)

	doJSON(t, router, http.MethodPost, "/v1/events/usage", map[string]any{
		"entity": "ds-button", "page": "/invoices",
	})
	doJSON(t, router, http.MethodPost, "/v1/events/ux", map[string]any{
		"type": "click", "component": "ds-button", "success": true,
	})
	doJSON(t, router, http.MethodPost, "/v1/events/ux/task", map[string]any{
		"name": "create-invoice", "duration_ms": 1800, "success": true,
	})

	w := doJSON(t, router, http.MethodGet, "/v1/report", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var rep models.Report
	if err := json.Unmarshal(w.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if rep.Usage.Entities != 1 {
		t.Fatalf("expected one entity, got %d", rep.Usage.Entities)
	}
	if rep.UX.Samples != 1 {
		t.Fatalf("expected one UX sample, got %d", rep.UX.Samples)
	}
	if rep.GeneratedAt.IsZero() {
		t.Fatalf("expected generated_at to be set")
	}
}
