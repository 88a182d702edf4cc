// Package monitor wires the stores, scoring engine, alert manager and report
// generator into one engine instance: the ingestion gateway for producers, the
// query surface for operators, and the periodic scoring/alerting/reporting loop.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/componentry/healthmon/internal/alerting"
	"github.com/componentry/healthmon/internal/config"
	"github.com/componentry/healthmon/internal/metrics"
	"github.com/componentry/healthmon/internal/models"
	"github.com/componentry/healthmon/internal/report"
	"github.com/componentry/healthmon/internal/scoring"
	"github.com/componentry/healthmon/internal/store"
	"github.com/componentry/healthmon/internal/utils"
)

// Monitor is the integration health engine. Construct with New and share the
// instance by injection; it holds all state and has no package-level siblings.
type Monitor struct {
	cfg    *config.Config
	logger *slog.Logger
	clock  Clock

	usage     *store.Registry
	ledger    *store.Ledger
	journal   *store.Journal
	ux        *store.UXStore
	alerts    *alerting.Manager
	generator *report.Generator
	sink      report.Sink

	mu          sync.Mutex
	lastScore   models.HealthScore
	hasScore    bool
	performance float64

	latencies *utils.LatencyTracker

	scoringBusy   atomic.Bool
	alertingBusy  atomic.Bool
	reportingBusy atomic.Bool

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	started  atomic.Bool
}

// New constructs a Monitor, loading the migration task catalog and the
// recommendation rule pack from the configured paths.
func New(cfg *config.Config, logger *slog.Logger, clock Clock, sink report.Sink) (*Monitor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = RealClock{}
	}
	if sink == nil {
		sink = report.NoopSink{}
	}

	specs, err := store.LoadCatalog(cfg.Migration.CatalogPath)
	if err != nil {
		return nil, utils.NewAppError("monitor.New", "load migration catalog", err)
	}
	rules, err := report.NewRuleEngine(cfg.Reporting.RulesPath, logger)
	if err != nil {
		return nil, utils.NewAppError("monitor.New", "load recommendation rules", err)
	}

	now := clock.Now
	return &Monitor{
		cfg:         cfg,
		logger:      logger,
		clock:       clock,
		usage:       store.NewRegistry(now),
		ledger:      store.NewLedger(specs, now),
		journal:     store.NewJournal(cfg.Monitor.MaxStoredErrors, now, logger),
		ux:          store.NewUXStore(cfg.Monitor.MaxStoredErrors, now),
		alerts:      alerting.NewManager(cfg.Monitor.MaxStoredAlerts, now, logger),
		generator:   report.NewGenerator(rules, cfg.Monitor.TrendHistory),
		sink:        sink,
		performance: 100,
		latencies:   utils.NewLatencyTracker(512),
		stopCh:      make(chan struct{}),
	}, nil
}

// SubmitUsageEvent ingests one usage observation. Empty entity keys are
// dropped and counted, never raised to the producer.
func (m *Monitor) SubmitUsageEvent(entity, page, variant string, attrs []string) {
	if !m.usage.Record(entity, page, variant, attrs) {
		metrics.ObserveDropped()
		m.logger.Debug("dropped usage event with empty entity", slog.String("page", page))
		return
	}
	metrics.ObserveEvent("usage")
}

// SubmitErrorEvent ingests one failure report, classifying and clustering it.
// The stored record is returned so producers can reference its id.
func (m *Monitor) SubmitErrorEvent(ev store.ErrorEvent) models.ErrorRecord {
	if ev.Message == "" {
		metrics.ObserveDropped()
		m.logger.Debug("dropped error event with empty message", slog.String("component", ev.Component))
		return models.ErrorRecord{}
	}
	record := m.journal.Record(ev)
	if ev.Component != "" {
		m.usage.LinkError(ev.Component, record.ID)
	}
	metrics.ObserveEvent("error")
	return record
}

// SubmitMigrationUpdate applies an explicit status change. Invalid transitions
// are returned to the caller so it can correct the request.
func (m *Monitor) SubmitMigrationUpdate(taskID string, status models.MigrationStatus, progress *float64) error {
	if err := m.ledger.UpdateStatus(taskID, status, progress); err != nil {
		return err
	}
	metrics.ObserveEvent("migration")
	return nil
}

// AddBlocker records a blocker against a migration task.
func (m *Monitor) AddBlocker(taskID, text string) error {
	return m.ledger.AddBlocker(taskID, text)
}

// RemoveBlocker clears a blocker from a migration task.
func (m *Monitor) RemoveBlocker(taskID, text string) error {
	return m.ledger.RemoveBlocker(taskID, text)
}

// SubmitUXSample ingests one interaction outcome.
func (m *Monitor) SubmitUXSample(sample models.UXSample) {
	if sample.Component == "" {
		metrics.ObserveDropped()
		m.logger.Debug("dropped UX sample with empty component")
		return
	}
	m.ux.RecordSample(sample)
	metrics.ObserveEvent("ux")
}

// SubmitTaskCompletion folds one user-task outcome into the rolling estimates.
func (m *Monitor) SubmitTaskCompletion(name string, durationMs float64, success bool) {
	if name == "" {
		metrics.ObserveDropped()
		return
	}
	m.ux.TaskCompletion(name, durationMs, success)
	metrics.ObserveEvent("ux_task")
}

// SubmitAccessibilityViolation ingests one rule breach from the external checker.
func (m *Monitor) SubmitAccessibilityViolation(v models.AccessibilityViolation) {
	if v.RuleID == "" {
		metrics.ObserveDropped()
		m.logger.Debug("dropped accessibility violation with empty rule id")
		return
	}
	m.ux.RecordViolation(v)
	metrics.ObserveEvent("accessibility")
}

// SubmitPerformanceScore injects the externally measured performance score.
func (m *Monitor) SubmitPerformanceScore(value float64) {
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}
	m.mu.Lock()
	m.performance = value
	m.mu.Unlock()
	metrics.ObserveEvent("performance")
}

// HealthScore returns the most recent computed score, computing one on demand
// before the first scoring tick.
func (m *Monitor) HealthScore() models.HealthScore {
	m.mu.Lock()
	if m.hasScore {
		score := m.lastScore
		m.mu.Unlock()
		return score
	}
	m.mu.Unlock()
	return m.computeScore()
}

// ActiveAlerts returns open alerts sorted by severity then recency.
func (m *Monitor) ActiveAlerts() []models.Alert {
	return m.alerts.Active()
}

// ResolveAlert closes an alert; repeat calls are no-ops.
func (m *Monitor) ResolveAlert(id, resolvedBy string) bool {
	ok := m.alerts.Resolve(id, resolvedBy)
	metrics.SetOpenAlerts(m.alerts.OpenCount())
	return ok
}

// ResolveError marks an error record resolved.
func (m *Monitor) ResolveError(id, resolvedBy string) {
	m.journal.Resolve(id, resolvedBy)
}

// QueryErrors returns a filtered, time-descending view of the error journal.
func (m *Monitor) QueryErrors(filter store.ErrorFilter) []models.ErrorRecord {
	return m.journal.Query(filter)
}

// ErrorPatterns returns the clustered recurring-failure index.
func (m *Monitor) ErrorPatterns() []models.ErrorPattern {
	return m.journal.Patterns()
}

// UsageRecords returns a copy of all usage records.
func (m *Monitor) UsageRecords() []models.UsageRecord {
	return m.usage.Snapshot(m.cfg.Monitor.StaleEntityWindow)
}

// MigrationTasks returns a copy of all ledger tasks.
func (m *Monitor) MigrationTasks() []models.MigrationTask {
	return m.ledger.Snapshot()
}

// GenerateReport assembles a report on demand without delivering it and
// without advancing the trend history; only reporting ticks record trends.
func (m *Monitor) GenerateReport() models.Report {
	return m.generator.Assemble(m.reportInputs(), m.clock.Now())
}

// Start launches the periodic loop. Safe to call once.
func (m *Monitor) Start() {
	if !m.started.CompareAndSwap(false, true) {
		return
	}
	m.wg.Add(1)
	go m.run()
}

// Stop halts the loop and waits for any in-flight tick to finish.
func (m *Monitor) Stop() {
	if !m.started.Load() {
		return
	}
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()
}

func (m *Monitor) run() {
	defer m.wg.Done()

	scoringTicker := m.clock.NewTicker(m.cfg.Monitor.ScoringInterval)
	defer scoringTicker.Stop()
	alertTicker := m.clock.NewTicker(m.cfg.Monitor.AlertInterval)
	defer alertTicker.Stop()
	reportTicker := m.clock.NewTicker(m.cfg.Monitor.ReportingInterval)
	defer reportTicker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-scoringTicker.C():
			m.dispatch(metrics.PhaseScoring, &m.scoringBusy, m.scoringPass)
		case <-alertTicker.C():
			m.dispatch(metrics.PhaseAlerting, &m.alertingBusy, m.alertPass)
		case <-reportTicker.C():
			m.dispatch(metrics.PhaseReporting, &m.reportingBusy, m.reportPass)
		}
	}
}

// dispatch runs one pass unless the previous pass of the same phase is still
// in flight, in which case the tick is skipped rather than queued.
func (m *Monitor) dispatch(phase string, busy *atomic.Bool, pass func()) {
	if !busy.CompareAndSwap(false, true) {
		metrics.ObserveSkippedTick(phase)
		m.logger.Debug("tick skipped", slog.String("phase", phase))
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer busy.Store(false)

		start := time.Now()
		pass()
		duration := time.Since(start)
		metrics.ObserveTick(phase, duration)
		if phase == metrics.PhaseScoring {
			m.latencies.Observe(duration)
			if count := m.latencies.Count(); count >= 20 && count%20 == 0 {
				m.logger.Info("scoring latency",
					slog.Duration("p95", m.latencies.Percentile(95)),
					slog.Int("samples", count))
			}
		}
	}()
}

func (m *Monitor) scoringPass() {
	score := m.computeScore()
	m.logger.Debug("health score computed",
		slog.Float64("overall", score.Overall),
		slog.Float64("migration", score.Migration),
		slog.Float64("quality", score.Quality))
}

func (m *Monitor) computeScore() models.HealthScore {
	usage := m.usage.Metrics(m.cfg.Monitor.StaleEntityWindow)
	m.mu.Lock()
	performance := m.performance
	m.mu.Unlock()

	score := scoring.Compute(scoring.Snapshot{
		MigrationProgress:  m.ledger.MeanProgress(),
		Entities:           usage.Entities,
		Pages:              usage.Pages,
		ErrorRatePerHour:   m.journal.RatePerHour(),
		AccessibilityScore: m.ux.AccessibilityScore(),
		Performance:        performance,
	}, m.clock.Now())

	m.mu.Lock()
	m.lastScore = score
	m.hasScore = true
	m.mu.Unlock()
	return score
}

func (m *Monitor) alertPass() {
	created := m.EvaluateAlerts()
	if len(created) > 0 {
		m.logger.Info("alerts opened", slog.Int("count", len(created)))
	}
}

// EvaluateAlerts runs one alert evaluation synchronously. Exposed for callers
// that need an immediate evaluation outside the periodic loop.
func (m *Monitor) EvaluateAlerts() []models.Alert {
	migration := m.ledger.Metrics(m.cfg.Monitor.VelocityWindowDays)
	score := m.HealthScore()
	created := m.alerts.Evaluate(alerting.Input{
		BlockedTasks:       migration.Blocked,
		ErrorRatePerHour:   m.journal.RatePerHour(),
		AdoptionScore:      score.Adoption,
		AccessibilityScore: m.ux.AccessibilityScore(),
		VelocityPerDay:     migration.VelocityPerDay,
	}, m.cfg.Thresholds)
	metrics.SetOpenAlerts(m.alerts.OpenCount())
	return created
}

func (m *Monitor) reportInputs() report.Inputs {
	return report.Inputs{
		Score:      m.HealthScore(),
		OpenAlerts: m.alerts.Active(),
		Usage:      m.usage.Metrics(m.cfg.Monitor.StaleEntityWindow),
		Migration:  m.ledger.Metrics(m.cfg.Monitor.VelocityWindowDays),
		Errors:     m.journal.Metrics(),
		UX:         m.ux.Metrics(),
	}
}

// reportPass assembles the report and hands it to the sink without blocking
// the loop: delivery runs in its own goroutine with a bounded timeout, and a
// failure is logged and swallowed until the next scheduled tick.
func (m *Monitor) reportPass() {
	rep := m.generator.AssembleAndRecord(m.reportInputs(), m.clock.Now())

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Sink.Timeout)
		defer cancel()

		if err := m.sink.Deliver(ctx, rep); err != nil {
			metrics.ObserveReportDelivery(metrics.OutcomeError)
			m.logger.Warn("report delivery failed", slog.Any("error", err))
			return
		}
		metrics.ObserveReportDelivery(metrics.OutcomeSuccess)
	}()
}
