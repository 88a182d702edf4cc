package store

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/componentry/healthmon/internal/models"
)

// ErrorEvent is a raw failure report from a producer. Category and severity may
// be left empty; the journal classifies them from the message and context.
type ErrorEvent struct {
	Category  models.ErrorCategory
	Severity  models.Severity
	Component string
	Message   string
	Context   string
}

// ErrorFilter narrows Query results. Zero values match everything.
type ErrorFilter struct {
	Category  models.ErrorCategory
	Severity  models.Severity
	Component string
	Resolved  *bool
	Since     time.Time
}

// Journal keeps a bounded FIFO log of classified error records plus a pattern
// index clustering recurring failures by message shape.
type Journal struct {
	mu       sync.Mutex
	now      func() time.Time
	logger   *slog.Logger
	max      int
	records  []*models.ErrorRecord
	byID     map[string]*models.ErrorRecord
	patterns map[string]*models.ErrorPattern
}

// NewJournal constructs a journal storing up to max records. now and logger may
// be nil.
func NewJournal(max int, now func() time.Time, logger *slog.Logger) *Journal {
	if max <= 0 {
		max = 1000
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{
		now:      now,
		logger:   logger,
		max:      max,
		byID:     make(map[string]*models.ErrorRecord),
		patterns: make(map[string]*models.ErrorPattern),
	}
}

// Record classifies, fingerprints and stores a failure. Once the capacity
// ceiling is exceeded the oldest record is evicted silently.
func (j *Journal) Record(ev ErrorEvent) models.ErrorRecord {
	category := ev.Category
	if category == "" {
		category = ClassifyCategory(ev.Message)
	}
	severity := ev.Severity
	if severity == "" {
		severity = ClassifySeverity(ev.Message, ev.Context)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	record := &models.ErrorRecord{
		ID:        uuid.NewString(),
		Timestamp: j.now(),
		Category:  category,
		Severity:  severity,
		Component: ev.Component,
		Message:   ev.Message,
	}

	j.records = append(j.records, record)
	j.byID[record.ID] = record
	if len(j.records) > j.max {
		evicted := j.records[0]
		copy(j.records[0:], j.records[1:])
		j.records[len(j.records)-1] = nil
		j.records = j.records[:len(j.records)-1]
		delete(j.byID, evicted.ID)
	}

	j.upsertPattern(record)
	return *record
}

func (j *Journal) upsertPattern(record *models.ErrorRecord) {
	key := Fingerprint(record.Category, record.Component, record.Message)
	pattern, ok := j.patterns[key]
	if !ok {
		pattern = &models.ErrorPattern{Key: key, FirstSeen: record.Timestamp}
		j.patterns[key] = pattern
	}
	pattern.Occurrences++
	pattern.LastSeen = record.Timestamp
	if record.Component != "" && !containsString(pattern.Components, record.Component) {
		pattern.Components = append(pattern.Components, record.Component)
	}
}

// Resolve marks a record resolved. Unknown ids and repeated calls are no-ops,
// logged at debug.
func (j *Journal) Resolve(id, resolvedBy string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	record, ok := j.byID[id]
	if !ok {
		j.logger.Debug("resolve ignored for unknown error", slog.String("id", id))
		return
	}
	if record.Resolved {
		j.logger.Debug("error already resolved", slog.String("id", id))
		return
	}
	ts := j.now()
	record.Resolved = true
	record.ResolvedAt = &ts
	record.ResolvedBy = resolvedBy
}

// Query returns a time-descending filtered copy of the log.
func (j *Journal) Query(f ErrorFilter) []models.ErrorRecord {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([]models.ErrorRecord, 0)
	for i := len(j.records) - 1; i >= 0; i-- {
		record := j.records[i]
		if f.Category != "" && record.Category != f.Category {
			continue
		}
		if f.Severity != "" && record.Severity != f.Severity {
			continue
		}
		if f.Component != "" && record.Component != f.Component {
			continue
		}
		if f.Resolved != nil && record.Resolved != *f.Resolved {
			continue
		}
		if !f.Since.IsZero() && record.Timestamp.Before(f.Since) {
			continue
		}
		out = append(out, copyRecord(record))
	}
	return out
}

// Patterns returns all clustered patterns, most frequent first.
func (j *Journal) Patterns() []models.ErrorPattern {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([]models.ErrorPattern, 0, len(j.patterns))
	for _, pattern := range j.patterns {
		cp := *pattern
		cp.Components = append([]string(nil), pattern.Components...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Occurrences != out[j].Occurrences {
			return out[i].Occurrences > out[j].Occurrences
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Metrics aggregates journal state. The error rate divides stored records by
// hours elapsed since the oldest stored record, floored at one minute.
func (j *Journal) Metrics() models.ErrorMetrics {
	j.mu.Lock()
	defer j.mu.Unlock()

	m := models.ErrorMetrics{
		Total:       len(j.records),
		ByCategory:  make(map[models.ErrorCategory]int),
		BySeverity:  make(map[models.Severity]int),
		ByComponent: make(map[string]int),
		Patterns:    len(j.patterns),
	}

	resolutionSum := 0.0
	resolvedCount := 0
	for _, record := range j.records {
		m.ByCategory[record.Category]++
		m.BySeverity[record.Severity]++
		if record.Component != "" {
			m.ByComponent[record.Component]++
		}
		if record.Resolved && record.ResolvedAt != nil {
			resolutionSum += float64(record.ResolvedAt.Sub(record.Timestamp).Milliseconds())
			resolvedCount++
		} else {
			m.Unresolved++
		}
	}
	if resolvedCount > 0 {
		m.MeanResolutionMs = resolutionSum / float64(resolvedCount)
	}

	if len(j.records) > 0 {
		hours := j.now().Sub(j.records[0].Timestamp).Hours()
		if hours < 1.0/60 {
			hours = 1.0 / 60
		}
		m.RatePerHour = float64(len(j.records)) / hours
	}
	return m
}

// RatePerHour is a convenience wrapper for the alerting and scoring passes.
func (j *Journal) RatePerHour() float64 {
	return j.Metrics().RatePerHour
}

func copyRecord(record *models.ErrorRecord) models.ErrorRecord {
	out := *record
	if record.ResolvedAt != nil {
		ts := *record.ResolvedAt
		out.ResolvedAt = &ts
	}
	return out
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

var (
	digitRuns  = regexp.MustCompile(`\d+`)
	quotedRuns = regexp.MustCompile(`'[^']*'|"[^"]*"`)
)

const fingerprintMaxLen = 160

// Fingerprint derives the pattern key: category, component (or "unknown") and
// the message with digit runs and quoted substrings replaced by placeholders.
// Errors differing only in literal values collapse into one pattern.
func Fingerprint(category models.ErrorCategory, component, message string) string {
	if component == "" {
		component = "unknown"
	}
	normalized := quotedRuns.ReplaceAllString(message, "<s>")
	normalized = digitRuns.ReplaceAllString(normalized, "<n>")
	key := string(category) + "|" + component + "|" + normalized
	if len(key) > fingerprintMaxLen {
		key = key[:fingerprintMaxLen]
	}
	return key
}

// ClassifyCategory infers a category from message content when the producer
// did not supply one.
func ClassifyCategory(message string) models.ErrorCategory {
	msg := strings.ToLower(message)
	switch {
	case containsAny(msg, "theme", "css", "token", "style"):
		return models.ErrorCategoryTheme
	case containsAny(msg, "aria", "accessib", "contrast", "screen reader"):
		return models.ErrorCategoryAccessibility
	case containsAny(msg, "slow", "timeout", "render", "janky", "performance"):
		return models.ErrorCategoryPerformance
	case containsAny(msg, "fetch", "network", "api", "http", "request"):
		return models.ErrorCategoryIntegration
	default:
		return models.ErrorCategoryComponent
	}
}

// ClassifySeverity infers a severity from message and context content when the
// producer did not supply one.
func ClassifySeverity(message, context string) models.Severity {
	text := strings.ToLower(message + " " + context)
	switch {
	case containsAny(text, "crash", "fatal", "critical"):
		return models.SeverityCritical
	case containsAny(text, "undefined", "null", "cannot read", "not a function"):
		return models.SeverityHigh
	case containsAny(text, "deprecated", "fallback", "warning"):
		return models.SeverityLow
	default:
		return models.SeverityMedium
	}
}

func containsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
