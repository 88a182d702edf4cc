package store

import (
	"sort"
	"sync"
	"time"

	"github.com/componentry/healthmon/internal/models"
)

// Registry tracks per-entity usage: counters, contexts, variants, attribute
// frequencies and linked errors. Records are never deleted; entities unseen for
// longer than the staleness window are flagged, not removed.
type Registry struct {
	mu      sync.Mutex
	now     func() time.Time
	records map[string]*usageEntry
}

type usageEntry struct {
	count     int
	firstSeen time.Time
	lastSeen  time.Time
	pages     map[string]struct{}
	variants  map[string]struct{}
	attrs     map[string]int
	errorIDs  []string
}

// NewRegistry constructs an empty registry. now may be nil for wall-clock time.
func NewRegistry(now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{now: now, records: make(map[string]*usageEntry)}
}

// Record accumulates one usage observation. Repeated calls accumulate; they are
// not deduplicated. Returns false when the entity key is empty, in which case
// nothing is recorded and the gateway counts the drop.
func (r *Registry) Record(entity, page, variant string, attrs []string) bool {
	if entity == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ts := r.now()
	entry, ok := r.records[entity]
	if !ok {
		entry = &usageEntry{
			firstSeen: ts,
			pages:     make(map[string]struct{}),
			variants:  make(map[string]struct{}),
			attrs:     make(map[string]int),
		}
		r.records[entity] = entry
	}

	entry.count++
	entry.lastSeen = ts
	if page != "" {
		entry.pages[page] = struct{}{}
	}
	if variant != "" {
		entry.variants[variant] = struct{}{}
	}
	for _, attr := range attrs {
		if attr == "" {
			continue
		}
		entry.attrs[attr]++
	}
	return true
}

// LinkError associates an error identifier with an entity, if known.
func (r *Registry) LinkError(entity, errorID string) {
	if entity == "" || errorID == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.records[entity]; ok {
		entry.errorIDs = append(entry.errorIDs, errorID)
	}
}

// Usage returns a copy of one entity's record.
func (r *Registry) Usage(entity string, staleWindow time.Duration) (models.UsageRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.records[entity]
	if !ok {
		return models.UsageRecord{}, false
	}
	return r.copyEntry(entity, entry, staleWindow), true
}

// Snapshot returns copies of all records, sorted by entity key.
func (r *Registry) Snapshot(staleWindow time.Duration) []models.UsageRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.UsageRecord, 0, len(r.records))
	for entity, entry := range r.records {
		out = append(out, r.copyEntry(entity, entry, staleWindow))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Entity < out[j].Entity })
	return out
}

// StaleEntities returns entity keys unseen for longer than window.
func (r *Registry) StaleEntities(window time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-window)
	stale := make([]string, 0)
	for entity, entry := range r.records {
		if entry.lastSeen.Before(cutoff) {
			stale = append(stale, entity)
		}
	}
	sort.Strings(stale)
	return stale
}

// Metrics aggregates registry-wide counts for scoring and reports.
func (r *Registry) Metrics(staleWindow time.Duration) models.UsageMetrics {
	r.mu.Lock()

	pages := make(map[string]struct{})
	total := 0
	cutoff := r.now().Add(-staleWindow)
	stale := make([]string, 0)
	for entity, entry := range r.records {
		total += entry.count
		for page := range entry.pages {
			pages[page] = struct{}{}
		}
		if entry.lastSeen.Before(cutoff) {
			stale = append(stale, entity)
		}
	}
	entities := len(r.records)
	r.mu.Unlock()

	sort.Strings(stale)
	return models.UsageMetrics{
		Entities:    entities,
		Pages:       len(pages),
		TotalEvents: total,
		Stale:       stale,
	}
}

func (r *Registry) copyEntry(entity string, entry *usageEntry, staleWindow time.Duration) models.UsageRecord {
	attrs := make(map[string]int, len(entry.attrs))
	for k, v := range entry.attrs {
		attrs[k] = v
	}
	return models.UsageRecord{
		Entity:     entity,
		Count:      entry.count,
		FirstSeen:  entry.firstSeen,
		LastSeen:   entry.lastSeen,
		Pages:      sortedKeys(entry.pages),
		Variants:   sortedKeys(entry.variants),
		Attributes: attrs,
		ErrorIDs:   append([]string(nil), entry.errorIDs...),
		Stale:      staleWindow > 0 && entry.lastSeen.Before(r.now().Add(-staleWindow)),
	}
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
