package store

import (
	"testing"
	"time"

	"github.com/componentry/healthmon/internal/models"
)

func TestJournalClassifiesWhenOmitted(t *testing.T) {
	journal := NewJournal(100, nil, nil)

	record := journal.Record(ErrorEvent{Component: "DatePicker", Message: "theme token missing for focus ring"})
	if record.Category != models.ErrorCategoryTheme {
		t.Fatalf("expected theme category, got %s", record.Category)
	}

	record = journal.Record(ErrorEvent{Component: "Form", Message: "Cannot read property 'value' of undefined"})
	if record.Severity != models.SeverityHigh {
		t.Fatalf("expected high severity, got %s", record.Severity)
	}

	record = journal.Record(ErrorEvent{Component: "Grid", Message: "fetch failed with status 502"})
	if record.Category != models.ErrorCategoryIntegration {
		t.Fatalf("expected integration category, got %s", record.Category)
	}
}

func TestJournalPatternClustering(t *testing.T) {
	journal := NewJournal(100, nil, nil)

	messages := []string{
		"Cannot read property 'x' of undefined",
		"Cannot read property 'y' of undefined",
		"Cannot read property 'z' of undefined",
	}
	for _, msg := range messages {
		journal.Record(ErrorEvent{
			Category:  models.ErrorCategoryComponent,
			Component: "InvoiceForm",
			Message:   msg,
		})
	}

	patterns := journal.Patterns()
	if len(patterns) != 1 {
		t.Fatalf("expected one pattern, got %d", len(patterns))
	}
	if patterns[0].Occurrences != 3 {
		t.Fatalf("expected 3 occurrences, got %d", patterns[0].Occurrences)
	}
	if len(patterns[0].Components) != 1 || patterns[0].Components[0] != "InvoiceForm" {
		t.Fatalf("unexpected components: %v", patterns[0].Components)
	}
}

func TestFingerprintNormalization(t *testing.T) {
	a := Fingerprint(models.ErrorCategoryComponent, "Grid", "row 42 failed after 1500ms")
	b := Fingerprint(models.ErrorCategoryComponent, "Grid", "row 7 failed after 30ms")
	if a != b {
		t.Fatalf("expected digit runs to collapse: %q vs %q", a, b)
	}

	c := Fingerprint(models.ErrorCategoryComponent, "", `missing field "taxId"`)
	d := Fingerprint(models.ErrorCategoryComponent, "", `missing field "nip"`)
	if c != d {
		t.Fatalf("expected quoted substrings to collapse: %q vs %q", c, d)
	}
}

func TestJournalEvictionBound(t *testing.T) {
	const max = 50
	journal := NewJournal(max, nil, nil)

	var firstKept models.ErrorRecord
	for i := 0; i < max+50; i++ {
		record := journal.Record(ErrorEvent{Component: "Btn", Message: "boom"})
		if i == 50 {
			firstKept = record
		}
	}

	all := journal.Query(ErrorFilter{})
	if len(all) != max {
		t.Fatalf("expected %d records after eviction, got %d", max, len(all))
	}
	// Query is time-descending; the oldest surviving record is the 51st insert.
	if all[len(all)-1].ID != firstKept.ID {
		t.Fatalf("expected oldest surviving record %s, got %s", firstKept.ID, all[len(all)-1].ID)
	}
}

func TestJournalResolveIdempotent(t *testing.T) {
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	journal := NewJournal(100, func() time.Time { return current }, nil)

	record := journal.Record(ErrorEvent{Component: "Btn", Message: "boom"})
	current = current.Add(time.Minute)
	journal.Resolve(record.ID, "operator")
	firstResolvedAt := current

	current = current.Add(time.Hour)
	journal.Resolve(record.ID, "someone-else")
	journal.Resolve("unknown-id", "")

	resolved := true
	records := journal.Query(ErrorFilter{Resolved: &resolved})
	if len(records) != 1 {
		t.Fatalf("expected one resolved record, got %d", len(records))
	}
	if records[0].ResolvedBy != "operator" {
		t.Fatalf("expected first resolver to stick, got %s", records[0].ResolvedBy)
	}
	if !records[0].ResolvedAt.Equal(firstResolvedAt) {
		t.Fatalf("expected resolvedAt %v, got %v", firstResolvedAt, records[0].ResolvedAt)
	}
}

func TestJournalQueryFilters(t *testing.T) {
	journal := NewJournal(100, nil, nil)
	journal.Record(ErrorEvent{Category: models.ErrorCategoryTheme, Severity: models.SeverityLow, Component: "Card", Message: "one"})
	journal.Record(ErrorEvent{Category: models.ErrorCategoryComponent, Severity: models.SeverityHigh, Component: "Card", Message: "two"})
	journal.Record(ErrorEvent{Category: models.ErrorCategoryComponent, Severity: models.SeverityHigh, Component: "Grid", Message: "three"})

	got := journal.Query(ErrorFilter{Category: models.ErrorCategoryComponent, Component: "Card"})
	if len(got) != 1 || got[0].Message != "two" {
		t.Fatalf("unexpected query result: %+v", got)
	}
}

func TestJournalMetricsRate(t *testing.T) {
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	journal := NewJournal(100, func() time.Time { return current }, nil)

	for i := 0; i < 6; i++ {
		journal.Record(ErrorEvent{Component: "Btn", Message: "boom"})
	}
	current = current.Add(time.Hour)

	m := journal.Metrics()
	if m.RatePerHour < 5.9 || m.RatePerHour > 6.1 {
		t.Fatalf("expected rate near 6/h, got %v", m.RatePerHour)
	}
	if m.Unresolved != 6 {
		t.Fatalf("expected 6 unresolved, got %d", m.Unresolved)
	}
}

func TestJournalMeanResolution(t *testing.T) {
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	journal := NewJournal(100, func() time.Time { return current }, nil)

	record := journal.Record(ErrorEvent{Component: "Btn", Message: "boom"})
	current = current.Add(30 * time.Second)
	journal.Resolve(record.ID, "op")

	m := journal.Metrics()
	if m.MeanResolutionMs != 30000 {
		t.Fatalf("expected 30000ms mean resolution, got %v", m.MeanResolutionMs)
	}
}
