package store

import (
	"testing"
	"time"
)

func TestRegistryAccumulates(t *testing.T) {
	registry := NewRegistry(nil)

	for i := 0; i < 5; i++ {
		if ok := registry.Record("ds-button", "/invoices", "primary", []string{"disabled"}); !ok {
			t.Fatalf("expected record to succeed")
		}
	}

	record, ok := registry.Usage("ds-button", 0)
	if !ok {
		t.Fatalf("expected record for ds-button")
	}
	if record.Count != 5 {
		t.Fatalf("expected count 5, got %d", record.Count)
	}
	if len(record.Pages) != 1 {
		t.Fatalf("expected one page, got %v", record.Pages)
	}
	if record.Attributes["disabled"] != 5 {
		t.Fatalf("expected attribute count 5, got %d", record.Attributes["disabled"])
	}
	if record.FirstSeen.After(record.LastSeen) {
		t.Fatalf("first seen %v after last seen %v", record.FirstSeen, record.LastSeen)
	}
}

func TestRegistryDropsEmptyEntity(t *testing.T) {
	registry := NewRegistry(nil)
	if ok := registry.Record("", "/invoices", "", nil); ok {
		t.Fatalf("expected empty entity to be dropped")
	}
	if got := registry.Metrics(time.Hour).Entities; got != 0 {
		t.Fatalf("expected no entities, got %d", got)
	}
}

func TestRegistryStaleEntities(t *testing.T) {
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	registry := NewRegistry(func() time.Time { return current })

	registry.Record("ds-old", "/home", "", nil)
	current = current.Add(48 * time.Hour)
	registry.Record("ds-fresh", "/home", "", nil)

	stale := registry.StaleEntities(24 * time.Hour)
	if len(stale) != 1 || stale[0] != "ds-old" {
		t.Fatalf("expected only ds-old stale, got %v", stale)
	}

	record, _ := registry.Usage("ds-old", 24*time.Hour)
	if !record.Stale {
		t.Fatalf("expected ds-old to be flagged stale")
	}
	record, _ = registry.Usage("ds-fresh", 24*time.Hour)
	if record.Stale {
		t.Fatalf("expected ds-fresh not stale")
	}
}

func TestRegistryMetrics(t *testing.T) {
	registry := NewRegistry(nil)
	registry.Record("ds-button", "/invoices", "", nil)
	registry.Record("ds-button", "/settings", "", nil)
	registry.Record("ds-input", "/invoices", "", nil)

	m := registry.Metrics(time.Hour)
	if m.Entities != 2 {
		t.Fatalf("expected 2 entities, got %d", m.Entities)
	}
	if m.Pages != 2 {
		t.Fatalf("expected 2 pages, got %d", m.Pages)
	}
	if m.TotalEvents != 3 {
		t.Fatalf("expected 3 events, got %d", m.TotalEvents)
	}
}

func TestRegistryLinkError(t *testing.T) {
	registry := NewRegistry(nil)
	registry.Record("ds-table", "/reports", "", nil)
	registry.LinkError("ds-table", "err-1")
	registry.LinkError("ds-unknown", "err-2")

	record, _ := registry.Usage("ds-table", 0)
	if len(record.ErrorIDs) != 1 || record.ErrorIDs[0] != "err-1" {
		t.Fatalf("expected linked error err-1, got %v", record.ErrorIDs)
	}
}
