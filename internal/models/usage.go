package models

import "time"

// UsageRecord summarises every observation of a single tracked entity.
type UsageRecord struct {
	Entity     string         `json:"entity"`
	Count      int            `json:"count"`
	FirstSeen  time.Time      `json:"first_seen"`
	LastSeen   time.Time      `json:"last_seen"`
	Pages      []string       `json:"pages"`
	Variants   []string       `json:"variants,omitempty"`
	Attributes map[string]int `json:"attributes,omitempty"`
	ErrorIDs   []string       `json:"error_ids,omitempty"`
	Stale      bool           `json:"stale"`
}

// UsageMetrics aggregates registry-wide counts for reports.
type UsageMetrics struct {
	Entities    int      `json:"entities"`
	Pages       int      `json:"pages"`
	TotalEvents int      `json:"total_events"`
	Stale       []string `json:"stale,omitempty"`
}
