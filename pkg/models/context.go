package models

import "time"

// CachedContext is the LLM-ready serialized form of a snapshot.
// It is process-local and derived: SourceTimestamp ties it to the snapshot
// it was built from, and any mismatch with the live snapshot forces a rebuild.
type CachedContext struct {
	SummaryText     string    `json:"summary_text"`
	StatsSummary    string    `json:"stats_summary"`
	BuiltAt         time.Time `json:"built_at"`
	SourceTimestamp time.Time `json:"source_timestamp"`
	ItemCount       int       `json:"item_count"`
	TokenCount      int       `json:"token_count"`
}

// ContextStatus is the read-only introspection view for health checks.
type ContextStatus struct {
	Cached         bool  `json:"cached"`
	ItemsInContext int   `json:"items_in_context"`
	CacheAgeMs     int64 `json:"cache_age_ms"`
	TokenCount     int   `json:"token_count"`
}
