package models

import "time"

// CacheStats reports cache hit/miss counters and item counts.
type CacheStats struct {
	Hits      uint64         `json:"hits"`
	Misses    uint64         `json:"misses"`
	Items     int            `json:"items"`
	ByType    map[string]int `json:"by_type"`
	Errors    uint64         `json:"errors"`
	Fallbacks uint64         `json:"fallbacks"`
}

// SourceTest reports the outcome of a provider connectivity test. Latency is
// a coarse bucket string ("fast (<500ms)", "moderate (<2s)", "slow (>=2s)"),
// not a measurement.
type SourceTest struct {
	Provider string    `json:"provider"`
	Success  bool      `json:"success"`
	Latency  string    `json:"latency,omitempty"`
	Error    string    `json:"error,omitempty"`
	TestedAt time.Time `json:"tested_at"`
}

// ValidationIssue flags one bad entry in the persisted source configuration.
type ValidationIssue struct {
	DataType DataType `json:"data_type,omitempty"`
	Provider string   `json:"provider"`
	Problem  string   `json:"problem"`
}

// ValidationReport cross-checks mapping entries against the registry.
type ValidationReport struct {
	Valid  bool              `json:"valid"`
	Issues []ValidationIssue `json:"issues,omitempty"`
}

// HealthReport is the result of a full health check: a cache round-trip
// smoke test plus a connectivity probe per configured provider.
type HealthReport struct {
	CacheOK   bool              `json:"cache_ok"`
	Providers map[string]string `json:"providers"` // provider -> "ok" or error text
	CheckedAt time.Time         `json:"checked_at"`
}
