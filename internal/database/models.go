package database

import (
	"time"
)

// CacheEntry is one cached generator answer.
type CacheEntry struct {
	Key       string    `json:"cache_key"`
	Kind      string    `json:"kind"` // day or month
	Payload   []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// FetchLogEntry records one generator round trip.
type FetchLogEntry struct {
	ID           int64     `json:"id"`
	CacheKey     string    `json:"cache_key"`
	Kind         string    `json:"kind"`
	Success      bool      `json:"success"`
	ErrorMessage *string   `json:"error_message,omitempty"` // nullable
	DurationMs   int64     `json:"duration_ms"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// CacheStats summarizes the cache and the fetch log.
type CacheStats struct {
	Entries       int            `json:"entries"`
	Expired       int            `json:"expired"`
	ByKind        map[string]int `json:"by_kind"`
	Fetches       int            `json:"fetches"`
	FetchFailures int            `json:"fetch_failures"`
	LastFetchAt   *time.Time     `json:"last_fetch_at,omitempty"`
}
