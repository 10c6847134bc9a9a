package database

import (
	"context"
	"time"

	"github.com/zapponejosh/panchang-api/internal/panchang"
)

// ResponseCache adapts DB to panchang.Cache.
type ResponseCache struct {
	db *DB
}

var _ panchang.Cache = (*ResponseCache)(nil)

// NewResponseCache wraps db.
func NewResponseCache(db *DB) *ResponseCache {
	return &ResponseCache{db: db}
}

// Get returns the payload for key. A missing or expired entry is a miss,
// not an error.
func (c *ResponseCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := c.db.GetCached(ctx, key)
	if err != nil {
		if IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return entry.Payload, true, nil
}

// Put stores payload under key for ttl.
func (c *ResponseCache) Put(ctx context.Context, key string, kind panchang.Kind, payload []byte, ttl time.Duration) error {
	now := c.db.now()
	return c.db.PutCached(ctx, &CacheEntry{
		Key:       key,
		Kind:      string(kind),
		Payload:   payload,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	})
}

// LogFetch records rec in the fetch log.
func (c *ResponseCache) LogFetch(ctx context.Context, rec panchang.FetchRecord) error {
	entry := &FetchLogEntry{
		CacheKey:   rec.CacheKey,
		Kind:       string(rec.Kind),
		Success:    rec.Success,
		DurationMs: rec.Duration.Milliseconds(),
	}
	if rec.Error != "" {
		msg := rec.Error
		entry.ErrorMessage = &msg
	}
	return c.db.LogFetch(ctx, entry)
}
