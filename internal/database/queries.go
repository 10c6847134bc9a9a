package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// timeLayout is fixed width so TEXT comparison matches time order.
const timeLayout = "2006-01-02 15:04:05.000"

// fetchLogRetention bounds how long fetch_log rows survive a purge.
const fetchLogRetention = 7 * 24 * time.Hour

// =============================================================================
// Helper Functions
// =============================================================================

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTimestamp parses a timestamp from SQLite TEXT format.
// Tries multiple formats and returns nil if parsing fails.
func parseTimestamp(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}

	for _, layout := range []string{timeLayout, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, ns.String); err == nil {
			return &t
		}
	}
	return nil
}

// =============================================================================
// Response Cache Queries
// =============================================================================

// GetCached retrieves a live cache entry.
// Returns ErrNotFound if the key is missing or the entry has expired.
func (db *DB) GetCached(ctx context.Context, key string) (*CacheEntry, error) {
	query := `
		SELECT cache_key, kind, payload, created_at, expires_at
		FROM response_cache
		WHERE cache_key = ? AND expires_at > ?
	`

	var entry CacheEntry
	var payload string
	var createdAt, expiresAt sql.NullString

	err := db.QueryRowContext(ctx, query, key, formatTimestamp(db.now())).Scan(
		&entry.Key,
		&entry.Kind,
		&payload,
		&createdAt,
		&expiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query cache entry: %w", err)
	}

	entry.Payload = []byte(payload)
	if t := parseTimestamp(createdAt); t != nil {
		entry.CreatedAt = *t
	}
	if t := parseTimestamp(expiresAt); t != nil {
		entry.ExpiresAt = *t
	}

	return &entry, nil
}

// PutCached inserts or replaces a cache entry.
//
// INSERT ... ON CONFLICT ... DO UPDATE keeps this a single idempotent
// statement with no separate existence check.
func (db *DB) PutCached(ctx context.Context, entry *CacheEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = db.now()
	}

	query := `
		INSERT INTO response_cache (cache_key, kind, payload, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			kind = excluded.kind,
			payload = excluded.payload,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`

	_, err := db.ExecContext(ctx, query,
		entry.Key,
		entry.Kind,
		string(entry.Payload),
		formatTimestamp(entry.CreatedAt),
		formatTimestamp(entry.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}

	return nil
}

// PurgeExpired deletes expired cache entries and fetch log rows older than
// the retention window in one transaction. It returns the number of cache
// entries removed.
func (db *DB) PurgeExpired(ctx context.Context) (int64, error) {
	now := db.now()
	var purged int64

	err := db.WithTx(ctx, func(tx *Tx) error {
		result, err := tx.ExecContext(ctx,
			`DELETE FROM response_cache WHERE expires_at <= ?`, formatTimestamp(now))
		if err != nil {
			return fmt.Errorf("purge cache entries: %w", err)
		}
		if purged, err = result.RowsAffected(); err != nil {
			return fmt.Errorf("check rows affected: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM fetch_log WHERE fetched_at < ?`, formatTimestamp(now.Add(-fetchLogRetention))); err != nil {
			return fmt.Errorf("purge fetch log: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return purged, nil
}

// CacheStats returns statistics about the cache and the fetch log.
//
// Useful for:
// - The health endpoint
// - The CLI status output
func (db *DB) CacheStats(ctx context.Context) (*CacheStats, error) {
	stats := CacheStats{ByKind: map[string]int{}}
	now := formatTimestamp(db.now())

	rows, err := db.QueryContext(ctx, `
		SELECT kind,
			COUNT(*),
			COALESCE(SUM(CASE WHEN expires_at <= ? THEN 1 ELSE 0 END), 0)
		FROM response_cache
		GROUP BY kind
	`, now)
	if err != nil {
		return nil, fmt.Errorf("query cache stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var total, expired int
		if err := rows.Scan(&kind, &total, &expired); err != nil {
			return nil, fmt.Errorf("scan cache stats row: %w", err)
		}
		stats.ByKind[kind] = total
		stats.Entries += total
		stats.Expired += expired
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cache stats rows: %w", err)
	}

	var lastFetch sql.NullString
	err = db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN success THEN 0 ELSE 1 END), 0),
			MAX(fetched_at)
		FROM fetch_log
	`).Scan(&stats.Fetches, &stats.FetchFailures, &lastFetch)
	if err != nil {
		return nil, fmt.Errorf("query fetch stats: %w", err)
	}
	stats.LastFetchAt = parseTimestamp(lastFetch)

	return &stats, nil
}

// =============================================================================
// Fetch Log Queries
// =============================================================================

// LogFetch records a generator round trip in the fetch_log table.
func (db *DB) LogFetch(ctx context.Context, entry *FetchLogEntry) error {
	if entry.FetchedAt.IsZero() {
		entry.FetchedAt = db.now()
	}

	query := `
		INSERT INTO fetch_log (
			cache_key, kind, success, error_message, duration_ms, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := db.ExecContext(ctx, query,
		entry.CacheKey,
		entry.Kind,
		entry.Success,
		entry.ErrorMessage,
		entry.DurationMs,
		formatTimestamp(entry.FetchedAt),
	)
	if err != nil {
		return fmt.Errorf("log fetch: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		entry.ID = id
	}

	return nil
}

// RecentFetches retrieves the most recent fetch log entries, newest first.
func (db *DB) RecentFetches(ctx context.Context, limit int) ([]FetchLogEntry, error) {
	query := `
		SELECT id, cache_key, kind, success, error_message, duration_ms, fetched_at
		FROM fetch_log
		ORDER BY fetched_at DESC, id DESC
		LIMIT ?
	`

	rows, err := db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query fetch log: %w", err)
	}
	defer rows.Close()

	logs := []FetchLogEntry{}

	for rows.Next() {
		var entry FetchLogEntry
		var errorMessage, fetchedAt sql.NullString

		err := rows.Scan(
			&entry.ID,
			&entry.CacheKey,
			&entry.Kind,
			&entry.Success,
			&errorMessage,
			&entry.DurationMs,
			&fetchedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan fetch log row: %w", err)
		}

		if errorMessage.Valid {
			entry.ErrorMessage = &errorMessage.String
		}
		if t := parseTimestamp(fetchedAt); t != nil {
			entry.FetchedAt = *t
		}

		logs = append(logs, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fetch log rows: %w", err)
	}

	return logs, nil
}
