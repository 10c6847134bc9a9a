package database

// migrationsSQL contains all database migrations.
// Migrations are applied in order by version number.
var migrationsSQL = map[int]string{
	1: migrationV1ResponseCache,
	2: migrationV2FetchLog,
}

// migrationV1ResponseCache stores decoded generator answers.
//
// Timestamps are TEXT in a fixed-width UTC layout (see timeLayout) so that
// string comparison orders them correctly.
const migrationV1ResponseCache = `
CREATE TABLE IF NOT EXISTS response_cache (
    -- Deterministic key built from every query field, e.g.
    --   day|2025-01-14|hyderabad, telangana|telugu|andhra
    --   month|2025-01|hyderabad, telangana|andhra
    cache_key TEXT PRIMARY KEY,

    kind TEXT NOT NULL CHECK (kind IN ('day', 'month')),

    -- Normalized JSON as served to clients
    payload TEXT NOT NULL,

    created_at TEXT NOT NULL,
    expires_at TEXT NOT NULL
);

-- Purge scans by expiry
CREATE INDEX IF NOT EXISTS idx_response_cache_expires
    ON response_cache(expires_at);
`

// migrationV2FetchLog records every generator round trip, successful or not.
const migrationV2FetchLog = `
CREATE TABLE IF NOT EXISTS fetch_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    cache_key TEXT NOT NULL,
    kind TEXT NOT NULL,
    success BOOLEAN NOT NULL,
    error_message TEXT,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    fetched_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fetch_log_fetched
    ON fetch_log(fetched_at);
`
