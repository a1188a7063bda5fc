package mediacache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	indexFileName           = "index.db"
	indexSchemaVersion      = 1
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const indexSchema = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);
CREATE TABLE IF NOT EXISTS entries (
    file_name    TEXT PRIMARY KEY,
    kind         TEXT NOT NULL,
    digest       TEXT NOT NULL,
    size_bytes   INTEGER NOT NULL,
    created_at   TEXT NOT NULL,
    last_used_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entries_kind ON entries(kind);
`

// ErrSchemaMismatch indicates the index was written by an incompatible version.
var ErrSchemaMismatch = errors.New("cache index schema version mismatch")

// Entry is one indexed artifact.
type Entry struct {
	FileName   string    `json:"file_name"`
	Kind       string    `json:"kind"`
	Digest     string    `json:"digest"`
	SizeBytes  int64     `json:"size_bytes"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
}

// KindStats aggregates index entries per kind.
type KindStats struct {
	Kind       string `json:"kind"`
	Entries    int    `json:"entries"`
	TotalBytes int64  `json:"total_bytes"`
}

type index struct {
	db *sql.DB
}

func openIndex(ctx context.Context, path string) (*index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache index: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	idx := &index{db: db}
	if err := idx.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

func (i *index) initSchema(ctx context.Context) error {
	if _, err := i.db.ExecContext(ctx, indexSchema); err != nil {
		return fmt.Errorf("create cache index schema: %w", err)
	}
	var version int
	err := i.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := i.db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", indexSchemaVersion); err != nil {
			return fmt.Errorf("record cache index version: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("read cache index version: %w", err)
	case version != indexSchemaVersion:
		return fmt.Errorf("%w: index has version %d, expected %d (run 'lexideck cache clear')",
			ErrSchemaMismatch, version, indexSchemaVersion)
	}
	return nil
}

func (i *index) close() error {
	if i == nil || i.db == nil {
		return nil
	}
	return i.db.Close()
}

// upsert records an artifact; created_at is preserved for existing rows.
func (i *index) upsert(ctx context.Context, e Entry) error {
	now := formatTime(e.LastUsedAt)
	created := formatTime(e.CreatedAt)
	return retryOnBusy(ctx, func() error {
		_, err := i.db.ExecContext(ctx, `
INSERT INTO entries (file_name, kind, digest, size_bytes, created_at, last_used_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(file_name) DO UPDATE SET
    size_bytes = excluded.size_bytes,
    last_used_at = excluded.last_used_at`,
			e.FileName, e.Kind, e.Digest, e.SizeBytes, created, now)
		return err
	})
}

func (i *index) list(ctx context.Context, kind string, limit int) ([]Entry, error) {
	query := "SELECT file_name, kind, digest, size_bytes, created_at, last_used_at FROM entries"
	args := []any{}
	if kind = strings.TrimSpace(kind); kind != "" {
		query += " WHERE kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY last_used_at DESC, file_name"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := i.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cache entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                 Entry
			created, lastUsed string
		)
		if err := rows.Scan(&e.FileName, &e.Kind, &e.Digest, &e.SizeBytes, &created, &lastUsed); err != nil {
			return nil, fmt.Errorf("scan cache entry: %w", err)
		}
		e.CreatedAt = parseTime(created)
		e.LastUsedAt = parseTime(lastUsed)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cache entries: %w", err)
	}
	return entries, nil
}

func (i *index) statsByKind(ctx context.Context) ([]KindStats, error) {
	rows, err := i.db.QueryContext(ctx,
		"SELECT kind, COUNT(1), COALESCE(SUM(size_bytes), 0) FROM entries GROUP BY kind ORDER BY kind")
	if err != nil {
		return nil, fmt.Errorf("aggregate cache entries: %w", err)
	}
	defer rows.Close()
	var stats []KindStats
	for rows.Next() {
		var s KindStats
		if err := rows.Scan(&s.Kind, &s.Entries, &s.TotalBytes); err != nil {
			return nil, fmt.Errorf("scan cache stats: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func (i *index) fileNames(ctx context.Context) ([]string, error) {
	rows, err := i.db.QueryContext(ctx, "SELECT file_name FROM entries")
	if err != nil {
		return nil, fmt.Errorf("list indexed files: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan indexed file: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (i *index) remove(ctx context.Context, fileName string) error {
	return retryOnBusy(ctx, func() error {
		_, err := i.db.ExecContext(ctx, "DELETE FROM entries WHERE file_name = ?", fileName)
		return err
	})
}

func (i *index) removeAll(ctx context.Context) error {
	return retryOnBusy(ctx, func() error {
		_, err := i.db.ExecContext(ctx, "DELETE FROM entries")
		return err
	})
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
