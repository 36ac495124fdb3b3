// Package sqlitestore persists the ledger in a SQLite database.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/JakeFAU/rsr-sign-scraper/internal/scraper"
)

const schema = `
CREATE TABLE IF NOT EXISTS ledger (
	cid              INTEGER PRIMARY KEY,
	has_image        INTEGER NOT NULL,
	image_downloaded INTEGER NOT NULL,
	last_run_at      TEXT NOT NULL DEFAULT ''
)`

var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 10000",
	"PRAGMA synchronous = NORMAL",
}

// Store is a SQLite-backed ledger.Store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("ledger path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection keeps the pragmas in effect for every statement.
	db.SetMaxOpenConns(1)
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply ledger schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Load returns every entry ordered by CID.
func (s *Store) Load(ctx context.Context) ([]scraper.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cid, has_image, image_downloaded, last_run_at FROM ledger ORDER BY cid`)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close() //nolint:errcheck // rows.Err is checked below

	var out []scraper.LedgerEntry
	for rows.Next() {
		var (
			e          scraper.LedgerEntry
			hasImage   int
			downloaded int
			lastRun    string
		)
		if err := rows.Scan(&e.CID, &hasImage, &downloaded, &lastRun); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		e.HasImage = hasImage != 0
		e.ImageDownloaded = downloaded != 0
		if lastRun != "" {
			ts, err := time.Parse(time.RFC3339, lastRun)
			if err != nil {
				return nil, fmt.Errorf("cid %d last_run_at %q: %w", e.CID, lastRun, err)
			}
			e.LastRunAt = ts
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger: %w", err)
	}
	return out, nil
}

// Upsert inserts or replaces the row for entry.CID.
func (s *Store) Upsert(ctx context.Context, entry scraper.LedgerEntry) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO ledger (cid, has_image, image_downloaded, last_run_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(cid) DO UPDATE SET
	has_image = excluded.has_image,
	image_downloaded = excluded.image_downloaded,
	last_run_at = excluded.last_run_at`,
		entry.CID, boolInt(entry.HasImage), boolInt(entry.ImageDownloaded), formatTime(entry.LastRunAt))
	if err != nil {
		return fmt.Errorf("upsert cid %d: %w", entry.CID, err)
	}
	return nil
}

// Compact is a no-op beyond a WAL checkpoint: the primary key already keeps one row per CID.
func (s *Store) Compact(ctx context.Context, _ []scraper.LedgerEntry) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("checkpoint ledger: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
