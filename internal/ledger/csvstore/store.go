// Package csvstore persists the ledger as a CSV file with one row per update.
package csvstore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/JakeFAU/rsr-sign-scraper/internal/scraper"
)

// Header is the column layout written by this store.
var Header = []string{"cid", "has_image", "image_downloaded", "last_run_at"}

// Store is a CSV-backed ledger.Store. Upserts append; Compact rewrites.
type Store struct {
	path string
}

// New returns a store for path, creating its parent directory.
func New(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("ledger path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	return &Store{path: path}, nil
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.path
}

// Load reads every row. A missing file is an empty ledger. Columns are located
// by header name so older files with only a cid column still load: a row there
// meant the image was saved, so has_image defaults to true.
func (s *Store) Load(ctx context.Context) ([]scraper.LedgerEntry, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open ledger %s: %w", s.path, err)
	}
	defer f.Close() //nolint:errcheck // read-only

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read ledger header: %w", err)
	}
	cols := indexColumns(header)
	if _, ok := cols["cid"]; !ok {
		return nil, fmt.Errorf("ledger %s has no cid column", s.path)
	}

	var out []scraper.LedgerEntry
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("load ledger: %w", err)
		}
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read ledger line %d: %w", line, err)
		}
		entry, err := parseRow(cols, row)
		if err != nil {
			return nil, fmt.Errorf("ledger line %d: %w", line, err)
		}
		out = append(out, entry)
	}
	return out, nil
}

// Upsert appends one row; Load resolves duplicates with last-row-wins.
func (s *Store) Upsert(ctx context.Context, entry scraper.LedgerEntry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open ledger for append: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat ledger: %w", err)
	}
	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			_ = f.Close()
			return fmt.Errorf("write ledger header: %w", err)
		}
	}
	if err := w.Write(formatRow(entry)); err != nil {
		_ = f.Close()
		return fmt.Errorf("write ledger row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush ledger: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close ledger: %w", err)
	}
	return nil
}

// Compact atomically replaces the file with exactly entries.
func (s *Store) Compact(ctx context.Context, entries []scraper.LedgerEntry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("compact: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".ledger-*.csv")
	if err != nil {
		return fmt.Errorf("create temp ledger: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	w := csv.NewWriter(tmp)
	if err := w.Write(Header); err != nil {
		cleanup()
		return fmt.Errorf("write ledger header: %w", err)
	}
	for _, e := range entries {
		if err := w.Write(formatRow(e)); err != nil {
			cleanup()
			return fmt.Errorf("write ledger row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		cleanup()
		return fmt.Errorf("flush ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp ledger: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}

// Close implements ledger.Store; files are opened per operation.
func (s *Store) Close() error {
	return nil
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	return cols
}

func field(cols map[string]int, row []string, name string) (string, bool) {
	idx, ok := cols[name]
	if !ok || idx >= len(row) {
		return "", false
	}
	return strings.TrimSpace(row[idx]), true
}

func parseRow(cols map[string]int, row []string) (scraper.LedgerEntry, error) {
	raw, _ := field(cols, row, "cid")
	cid, err := parseCID(raw)
	if err != nil {
		return scraper.LedgerEntry{}, err
	}
	entry := scraper.LedgerEntry{CID: cid, HasImage: true}

	if v, ok := field(cols, row, "has_image"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return scraper.LedgerEntry{}, fmt.Errorf("has_image %q: %w", v, err)
		}
		entry.HasImage = b
	}
	entry.ImageDownloaded = entry.HasImage
	if v, ok := field(cols, row, "image_downloaded"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return scraper.LedgerEntry{}, fmt.Errorf("image_downloaded %q: %w", v, err)
		}
		entry.ImageDownloaded = b
	}
	if v, ok := field(cols, row, "last_run_at"); ok && v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return scraper.LedgerEntry{}, fmt.Errorf("last_run_at %q: %w", v, err)
		}
		entry.LastRunAt = ts
	}
	return entry, nil
}

// parseCID accepts "123" and the "123.0" form written by dataframe tools.
func parseCID(raw string) (int, error) {
	raw = strings.TrimSuffix(raw, ".0")
	cid, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("cid %q: %w", raw, err)
	}
	if cid <= 0 {
		return 0, fmt.Errorf("cid %d must be positive", cid)
	}
	return cid, nil
}

func formatRow(e scraper.LedgerEntry) []string {
	ts := ""
	if !e.LastRunAt.IsZero() {
		ts = e.LastRunAt.UTC().Format(time.RFC3339)
	}
	return []string{
		strconv.Itoa(e.CID),
		strconv.FormatBool(e.HasImage),
		strconv.FormatBool(e.ImageDownloaded),
		ts,
	}
}
