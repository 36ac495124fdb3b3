// Package ledger keeps the CID dedup index in memory on top of a durable Store.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/JakeFAU/rsr-sign-scraper/internal/scraper"
)

// Store persists ledger entries.
type Store interface {
	// Load returns every persisted entry. Later entries for the same CID win.
	Load(ctx context.Context) ([]scraper.LedgerEntry, error)
	// Upsert durably records entry.
	Upsert(ctx context.Context, entry scraper.LedgerEntry) error
	// Compact rewrites the store so it holds exactly entries, one per CID.
	Compact(ctx context.Context, entries []scraper.LedgerEntry) error
	Close() error
}

// Ledger is the in-memory CID index. It is not safe for concurrent use; the
// executor is its only writer.
type Ledger struct {
	store   Store
	entries map[int]scraper.LedgerEntry
}

// Open loads every entry from store.
func Open(ctx context.Context, store Store) (*Ledger, error) {
	if store == nil {
		return nil, errors.New("ledger store is required")
	}
	rows, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	l := &Ledger{
		store:   store,
		entries: make(map[int]scraper.LedgerEntry, len(rows)),
	}
	for _, row := range rows {
		l.entries[row.CID] = row
	}
	return l, nil
}

// Lookup implements scraper.LedgerView.
func (l *Ledger) Lookup(cid int) (scraper.LedgerEntry, bool) {
	e, ok := l.entries[cid]
	return e, ok
}

// Record writes entry through to the store, then updates the index.
func (l *Ledger) Record(ctx context.Context, entry scraper.LedgerEntry) error {
	if entry.CID <= 0 {
		return fmt.Errorf("ledger entry cid must be positive, got %d", entry.CID)
	}
	if err := l.store.Upsert(ctx, entry); err != nil {
		return fmt.Errorf("record cid %d: %w", entry.CID, err)
	}
	l.entries[entry.CID] = entry
	return nil
}

// Len returns the number of processed CIDs.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Entries returns all entries ordered by CID.
func (l *Ledger) Entries() []scraper.LedgerEntry {
	out := make([]scraper.LedgerEntry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CID < out[j].CID })
	return out
}

// Compact asks the store to drop superseded rows.
func (l *Ledger) Compact(ctx context.Context) error {
	if err := l.store.Compact(ctx, l.Entries()); err != nil {
		return fmt.Errorf("compact ledger: %w", err)
	}
	return nil
}

// Close releases the underlying store.
func (l *Ledger) Close() error {
	return l.store.Close()
}

// Stats summarizes ledger state.
type Stats struct {
	Processed        int
	WithImage        int
	Downloaded       int
	PendingDownloads int
	WithoutImage     int
	MinCID           int
	MaxCID           int
}

// Stats computes a summary over the index.
func (l *Ledger) Stats() Stats {
	var s Stats
	for cid, e := range l.entries {
		s.Processed++
		if s.MinCID == 0 || cid < s.MinCID {
			s.MinCID = cid
		}
		if cid > s.MaxCID {
			s.MaxCID = cid
		}
		switch {
		case !e.HasImage:
			s.WithoutImage++
		case e.ImageDownloaded:
			s.WithImage++
			s.Downloaded++
		default:
			s.WithImage++
			s.PendingDownloads++
		}
	}
	return s
}
