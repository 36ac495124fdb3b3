// Package history appends one row per run to the run history table.
package history

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/JakeFAU/rsr-sign-scraper/internal/output"
	"github.com/JakeFAU/rsr-sign-scraper/internal/scraper"
)

// Header is the column layout of the history table.
var Header = []string{
	"run_id",
	"started_at",
	"finished_at",
	"mode",
	"start",
	"end",
	"planned",
	"fetched",
	"skipped",
	"failed",
	"images_saved",
	"image_failures",
	"aborted_reason",
}

// Writer implements scraper.HistoryWriter. Rows are only ever appended.
type Writer struct {
	table *output.Table
}

// New opens the history table at path.
func New(path string) (*Writer, error) {
	t, err := output.NewTable(path, Header)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return &Writer{table: t}, nil
}

// Path returns the backing file.
func (w *Writer) Path() string { return w.table.Path() }

// Append writes entry.
func (w *Writer) Append(ctx context.Context, entry scraper.RunHistoryEntry) error {
	if err := w.table.AppendRow(ctx, Format(entry)); err != nil {
		return fmt.Errorf("append history %s: %w", entry.RunID, err)
	}
	return nil
}

// Format renders entry in Header order.
func Format(entry scraper.RunHistoryEntry) []string {
	return []string{
		entry.RunID,
		formatTime(entry.StartedAt),
		formatTime(entry.FinishedAt),
		string(entry.Mode),
		strconv.Itoa(entry.Range.Start),
		strconv.Itoa(entry.Range.End),
		strconv.Itoa(entry.Planned),
		strconv.Itoa(entry.Counts.Fetched),
		strconv.Itoa(entry.Counts.Skipped),
		strconv.Itoa(entry.Counts.Failed),
		strconv.Itoa(entry.Counts.ImagesSaved),
		strconv.Itoa(entry.Counts.ImageFailures),
		entry.AbortedReason,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
