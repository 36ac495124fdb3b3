package output

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/JakeFAU/rsr-sign-scraper/internal/scraper"
)

// RecordHeader is the column layout of the sign table.
var RecordHeader = []string{
	"cid",
	"reference_number",
	"name",
	"reference_tome_v",
	"reference_vhr",
	"description",
	"usages",
	"colors",
	"film_type",
	"dimensions",
	"has_image",
	"image_url",
	"image_path",
	"scraped_at",
}

const (
	setSeparator       = "; "
	dimensionSeparator = " | "
)

// RecordWriter implements scraper.RecordWriter over a CSV Table.
type RecordWriter struct {
	table *Table
}

// NewRecordWriter opens the sign table at path.
func NewRecordWriter(path string) (*RecordWriter, error) {
	t, err := NewTable(path, RecordHeader)
	if err != nil {
		return nil, err
	}
	return &RecordWriter{table: t}, nil
}

// Path returns the backing file.
func (w *RecordWriter) Path() string { return w.table.Path() }

// Append writes rec as one row.
func (w *RecordWriter) Append(ctx context.Context, rec scraper.SignRecord) error {
	if err := w.table.AppendRow(ctx, FormatRecord(rec)); err != nil {
		return fmt.Errorf("append record cid %d: %w", rec.CID, err)
	}
	return nil
}

// FormatRecord renders rec in RecordHeader order.
func FormatRecord(rec scraper.SignRecord) []string {
	scrapedAt := ""
	if !rec.ScrapedAt.IsZero() {
		scrapedAt = rec.ScrapedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		strconv.Itoa(rec.CID),
		rec.ReferenceNumber,
		rec.Name,
		rec.ReferenceTomeV,
		rec.ReferenceVHR,
		rec.Description,
		strings.Join(rec.Usages, setSeparator),
		strings.Join(rec.Colors, setSeparator),
		rec.FilmType,
		FormatDimensions(rec.Dimensions),
		strconv.FormatBool(rec.HasImage),
		rec.ImageURL,
		rec.ImagePath,
		scrapedAt,
	}
}

// FormatDimensions renders dimensions as "600 x 600 (P-1-60) | 750 x 750 (P-1-75)".
func FormatDimensions(dims []scraper.Dimension) string {
	parts := make([]string, 0, len(dims))
	for _, d := range dims {
		switch {
		case d.IMPCode == "":
			parts = append(parts, d.Millimetres)
		case d.Millimetres == "":
			parts = append(parts, "("+d.IMPCode+")")
		default:
			parts = append(parts, d.Millimetres+" ("+d.IMPCode+")")
		}
	}
	return strings.Join(parts, dimensionSeparator)
}
