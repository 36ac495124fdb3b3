// Package output appends scraped sign records to a CSV table.
package output

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Table appends rows to a CSV file, writing header when the file is empty.
type Table struct {
	path   string
	header []string
}

// NewTable returns a Table for path, creating its parent directory.
func NewTable(path string, header []string) (*Table, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("table path is required")
	}
	if len(header) == 0 {
		return nil, errors.New("table header is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create table dir: %w", err)
	}
	return &Table{path: path, header: header}, nil
}

// Path returns the backing file.
func (t *Table) Path() string { return t.path }

// AppendRow writes one row. The file is opened and closed per call so a crash
// loses at most the row in flight.
func (t *Table) AppendRow(ctx context.Context, row []string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	if len(row) != len(t.header) {
		return fmt.Errorf("row has %d columns, want %d", len(row), len(t.header))
	}
	f, err := os.OpenFile(t.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open %s: %w", t.path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat %s: %w", t.path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(t.header); err != nil {
			_ = f.Close()
			return fmt.Errorf("write header: %w", err)
		}
	}
	if err := w.Write(row); err != nil {
		_ = f.Close()
		return fmt.Errorf("write row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush %s: %w", t.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", t.path, err)
	}
	return nil
}
