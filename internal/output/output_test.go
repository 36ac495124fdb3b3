package output

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/rsr-sign-scraper/internal/scraper"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck // test helper
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestNewTableValidates(t *testing.T) {
	t.Parallel()

	_, err := NewTable("", []string{"a"})
	require.Error(t, err)
	_, err = NewTable(filepath.Join(t.TempDir(), "x.csv"), nil)
	require.Error(t, err)
}

func TestTableWritesHeaderOnce(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "t.csv")
	table, err := NewTable(path, []string{"a", "b"})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, table.AppendRow(ctx, []string{"1", "x,y"}))
	require.NoError(t, table.AppendRow(ctx, []string{"2", "z"}))
	require.Error(t, table.AppendRow(ctx, []string{"only one"}))

	assert.Equal(t, [][]string{{"a", "b"}, {"1", "x,y"}, {"2", "z"}}, readCSV(t, path))
}

func TestTableCanceledContext(t *testing.T) {
	t.Parallel()

	table, err := NewTable(filepath.Join(t.TempDir(), "t.csv"), []string{"a"})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, table.AppendRow(ctx, []string{"1"}), context.Canceled)
}

func TestRecordWriterAppend(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "signaux_routiers.csv")
	w, err := NewRecordWriter(path)
	require.NoError(t, err)
	assert.Equal(t, path, w.Path())

	rec := scraper.SignRecord{
		CID:             12392,
		ReferenceNumber: "P-010-1",
		Name:            "Arrêt",
		Usages:          []string{"Chantier", "Intersection"},
		Colors:          []string{"Rouge", "blanc"},
		Dimensions: []scraper.Dimension{
			{Millimetres: "600 x 600", IMPCode: "P-010-1-60"},
			{Millimetres: "750 x 750"},
		},
		HasImage:  true,
		ImageURL:  "https://x.test/img?id=1",
		ImagePath: "images_signaux/P-010-1.png",
		ScrapedAt: time.Date(2024, 5, 1, 8, 0, 0, 0, time.FixedZone("EDT", -4*3600)),
	}
	require.NoError(t, w.Append(context.Background(), rec))

	rows := readCSV(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, RecordHeader, rows[0])
	assert.Equal(t, []string{
		"12392", "P-010-1", "Arrêt", "", "", "",
		"Chantier; Intersection", "Rouge; blanc", "",
		"600 x 600 (P-010-1-60) | 750 x 750",
		"true", "https://x.test/img?id=1", "images_signaux/P-010-1.png",
		"2024-05-01T12:00:00Z",
	}, rows[1])
}

func TestFormatDimensions(t *testing.T) {
	t.Parallel()

	assert.Empty(t, FormatDimensions(nil))
	assert.Equal(t, "(X-1)", FormatDimensions([]scraper.Dimension{{IMPCode: "X-1"}}))
}
