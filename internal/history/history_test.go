package history_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/rsr-sign-scraper/internal/history"
	"github.com/JakeFAU/rsr-sign-scraper/internal/scraper"
)

func TestAppendKeepsEarlierRows(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.csv")
	w, err := history.New(path)
	require.NoError(t, err)
	require.Equal(t, path, w.Path())

	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	first := scraper.RunHistoryEntry{
		RunID:      "run-1",
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
		Mode:       scraper.ModeMinimal,
		Range:      scraper.Range{Start: 100, End: 103},
		Planned:    2,
		Counts:     scraper.RunCounts{Fetched: 1, Skipped: 2, Failed: 1, ImagesSaved: 1},
	}
	second := first
	second.RunID = "run-2"
	second.Mode = scraper.ModeFull
	second.FinishedAt = time.Time{}
	second.AbortedReason = "context canceled"

	ctx := context.Background()
	require.NoError(t, w.Append(ctx, first))
	require.NoError(t, w.Append(ctx, second))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t,
		"run_id,started_at,finished_at,mode,start,end,planned,fetched,skipped,failed,images_saved,image_failures,aborted_reason\n"+
			"run-1,2024-05-01T12:00:00Z,2024-05-01T12:01:00Z,minimal,100,103,2,1,2,1,1,0,\n"+
			"run-2,2024-05-01T12:00:00Z,,full,100,103,2,1,2,1,1,0,context canceled\n",
		string(got))
}

func TestNewRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := history.New(" ")
	require.Error(t, err)
}
