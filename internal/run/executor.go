// Package run drives a planned range of CIDs through fetch, extraction and
// image download, keeping the ledger, output table and run history in step.
package run

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/rsr-sign-scraper/internal/metrics"
	"github.com/JakeFAU/rsr-sign-scraper/internal/planner"
	"github.com/JakeFAU/rsr-sign-scraper/internal/progress"
	"github.com/JakeFAU/rsr-sign-scraper/internal/scraper"
)

// Run statuses recorded in metrics.
const (
	StatusCompleted = "completed"
	StatusAborted   = "aborted"
	StatusFailed    = "failed"
)

// Ledger is the ledger surface the executor needs.
type Ledger interface {
	scraper.Ledger
	Compact(ctx context.Context) error
}

// Deps bundles the collaborators of an Executor.
type Deps struct {
	Fetcher    scraper.PageFetcher
	Extractor  scraper.Extractor
	Downloader scraper.ImageDownloader
	Ledger     Ledger
	Output     scraper.RecordWriter
	History    scraper.HistoryWriter
	Clock      scraper.Clock
	IDs        scraper.IDGenerator
	Progress   progress.Emitter
	Logger     *zap.Logger
}

// Executor runs one invocation at a time. It is not safe for concurrent Run calls.
type Executor struct {
	fetcher    scraper.PageFetcher
	extractor  scraper.Extractor
	downloader scraper.ImageDownloader
	ledger     Ledger
	output     scraper.RecordWriter
	history    scraper.HistoryWriter
	clock      scraper.Clock
	ids        scraper.IDGenerator
	progress   progress.Emitter
	logger     *zap.Logger
}

// New validates deps and builds an Executor.
func New(deps Deps) (*Executor, error) {
	var missing []string
	if deps.Fetcher == nil {
		missing = append(missing, "fetcher")
	}
	if deps.Extractor == nil {
		missing = append(missing, "extractor")
	}
	if deps.Downloader == nil {
		missing = append(missing, "downloader")
	}
	if deps.Ledger == nil {
		missing = append(missing, "ledger")
	}
	if deps.Output == nil {
		missing = append(missing, "output")
	}
	if deps.History == nil {
		missing = append(missing, "history")
	}
	if deps.IDs == nil {
		missing = append(missing, "id generator")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("executor missing dependencies: %v", missing)
	}
	if deps.Clock == nil {
		deps.Clock = scraper.SystemClock{}
	}
	if deps.Progress == nil {
		deps.Progress = progress.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Executor{
		fetcher:    deps.Fetcher,
		extractor:  deps.Extractor,
		downloader: deps.Downloader,
		ledger:     deps.Ledger,
		output:     deps.Output,
		history:    deps.History,
		clock:      deps.Clock,
		ids:        deps.IDs,
		progress:   deps.Progress,
		logger:     deps.Logger,
	}, nil
}

// Run plans r under mode and processes every planned CID in ascending order.
// Exactly one history entry is appended once planning succeeds, including
// when the run is canceled or aborted by a persistence fault. Per-CID fetch,
// extraction and download failures are counted, not returned.
func (e *Executor) Run(ctx context.Context, r scraper.Range, mode scraper.RunMode) (scraper.RunHistoryEntry, error) {
	plan, err := planner.Plan(r, mode, e.ledger)
	if err != nil {
		return scraper.RunHistoryEntry{}, err
	}
	runID, err := e.ids.NewID()
	if err != nil {
		return scraper.RunHistoryEntry{}, fmt.Errorf("new run id: %w", err)
	}

	entry := scraper.RunHistoryEntry{
		RunID:     runID,
		StartedAt: e.clock.Now(),
		Mode:      mode,
		Range:     r,
		Planned:   len(plan),
		Counts:    scraper.RunCounts{Skipped: r.Len() - len(plan)},
	}
	logger := e.logger.With(zap.String("run_id", runID))
	logger.Info("run started",
		zap.String("mode", string(mode)),
		zap.Stringer("range", r),
		zap.Int("planned", entry.Planned),
		zap.Int("skipped", entry.Counts.Skipped),
	)
	metrics.AddSkipped(entry.Counts.Skipped)
	e.emit(progress.Event{RunID: runID, Stage: progress.StageRunStart, Planned: entry.Planned})

	var runErr error
	for _, cid := range plan {
		if ctxErr := ctx.Err(); ctxErr != nil {
			runErr = fmt.Errorf("run %s canceled: %w", runID, ctxErr)
			break
		}
		if err := e.processCID(ctx, runID, cid, &entry.Counts, logger); err != nil {
			runErr = fmt.Errorf("run %s: %w", runID, err)
			break
		}
	}

	return e.finish(ctx, entry, runErr, logger)
}

func (e *Executor) finish(
	ctx context.Context,
	entry scraper.RunHistoryEntry,
	runErr error,
	logger *zap.Logger,
) (scraper.RunHistoryEntry, error) {
	// Bookkeeping must complete even after cancellation.
	persistCtx := context.WithoutCancel(ctx)

	status := StatusCompleted
	stage := progress.StageRunDone
	if runErr != nil {
		entry.AbortedReason = runErr.Error()
		status = StatusFailed
		stage = progress.StageRunAborted
		if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
			status = StatusAborted
		}
	}
	entry.FinishedAt = e.clock.Now()

	errs := []error{runErr}
	if err := e.history.Append(persistCtx, entry); err != nil {
		logger.Error("append run history failed", zap.Error(err))
		errs = append(errs, fmt.Errorf("append history: %w", err))
	}
	if err := e.ledger.Compact(persistCtx); err != nil {
		logger.Error("compact ledger failed", zap.Error(err))
		errs = append(errs, fmt.Errorf("compact ledger: %w", err))
	}

	metrics.ObserveRun(string(entry.Mode), status)
	e.emit(progress.Event{
		RunID: entry.RunID,
		Stage: stage,
		Dur:   nonNegative(entry.FinishedAt.Sub(entry.StartedAt)),
		Note:  entry.AbortedReason,
	})
	logger.Info("run finished",
		zap.String("status", status),
		zap.Int("fetched", entry.Counts.Fetched),
		zap.Int("skipped", entry.Counts.Skipped),
		zap.Int("failed", entry.Counts.Failed),
		zap.Int("images_saved", entry.Counts.ImagesSaved),
		zap.Int("image_failures", entry.Counts.ImageFailures),
		zap.String("aborted_reason", entry.AbortedReason),
	)
	return entry, errors.Join(errs...)
}

// processCID returns an error only for faults that must stop the run.
func (e *Executor) processCID(
	ctx context.Context,
	runID string,
	cid int,
	counts *scraper.RunCounts,
	logger *zap.Logger,
) error {
	logger = logger.With(zap.Int("cid", cid))

	page, err := e.fetcher.FetchPage(ctx, cid)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("fetch cid %d interrupted: %w", cid, ctx.Err())
		}
		counts.Failed++
		metrics.ObserveCID(metrics.OutcomeFetchFailed)
		logger.Warn("fetch failed", zap.Error(err))
		e.emit(progress.Event{RunID: runID, Stage: progress.StageFailed, CID: cid, Note: err.Error()})
		return nil
	}
	e.emit(progress.Event{
		RunID:       runID,
		Stage:       progress.StageFetched,
		CID:         cid,
		URL:         page.URL,
		Bytes:       int64(len(page.Body)),
		StatusClass: progress.ClassifyStatus(page.StatusCode),
		Dur:         nonNegative(page.Duration),
	})

	rec, err := e.extractor.Extract(page)
	if err != nil {
		counts.Failed++
		metrics.ObserveCID(metrics.OutcomeExtractFailed)
		logger.Warn("extraction failed", zap.Error(err))
		e.emit(progress.Event{RunID: runID, Stage: progress.StageFailed, CID: cid, Note: err.Error()})
		return nil
	}
	rec.CID = cid
	e.emit(progress.Event{RunID: runID, Stage: progress.StageExtracted, CID: cid})

	entry := scraper.LedgerEntry{CID: cid, HasImage: rec.HasImage, LastRunAt: e.clock.Now()}
	if rec.HasImage {
		path, err := e.downloader.Download(ctx, cid, rec.ImageURL, rec.ReferenceNumber)
		switch {
		case err != nil && ctx.Err() != nil:
			return fmt.Errorf("download cid %d interrupted: %w", cid, ctx.Err())
		case err != nil:
			counts.ImageFailures++
			if errors.Is(err, scraper.ErrMissingReferenceNumber) {
				metrics.ObserveImage(metrics.ImageMissingReference)
			} else {
				metrics.ObserveImage(metrics.ImageFailed)
			}
			logger.Warn("image download failed", zap.String("image_url", rec.ImageURL), zap.Error(err))
			e.emit(progress.Event{RunID: runID, Stage: progress.StageImageFailed, CID: cid, URL: rec.ImageURL, Note: err.Error()})
		default:
			rec.ImagePath = path
			entry.ImageDownloaded = true
			counts.ImagesSaved++
			metrics.ObserveImage(metrics.ImageSaved)
			e.emit(progress.Event{RunID: runID, Stage: progress.StageImageSaved, CID: cid, URL: rec.ImageURL})
		}
	} else {
		metrics.ObserveImage(metrics.ImageAbsent)
		e.emit(progress.Event{RunID: runID, Stage: progress.StageNoImage, CID: cid})
	}

	// A fetched CID is finished even if cancellation arrives mid-write.
	// Output goes first: a failed ledger write leaves a row that the next run
	// duplicates, never a ledger entry without a row.
	persistCtx := context.WithoutCancel(ctx)
	if err := e.output.Append(persistCtx, rec); err != nil {
		return fmt.Errorf("write output for cid %d: %w", cid, err)
	}
	if err := e.ledger.Record(persistCtx, entry); err != nil {
		return fmt.Errorf("update ledger for cid %d: %w", cid, err)
	}

	counts.Fetched++
	metrics.ObserveCID(metrics.OutcomeFetched)
	logger.Debug("cid processed",
		zap.Bool("has_image", entry.HasImage),
		zap.Bool("image_downloaded", entry.ImageDownloaded),
	)
	e.emit(progress.Event{RunID: runID, Stage: progress.StageLedgerUpdated, CID: cid})
	return nil
}

func (e *Executor) emit(evt progress.Event) {
	evt.TS = e.clock.Now()
	e.progress.Emit(evt)
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
