package sinks

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/JakeFAU/rsr-sign-scraper/internal/progress"
)

// BarSink renders run progress as a terminal bar. One bar is created per run
// on RUN_START and completed on RUN_DONE or RUN_ABORTED.
type BarSink struct {
	p   *mpb.Progress
	bar *mpb.Bar

	failed atomic.Int64
	images atomic.Int64
	start  time.Time
}

// NewBarSink renders to out.
func NewBarSink(out io.Writer) *BarSink {
	p := mpb.New(
		mpb.WithWidth(52),
		mpb.WithOutput(out),
		mpb.WithRefreshRate(120*time.Millisecond),
	)
	return &BarSink{p: p}
}

// Consume advances the bar for every CID that reached a terminal stage.
func (s *BarSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageRunStart:
			s.newBar(evt.Planned)
		case progress.StageImageSaved:
			s.images.Add(1)
		case progress.StageFailed:
			s.failed.Add(1)
			s.increment()
		case progress.StageLedgerUpdated:
			s.increment()
		case progress.StageRunDone, progress.StageRunAborted:
			s.finish(evt.Stage == progress.StageRunAborted)
		}
	}
	return nil
}

// Close waits for the renderer to flush.
func (s *BarSink) Close(context.Context) error {
	if s.bar != nil && !s.bar.Completed() {
		s.bar.Abort(false)
	}
	s.p.Wait()
	return nil
}

func (s *BarSink) newBar(total int) {
	s.start = time.Now()
	s.failed.Store(0)
	s.images.Store(0)
	s.bar = s.p.New(
		int64(total),
		mpb.BarStyle().Rbound("]"),
		mpb.PrependDecorators(
			decor.Name("scrape  "),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WCSyncWidth),
			decor.CountersNoUnit(" | %d/%d cids", decor.WCSyncWidth),
			decor.Any(func(_ decor.Statistics) string {
				return fmt.Sprintf(" | %d images | %d failed", s.images.Load(), s.failed.Load())
			}),
			decor.Any(func(_ decor.Statistics) string {
				return fmt.Sprintf(" | %ds", int(time.Since(s.start).Seconds()))
			}),
		),
	)
	if total == 0 {
		s.bar.SetTotal(0, true)
	}
}

func (s *BarSink) increment() {
	if s.bar == nil {
		return
	}
	s.bar.Increment()
}

func (s *BarSink) finish(aborted bool) {
	if s.bar == nil || s.bar.Completed() {
		return
	}
	if aborted {
		s.bar.Abort(false)
		return
	}
	s.bar.SetTotal(-1, true)
}
