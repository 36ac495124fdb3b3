package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/rsr-sign-scraper/internal/metrics"
	"github.com/JakeFAU/rsr-sign-scraper/internal/progress"
	"github.com/JakeFAU/rsr-sign-scraper/internal/progress/sinks"
	"github.com/JakeFAU/rsr-sign-scraper/internal/scraper"
)

func newScrapeCmd() *cobra.Command {
	var flags rangeFlags
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrapes a range of CIDs",
		Long: `Plans the range against the ledger, then fetches, extracts and downloads
every planned CID in ascending order. SIGINT/SIGTERM stop the run after the
current CID; a history row is written either way.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScrape(cmd, &flags)
		},
	}
	flags.register(cmd)
	return cmd
}

func runScrape(cmd *cobra.Command, flags *rangeFlags) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.Config()
	logger := appInstance.Logger()

	r, mode, err := flags.resolve(cfg.Run.Mode)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Source.RespectRobots {
		if _, err := appInstance.Robots().Preflight(ctx, appInstance.PageURL(r.Start)); err != nil {
			return fmt.Errorf("robots preflight: %w", err)
		}
	}

	hubSinks := []progress.Sink{sinks.NewLogSink(logger.Named("progress"))}
	if cfg.Progress.Enabled {
		hubSinks = append(hubSinks, sinks.NewBarSink(cmd.ErrOrStderr()))
	}
	hub := progress.NewHub(progress.Config{Logger: logger}, hubSinks...)

	exec, err := appInstance.Executor(hub)
	if err != nil {
		_ = hub.Close(context.WithoutCancel(ctx))
		return err
	}
	entry, runErr := exec.Run(ctx, r, mode)
	if err := hub.Close(context.WithoutCancel(ctx)); err != nil {
		logger.Warn("progress hub close failed", zap.Error(err))
	}

	if path := cfg.Metrics.Textfile; path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			logger.Warn("write metrics textfile failed", zap.String("path", path), zap.Error(err))
		}
	}

	if entry.RunID != "" {
		printRunSummary(cmd, entry)
	}
	return runErr
}

func printRunSummary(cmd *cobra.Command, entry scraper.RunHistoryEntry) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s (%s %s)\n", entry.RunID, entry.Mode, entry.Range)
	fmt.Fprintf(out, "  planned:        %d\n", entry.Planned)
	fmt.Fprintf(out, "  fetched:        %d\n", entry.Counts.Fetched)
	fmt.Fprintf(out, "  skipped:        %d\n", entry.Counts.Skipped)
	fmt.Fprintf(out, "  failed:         %d\n", entry.Counts.Failed)
	fmt.Fprintf(out, "  images saved:   %d\n", entry.Counts.ImagesSaved)
	fmt.Fprintf(out, "  image failures: %d\n", entry.Counts.ImageFailures)
	if entry.AbortedReason != "" {
		fmt.Fprintf(out, "  aborted:        %s\n", entry.AbortedReason)
	}
}

