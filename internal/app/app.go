// Package app initializes and holds long-lived services for CLI commands,
// acting as a dependency injection container.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/rsr-sign-scraper/internal/config"
	"github.com/JakeFAU/rsr-sign-scraper/internal/download"
	"github.com/JakeFAU/rsr-sign-scraper/internal/extract"
	collyfetcher "github.com/JakeFAU/rsr-sign-scraper/internal/fetcher/colly"
	"github.com/JakeFAU/rsr-sign-scraper/internal/history"
	"github.com/JakeFAU/rsr-sign-scraper/internal/id/uuid"
	"github.com/JakeFAU/rsr-sign-scraper/internal/ledger"
	"github.com/JakeFAU/rsr-sign-scraper/internal/ledger/csvstore"
	"github.com/JakeFAU/rsr-sign-scraper/internal/ledger/sqlitestore"
	"github.com/JakeFAU/rsr-sign-scraper/internal/output"
	"github.com/JakeFAU/rsr-sign-scraper/internal/policy/ratelimit"
	"github.com/JakeFAU/rsr-sign-scraper/internal/progress"
	"github.com/JakeFAU/rsr-sign-scraper/internal/robots"
	"github.com/JakeFAU/rsr-sign-scraper/internal/run"
	"github.com/JakeFAU/rsr-sign-scraper/internal/storage/local"
)

// App holds the services shared by every command.
type App struct {
	cfg     config.Config
	logger  *zap.Logger
	ledger  *ledger.Ledger
	fetcher *collyfetcher.Fetcher
	robots  *robots.Checker
	records *output.RecordWriter
	history *history.Writer
	images  *local.ImageStore
}

// New builds every service from cfg. Nothing touches the network here.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug("initializing application services",
		zap.String("ledger_backend", cfg.Storage.LedgerBackend),
		zap.String("ledger_path", cfg.Storage.LedgerPath),
	)

	store, err := openLedgerStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	idx, err := ledger.Open(ctx, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	a := &App{cfg: cfg, logger: logger, ledger: idx}
	if err := a.initServices(); err != nil {
		_ = idx.Close()
		return nil, err
	}
	logger.Debug("application services initialized", zap.Int("ledger_entries", idx.Len()))
	return a, nil
}

func (a *App) initServices() error {
	limiter := ratelimit.New(ratelimit.Config{Interval: a.cfg.Delay()})
	fetcher, err := collyfetcher.New(collyfetcher.Config{
		UserAgent:       a.cfg.Source.UserAgent,
		Timeout:         a.cfg.Timeout(),
		PageURLTemplate: a.cfg.Source.PageURLTemplate,
		MaxBodyBytes:    a.cfg.HTTP.MaxBodyBytes,
	}, limiter)
	if err != nil {
		return fmt.Errorf("init fetcher: %w", err)
	}
	records, err := output.NewRecordWriter(a.cfg.Storage.OutputPath)
	if err != nil {
		return fmt.Errorf("init output: %w", err)
	}
	runs, err := history.New(a.cfg.Storage.HistoryPath)
	if err != nil {
		return fmt.Errorf("init history: %w", err)
	}
	images, err := local.New(local.Config{BaseDir: a.cfg.Storage.ImageDir})
	if err != nil {
		return fmt.Errorf("init image store: %w", err)
	}

	a.fetcher = fetcher
	a.records = records
	a.history = runs
	a.images = images
	a.robots = robots.New(a.cfg.Source.UserAgent, a.cfg.Timeout(), a.logger.Named("robots"))
	return nil
}

func openLedgerStore(ctx context.Context, cfg config.StorageConfig) (ledger.Store, error) {
	switch strings.ToLower(cfg.LedgerBackend) {
	case config.LedgerBackendCSV, "":
		store, err := csvstore.New(cfg.LedgerPath)
		if err != nil {
			return nil, fmt.Errorf("init csv ledger: %w", err)
		}
		return store, nil
	case config.LedgerBackendSQLite:
		store, err := sqlitestore.Open(ctx, cfg.LedgerPath)
		if err != nil {
			return nil, fmt.Errorf("init sqlite ledger: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown ledger backend: %s", cfg.LedgerBackend)
	}
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Ledger returns the opened ledger index.
func (a *App) Ledger() *ledger.Ledger { return a.ledger }

// Robots returns the robots.txt checker.
func (a *App) Robots() *robots.Checker { return a.robots }

// PageURL renders the detail page URL for cid.
func (a *App) PageURL(cid int) string { return a.fetcher.PageURL(cid) }

// Executor builds a run executor reporting to emitter.
func (a *App) Executor(emitter progress.Emitter) (*run.Executor, error) {
	downloader, err := download.New(a.fetcher, a.images, a.logger.Named("download"))
	if err != nil {
		return nil, fmt.Errorf("init downloader: %w", err)
	}
	exec, err := run.New(run.Deps{
		Fetcher:    a.fetcher,
		Extractor:  extract.New(extract.Config{ContainerSelector: a.cfg.Extract.ContainerSelector}),
		Downloader: downloader,
		Ledger:     a.ledger,
		Output:     a.records,
		History:    a.history,
		IDs:        uuid.New(),
		Progress:   emitter,
		Logger:     a.logger.Named("executor"),
	})
	if err != nil {
		return nil, fmt.Errorf("init executor: %w", err)
	}
	return exec, nil
}

// Close releases the ledger store and flushes the logger.
func (a *App) Close() error {
	var errs []error
	if err := a.ledger.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close ledger: %w", err))
	}
	// Sync on stderr returns EINVAL on some platforms; it is not actionable.
	_ = a.logger.Sync()
	return errors.Join(errs...)
}
