// Package cmd defines and implements the CLI commands for the rsr-scraper executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/rsr-sign-scraper/internal/app"
	"github.com/JakeFAU/rsr-sign-scraper/internal/config"
	"github.com/JakeFAU/rsr-sign-scraper/internal/ledger"
	"github.com/JakeFAU/rsr-sign-scraper/internal/logging"
	"github.com/JakeFAU/rsr-sign-scraper/internal/progress"
	"github.com/JakeFAU/rsr-sign-scraper/internal/robots"
	"github.com/JakeFAU/rsr-sign-scraper/internal/run"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App is the service surface commands use.
type App interface {
	Config() config.Config
	Logger() *zap.Logger
	Ledger() *ledger.Ledger
	Robots() *robots.Checker
	PageURL(cid int) string
	Executor(emitter progress.Emitter) (*run.Executor, error)
	Close() error
}

// newApp is the application factory; tests replace it.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (App, error) {
	return app.New(ctx, cfg, logger)
}

// rootState owns the App built for the running command.
type rootState struct {
	cfgFile string
	app     App
}

// close releases the App. Cobra skips post-run hooks when RunE fails, so
// this runs after Execute instead.
func (s *rootState) close() error {
	if s.app == nil {
		return nil
	}
	err := s.app.Close()
	s.app = nil
	return err
}

// newRootCmd creates and configures the root command.
func newRootCmd() (*cobra.Command, *rootState) {
	state := &rootState{}
	cmd := &cobra.Command{
		Use:   "rsr-scraper",
		Short: "Scrapes road-sign records from the Quebec road signage registry.",
		Long: `rsr-scraper walks a range of registry CIDs, extracts each sign's fields,
downloads its image and records progress in a ledger so later runs only
fetch what is missing.`,
		SilenceUsage: true,

		// Builds and injects the application before the subcommand's RunE.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(state.cfgFile)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Logging)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			appInstance, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			state.app = appInstance
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&state.cfgFile, "config", "", "config file (default is ./rsr-scraper.yaml)")

	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newPlanCmd())
	cmd.AddCommand(newRobotsCmd())
	cmd.AddCommand(newLedgerCmd())

	return cmd, state
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	os.Exit(execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root, state := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	runErr := root.ExecuteContext(ctx)
	if err := state.close(); err != nil {
		fmt.Fprintf(stderr, "Error: close: %v\n", err)
		return 1
	}
	if runErr != nil {
		return 1
	}
	return 0
}
