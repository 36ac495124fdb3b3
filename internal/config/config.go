// Package config loads and validates scraper configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	collyfetcher "github.com/JakeFAU/rsr-sign-scraper/internal/fetcher/colly"
	"github.com/JakeFAU/rsr-sign-scraper/internal/logging"
	"github.com/JakeFAU/rsr-sign-scraper/internal/scraper"
)

// Ledger backends.
const (
	LedgerBackendCSV    = "csv"
	LedgerBackendSQLite = "sqlite"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Source   SourceConfig   `mapstructure:"source"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Extract  ExtractConfig  `mapstructure:"extract"`
	Run      RunConfig      `mapstructure:"run"`
	Progress ProgressConfig `mapstructure:"progress"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  logging.Config `mapstructure:"logging"`
}

// SourceConfig describes the registry.
type SourceConfig struct {
	PageURLTemplate string `mapstructure:"page_url_template"`
	UserAgent       string `mapstructure:"user_agent"`
	RespectRobots   bool   `mapstructure:"respect_robots"`
}

// HTTPConfig configures request pacing and limits.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	// DelayMs is the minimum gap between two requests.
	DelayMs      int `mapstructure:"delay_ms"`
	MaxBodyBytes int `mapstructure:"max_body_bytes"`
}

// StorageConfig sets local file locations.
type StorageConfig struct {
	LedgerBackend string `mapstructure:"ledger_backend"`
	LedgerPath    string `mapstructure:"ledger_path"`
	OutputPath    string `mapstructure:"output_path"`
	HistoryPath   string `mapstructure:"history_path"`
	ImageDir      string `mapstructure:"image_dir"`
}

// ExtractConfig tunes the field extractor.
type ExtractConfig struct {
	ContainerSelector string `mapstructure:"container_selector"`
}

// RunConfig holds per-invocation defaults.
type RunConfig struct {
	Mode string `mapstructure:"mode"`
}

// ProgressConfig toggles the terminal progress bar.
type ProgressConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// MetricsConfig controls Prometheus textfile export.
type MetricsConfig struct {
	// Textfile, when set, receives the metrics in text exposition format at the end of a run.
	Textfile string `mapstructure:"textfile"`
}

// Load builds a Config from disk/environment. With an empty path it looks for
// rsr-scraper.{yaml,json,toml} in the working directory and $HOME/.rsr-scraper.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RSR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("rsr-scraper")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.rsr-scraper")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.page_url_template", "https://www.rsr.transports.gouv.qc.ca/Dispositifs/Details.aspx?cid={cid}")
	v.SetDefault("source.user_agent", "rsr-sign-scraper/0.1")
	v.SetDefault("source.respect_robots", true)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.delay_ms", 250)
	v.SetDefault("http.max_body_bytes", 10<<20)
	v.SetDefault("storage.ledger_backend", LedgerBackendCSV)
	v.SetDefault("storage.ledger_path", "data/ledger.csv")
	v.SetDefault("storage.output_path", "data/signaux_routiers.csv")
	v.SetDefault("storage.history_path", "data/history.csv")
	v.SetDefault("storage.image_dir", "images_signaux")
	v.SetDefault("extract.container_selector", `[id^="ctl00_cphContenu_FicheDetails"]`)
	v.SetDefault("run.mode", string(scraper.DefaultMode))
	v.SetDefault("progress.enabled", true)
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
}

// Validate enforces required values and reasonable limits. Every offending
// key is reported.
func (c Config) Validate() error {
	var errs []error
	if !strings.Contains(c.Source.PageURLTemplate, collyfetcher.CIDPlaceholder) {
		errs = append(errs, fmt.Errorf("source.page_url_template must contain %s", collyfetcher.CIDPlaceholder))
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		errs = append(errs, errors.New("http.timeout_seconds must be > 0"))
	}
	if c.HTTP.DelayMs < 0 {
		errs = append(errs, errors.New("http.delay_ms must be >= 0"))
	}
	if c.HTTP.MaxBodyBytes < 0 {
		errs = append(errs, errors.New("http.max_body_bytes must be >= 0"))
	}
	switch c.Storage.LedgerBackend {
	case LedgerBackendCSV, LedgerBackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("storage.ledger_backend must be %q or %q", LedgerBackendCSV, LedgerBackendSQLite))
	}
	for key, val := range map[string]string{
		"storage.ledger_path":  c.Storage.LedgerPath,
		"storage.output_path":  c.Storage.OutputPath,
		"storage.history_path": c.Storage.HistoryPath,
		"storage.image_dir":    c.Storage.ImageDir,
	} {
		if strings.TrimSpace(val) == "" {
			errs = append(errs, fmt.Errorf("%s is required", key))
		}
	}
	if _, err := scraper.ParseMode(c.Run.Mode); err != nil {
		errs = append(errs, fmt.Errorf("run.mode: %w", err))
	}
	return errors.Join(errs...)
}

// Timeout returns the per-request timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// Delay returns the minimum gap between requests.
func (c Config) Delay() time.Duration {
	return time.Duration(c.HTTP.DelayMs) * time.Millisecond
}
