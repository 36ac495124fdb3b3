package cmd

import (
	"github.com/spf13/cobra"

	"github.com/JakeFAU/rsr-sign-scraper/internal/scraper"
)

// rangeFlags are shared by commands that operate on a CID range.
type rangeFlags struct {
	start int
	end   int
	mode  string
}

func (f *rangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.start, "start", 0, "first CID of the range (inclusive)")
	cmd.Flags().IntVar(&f.end, "end", 0, "last CID of the range (inclusive)")
	cmd.Flags().StringVar(&f.mode, "mode", "", "run mode: full, minimal or partial (default from run.mode)")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
}

// resolve validates the flags, falling back to defaultMode when --mode is unset.
func (f *rangeFlags) resolve(defaultMode string) (scraper.Range, scraper.RunMode, error) {
	raw := f.mode
	if raw == "" {
		raw = defaultMode
	}
	mode, err := scraper.ParseMode(raw)
	if err != nil {
		return scraper.Range{}, "", err
	}
	r := scraper.Range{Start: f.start, End: f.end}
	if err := r.Validate(); err != nil {
		return scraper.Range{}, "", err
	}
	return r, mode, nil
}
