// Package planner decides, for a CID range and run mode, which CIDs to process.
package planner

import (
	"fmt"

	"github.com/JakeFAU/rsr-sign-scraper/internal/scraper"
)

// maxPrealloc bounds the initial plan capacity for wide ranges.
const maxPrealloc = 4096

// Plan returns the CIDs of r to process under mode, in ascending order.
// It has no side effects.
func Plan(r scraper.Range, mode scraper.RunMode, ledger scraper.LedgerView) ([]int, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", scraper.ErrInvalidMode, mode)
	}

	plan := make([]int, 0, min(r.Len(), maxPrealloc))
	for cid := r.Start; ; cid++ {
		if include(mode, cid, ledger) {
			plan = append(plan, cid)
		}
		// r.End may be math.MaxInt; stop before cid++ overflows.
		if cid == r.End {
			break
		}
	}
	return plan, nil
}

func include(mode scraper.RunMode, cid int, ledger scraper.LedgerView) bool {
	if mode == scraper.ModeFull {
		return true
	}
	var (
		entry scraper.LedgerEntry
		seen  bool
	)
	if ledger != nil {
		entry, seen = ledger.Lookup(cid)
	}
	switch mode {
	case scraper.ModeMinimal:
		return !seen
	case scraper.ModePartial:
		return !seen || !entry.HasImage
	default:
		return false
	}
}

// Summary describes a computed plan relative to its range.
type Summary struct {
	Range   scraper.Range
	Mode    scraper.RunMode
	Planned int
	Skipped int
}

// Summarize counts planned and skipped CIDs.
func Summarize(r scraper.Range, mode scraper.RunMode, plan []int) Summary {
	return Summary{
		Range:   r,
		Mode:    mode,
		Planned: len(plan),
		Skipped: r.Len() - len(plan),
	}
}
