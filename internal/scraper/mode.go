package scraper

import (
	"fmt"
	"strings"
)

// RunMode selects which CIDs of a range are (re)processed.
type RunMode string

// Supported run modes.
const (
	// ModeFull processes every CID regardless of ledger state.
	ModeFull RunMode = "full"
	// ModeMinimal processes only CIDs that were never attempted.
	ModeMinimal RunMode = "minimal"
	// ModePartial also retries CIDs whose page showed no image.
	ModePartial RunMode = "partial"
)

// DefaultMode is used when no mode is given.
const DefaultMode = ModeMinimal

// Valid reports whether m is one of the enumerated modes.
func (m RunMode) Valid() bool {
	switch m {
	case ModeFull, ModeMinimal, ModePartial:
		return true
	default:
		return false
	}
}

// ParseMode maps a CLI/config token to a RunMode. An empty token selects the default.
func ParseMode(raw string) (RunMode, error) {
	token := strings.ToLower(strings.TrimSpace(raw))
	if token == "" {
		return DefaultMode, nil
	}
	m := RunMode(token)
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q (want full, minimal or partial)", ErrInvalidMode, raw)
	}
	return m, nil
}

// Range is an inclusive CID interval.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Validate requires positive bounds with Start <= End.
func (r Range) Validate() error {
	if r.Start <= 0 || r.End <= 0 {
		return fmt.Errorf("%w: bounds must be positive, got [%d, %d]", ErrInvalidRange, r.Start, r.End)
	}
	if r.Start > r.End {
		return fmt.Errorf("%w: start %d is after end %d", ErrInvalidRange, r.Start, r.End)
	}
	return nil
}

// Len returns the number of CIDs in the range. It assumes a valid range.
func (r Range) Len() int {
	return r.End - r.Start + 1
}

// Contains reports whether cid lies inside the range.
func (r Range) Contains(cid int) bool {
	return cid >= r.Start && cid <= r.End
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d]", r.Start, r.End)
}
