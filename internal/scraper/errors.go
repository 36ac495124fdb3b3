package scraper

import (
	"errors"
	"fmt"
)

// Configuration errors. These abort a run before any network activity.
var (
	ErrInvalidRange = errors.New("invalid cid range")
	ErrInvalidMode  = errors.New("invalid run mode")
	// ErrDisallowedByRobots is returned by the robots preflight when the detail
	// pages are disallowed for the configured user agent.
	ErrDisallowedByRobots = errors.New("detail pages disallowed by robots.txt")
)

// ErrMissingReferenceNumber is returned by the downloader when a record has an
// image but no reference number to name it by.
var ErrMissingReferenceNumber = errors.New("missing reference number")

// FetchFailure reports a page that could not be retrieved.
type FetchFailure struct {
	CID int
	// StatusCode is zero for transport-level failures.
	StatusCode int
	Err        error
}

func (f *FetchFailure) Error() string {
	if f.StatusCode != 0 {
		return fmt.Sprintf("fetch cid %d: status %d: %v", f.CID, f.StatusCode, f.Err)
	}
	return fmt.Sprintf("fetch cid %d: %v", f.CID, f.Err)
}

func (f *FetchFailure) Unwrap() error { return f.Err }

// ExtractionFailure reports a page that is not recognisable as a sign-detail page.
type ExtractionFailure struct {
	CID    int
	Reason string
}

func (f *ExtractionFailure) Error() string {
	return fmt.Sprintf("extract cid %d: %s", f.CID, f.Reason)
}

// DownloadFailure reports an image that could not be fetched or stored.
type DownloadFailure struct {
	CID int
	URL string
	Err error
}

func (f *DownloadFailure) Error() string {
	return fmt.Sprintf("download image for cid %d from %s: %v", f.CID, f.URL, f.Err)
}

func (f *DownloadFailure) Unwrap() error { return f.Err }
