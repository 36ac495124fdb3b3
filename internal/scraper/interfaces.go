package scraper

import (
	"context"
	"io"
	"time"
)

// PageFetcher retrieves the detail page for a CID.
type PageFetcher interface {
	FetchPage(ctx context.Context, cid int) (Page, error)
}

// Getter performs a throttled GET for an arbitrary URL.
type Getter interface {
	Get(ctx context.Context, rawURL string) (Response, error)
}

// Extractor parses a detail page into a SignRecord.
type Extractor interface {
	Extract(page Page) (SignRecord, error)
}

// ImageDownloader fetches and stores a sign image, returning the stored path.
type ImageDownloader interface {
	Download(ctx context.Context, cid int, imageURL, referenceNumber string) (string, error)
}

// BlobStore writes raw artifacts and returns where they were written.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// LedgerView is the read side of the ledger used by the planner.
type LedgerView interface {
	Lookup(cid int) (LedgerEntry, bool)
}

// Ledger is the durable dedup index.
type Ledger interface {
	LedgerView
	Record(ctx context.Context, entry LedgerEntry) error
}

// RecordWriter appends SignRecords to the output table.
type RecordWriter interface {
	Append(ctx context.Context, record SignRecord) error
}

// HistoryWriter appends one entry per run.
type HistoryWriter interface {
	Append(ctx context.Context, entry RunHistoryEntry) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// SystemClock is the wall clock in UTC.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
