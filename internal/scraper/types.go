// Package scraper defines core types shared across the sign scraping subsystems.
package scraper

import (
	"net/http"
	"time"
)

// Dimension is one row of a sign's available-dimensions table.
type Dimension struct {
	Millimetres string `json:"millimetres"`
	IMPCode     string `json:"imp_code"`
}

// SignRecord is the structured content of one sign-detail page.
type SignRecord struct {
	CID             int         `json:"cid"`
	ReferenceNumber string      `json:"reference_number"`
	Name            string      `json:"name"`
	ReferenceTomeV  string      `json:"reference_tome_v"`
	ReferenceVHR    string      `json:"reference_vhr"`
	Description     string      `json:"description"`
	FilmType        string      `json:"film_type"`
	Dimensions      []Dimension `json:"dimensions"`
	Colors          []string    `json:"colors"`
	Usages          []string    `json:"usages"`
	HasImage        bool        `json:"has_image"`
	ImageURL        string      `json:"image_url,omitempty"`
	ImagePath       string      `json:"image_path,omitempty"`
	ScrapedAt       time.Time   `json:"scraped_at"`
}

// LedgerEntry is the durable dedup record for one CID. Its existence means the
// CID has been processed.
type LedgerEntry struct {
	CID int `json:"cid"`
	// HasImage reflects what the page showed.
	HasImage bool `json:"has_image"`
	// ImageDownloaded reflects whether the image was saved locally.
	ImageDownloaded bool      `json:"image_downloaded"`
	LastRunAt       time.Time `json:"last_run_at"`
}

// RunCounts summarizes the outcome of one invocation.
type RunCounts struct {
	Fetched       int `json:"fetched"`
	Skipped       int `json:"skipped"`
	Failed        int `json:"failed"`
	ImagesSaved   int `json:"images_saved"`
	ImageFailures int `json:"image_failures"`
}

// RunHistoryEntry is appended once per invocation and never mutated.
type RunHistoryEntry struct {
	RunID         string    `json:"run_id"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Mode          RunMode   `json:"mode"`
	Range         Range     `json:"range"`
	Planned       int       `json:"planned"`
	Counts        RunCounts `json:"counts"`
	AbortedReason string    `json:"aborted_reason,omitempty"`
}

// Response is the result of a single throttled GET.
type Response struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// ContentType returns the response Content-Type header, if any.
func (r Response) ContentType() string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers.Get("Content-Type")
}

// Page is the raw detail page fetched for a CID.
type Page struct {
	CID int
	Response
}
