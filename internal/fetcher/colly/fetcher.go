// Package collyfetcher fetches registry pages and images using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/rsr-sign-scraper/internal/metrics"
	"github.com/JakeFAU/rsr-sign-scraper/internal/scraper"
)

// CIDPlaceholder is replaced by the CID in the page URL template.
const CIDPlaceholder = "{cid}"

const (
	kindPage  = "page"
	kindAsset = "asset"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// PageURLTemplate must contain CIDPlaceholder.
	PageURLTemplate string
	// MaxBodyBytes caps response bodies; zero keeps the colly default.
	MaxBodyBytes int
}

// Waiter paces outbound requests.
type Waiter interface {
	Wait(ctx context.Context) error
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d: %v", e.URL, e.StatusCode, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

// Fetcher implements scraper.PageFetcher and scraper.Getter.
type Fetcher struct {
	cfg           Config
	limiter       Waiter
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher. Every request waits on limiter first.
func New(cfg Config, limiter Waiter) (*Fetcher, error) {
	if !strings.Contains(cfg.PageURLTemplate, CIDPlaceholder) {
		return nil, fmt.Errorf("page url template %q must contain %s", cfg.PageURLTemplate, CIDPlaceholder)
	}
	if limiter == nil {
		return nil, errors.New("limiter is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	c := colly.NewCollector(colly.Async(false))
	// Full and partial runs revisit pages on purpose.
	c.AllowURLRevisit = true
	// robots.txt is checked once per run by the robots preflight.
	c.IgnoreRobotsTxt = true
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	if cfg.MaxBodyBytes > 0 {
		c.MaxBodySize = cfg.MaxBodyBytes
	}
	c.WithTransport(newHTTPTransport())
	c.SetRequestTimeout(cfg.Timeout)

	return &Fetcher{
		cfg:           cfg,
		limiter:       limiter,
		baseCollector: c,
	}, nil
}

// PageURL renders the detail page URL for cid.
func (f *Fetcher) PageURL(cid int) string {
	return strings.ReplaceAll(f.cfg.PageURLTemplate, CIDPlaceholder, strconv.Itoa(cid))
}

// FetchPage retrieves the detail page for cid. Failures are *scraper.FetchFailure.
func (f *Fetcher) FetchPage(ctx context.Context, cid int) (scraper.Page, error) {
	resp, err := f.get(ctx, f.PageURL(cid), kindPage)
	if err != nil {
		failure := &scraper.FetchFailure{CID: cid, Err: err}
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			failure.StatusCode = statusErr.StatusCode
		}
		return scraper.Page{}, failure
	}
	return scraper.Page{CID: cid, Response: resp}, nil
}

// Get performs a throttled GET for rawURL.
func (f *Fetcher) Get(ctx context.Context, rawURL string) (scraper.Response, error) {
	return f.get(ctx, rawURL, kindAsset)
}

func (f *Fetcher) get(ctx context.Context, rawURL, kind string) (scraper.Response, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return scraper.Response{}, err
	}

	var (
		result   scraper.Response
		fetchErr error
	)
	start := time.Now()
	collector := f.baseCollector.Clone()
	f.configureCollectorHooks(collector, rawURL, start, &result, &fetchErr)

	if err := f.runCollector(ctx, collector, rawURL, &fetchErr); err != nil {
		metrics.ObserveRequest(kind, statusOf(err), 0)
		return scraper.Response{}, err
	}
	metrics.ObserveRequest(kind, result.StatusCode, len(result.Body))
	if result.StatusCode < http.StatusOK || result.StatusCode >= http.StatusMultipleChoices {
		return scraper.Response{}, &StatusError{
			URL:        rawURL,
			StatusCode: result.StatusCode,
			Err:        errors.New(http.StatusText(result.StatusCode)),
		}
	}
	return result, nil
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	rawURL string,
	start time.Time,
	result *scraper.Response,
	fetchErr *error,
) {
	hooks.OnResponse(func(r *colly.Response) {
		finalURL := rawURL
		if r.Request != nil && r.Request.URL != nil {
			finalURL = r.Request.URL.String()
		}
		var headers http.Header
		if r.Headers != nil {
			headers = r.Headers.Clone()
		}
		*result = scraper.Response{
			URL:        finalURL,
			StatusCode: r.StatusCode,
			Headers:    headers,
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		if r != nil && r.StatusCode != 0 {
			*fetchErr = &StatusError{URL: rawURL, StatusCode: r.StatusCode, Err: err}
			return
		}
		*fetchErr = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		return nil
	}
}

func statusOf(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}
}
