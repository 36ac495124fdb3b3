// Package robots fetches and evaluates the registry's robots.txt.
package robots

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"

	"github.com/JakeFAU/rsr-sign-scraper/internal/scraper"
)

const maxRobotsBytes = 1 << 20

// Checker fetches robots.txt for a site.
type Checker struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger
}

// New builds a Checker. A zero timeout means 10s.
func New(userAgent string, timeout time.Duration, logger *zap.Logger) *Checker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		logger:    logger,
	}
}

// Report is a fetched robots.txt.
type Report struct {
	URL        string
	StatusCode int
	Body       string
	UserAgent  string

	data *robotstxt.RobotsData
}

// Allowed reports whether target (an absolute URL or a path) may be fetched.
func (r *Report) Allowed(target string) bool {
	if r == nil || r.data == nil {
		return true
	}
	group := r.data.FindGroup(r.UserAgent)
	if group == nil {
		return true
	}
	return group.Test(requestPath(target))
}

// CrawlDelay returns the Crawl-delay for the report's agent, if any.
func (r *Report) CrawlDelay() time.Duration {
	if r == nil || r.data == nil {
		return 0
	}
	group := r.data.FindGroup(r.UserAgent)
	if group == nil {
		return 0
	}
	return group.CrawlDelay
}

// Fetch downloads and parses robots.txt for the host of siteURL.
func (c *Checker) Fetch(ctx context.Context, siteURL string) (*Report, error) {
	parsed, err := url.Parse(siteURL)
	if err != nil {
		return nil, fmt.Errorf("parse site url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("site url %q must be absolute", siteURL)
	}
	robotsURL := url.URL{Scheme: parsed.Scheme, Host: parsed.Host, Path: "/robots.txt"}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("new robots request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("failed to close robots response body", zap.Error(cerr))
		}
	}()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return nil, fmt.Errorf("read robots body: %w", err)
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots: %w", err)
	}
	return &Report{
		URL:        robotsURL.String(),
		StatusCode: resp.StatusCode,
		Body:       string(body),
		UserAgent:  c.userAgent,
		data:       data,
	}, nil
}

// Preflight returns scraper.ErrDisallowedByRobots when pageURL is disallowed.
// An unreachable robots.txt is logged and treated as allow-all.
func (c *Checker) Preflight(ctx context.Context, pageURL string) (*Report, error) {
	report, err := c.Fetch(ctx, pageURL)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Warn("robots fetch failed; allowing access", zap.String("url", pageURL), zap.Error(err))
		return nil, nil
	}
	if !report.Allowed(pageURL) {
		return report, fmt.Errorf("%s: %w", pageURL, scraper.ErrDisallowedByRobots)
	}
	if delay := report.CrawlDelay(); delay > 0 {
		c.logger.Info("robots crawl-delay advertised", zap.Duration("crawl_delay", delay))
	}
	return report, nil
}

func requestPath(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}

// IsDisallowed reports whether err came from a robots refusal.
func IsDisallowed(err error) bool {
	return errors.Is(err, scraper.ErrDisallowedByRobots)
}
