package robots

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/rsr-sign-scraper/internal/scraper"
)

func robotsServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/robots.txt", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("X-Seen-Agent", req.UserAgent())
		w.WriteHeader(status)
		_, _ = fmt.Fprint(w, body)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchAndAllowed(t *testing.T) {
	t.Parallel()

	srv := robotsServer(t, http.StatusOK,
		"User-agent: *\nDisallow: /Admin\nCrawl-delay: 2\n\nUser-agent: rsr-bot\nDisallow: /Dispositifs/\n")
	ctx := context.Background()

	generic := New("some-browser", time.Second, zap.NewNop())
	report, err := generic.Fetch(ctx, srv.URL+"/Dispositifs/Details.aspx?cid=1")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/robots.txt", report.URL)
	assert.Equal(t, http.StatusOK, report.StatusCode)
	assert.Contains(t, report.Body, "Disallow: /Admin")
	assert.True(t, report.Allowed(srv.URL+"/Dispositifs/Details.aspx?cid=1"))
	assert.False(t, report.Allowed("/Admin/login"))
	assert.Equal(t, 2*time.Second, report.CrawlDelay())

	bot := New("rsr-bot", time.Second, nil)
	report, err = bot.Fetch(ctx, srv.URL)
	require.NoError(t, err)
	assert.False(t, report.Allowed(srv.URL+"/Dispositifs/Details.aspx?cid=1"))
	assert.True(t, report.Allowed("/"))
}

func TestFetchMissingRobotsAllowsAll(t *testing.T) {
	t.Parallel()

	srv := robotsServer(t, http.StatusNotFound, "")
	report, err := New("rsr-bot", time.Second, nil).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.True(t, report.Allowed("/anything"))
}

func TestFetchRejectsRelativeURL(t *testing.T) {
	t.Parallel()

	_, err := New("rsr-bot", time.Second, nil).Fetch(context.Background(), "/Dispositifs")
	require.Error(t, err)
}

func TestPreflight(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	blocked := robotsServer(t, http.StatusOK, "User-agent: *\nDisallow: /Dispositifs/\n")
	_, err := New("rsr-bot", time.Second, nil).Preflight(ctx, blocked.URL+"/Dispositifs/Details.aspx?cid=5")
	require.ErrorIs(t, err, scraper.ErrDisallowedByRobots)
	assert.True(t, IsDisallowed(err))

	open := robotsServer(t, http.StatusOK, "User-agent: *\nAllow: /\n")
	report, err := New("rsr-bot", time.Second, nil).Preflight(ctx, open.URL+"/Dispositifs/Details.aspx?cid=5")
	require.NoError(t, err)
	require.NotNil(t, report)
}

func TestPreflightUnreachableAllows(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	report, err := New("rsr-bot", 200*time.Millisecond, nil).Preflight(context.Background(), base+"/x")
	require.NoError(t, err)
	assert.Nil(t, report)
	assert.True(t, report.Allowed("/x"))
}
