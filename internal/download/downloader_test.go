package download

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/rsr-sign-scraper/internal/scraper"
	"github.com/JakeFAU/rsr-sign-scraper/internal/storage/local"
)

type stubGetter struct {
	resp  scraper.Response
	err   error
	calls int
}

func (s *stubGetter) Get(context.Context, string) (scraper.Response, error) {
	s.calls++
	return s.resp, s.err
}

type failingStore struct{}

func (failingStore) PutObject(context.Context, string, string, io.Reader) (string, error) {
	return "", errors.New("disk full")
}

func pngResponse() scraper.Response {
	return scraper.Response{
		StatusCode: http.StatusOK,
		Headers:    http.Header{"Content-Type": {"image/png"}},
		Body:       []byte{0x89, 'P', 'N', 'G'},
	}
}

func TestFileName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ref  string
		ext  string
		want string
	}{
		{name: "plain", ref: "P-010", ext: ".png", want: "P-010.png"},
		{name: "spaces and slashes", ref: "D-250 / P", ext: ".jpg", want: "D-250_P.jpg"},
		{name: "accents", ref: "Arrêt", ext: ".gif", want: "Arr_t.gif"},
		{name: "traversal", ref: "../../etc", ext: ".png", want: "_.._etc.png"},
		{name: "default ext", ref: "X", ext: "", want: "X.png"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, FileName(tc.ref, tc.ext))
		})
	}
}

func TestExtension(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ".jpg", Extension("https://x.test/img/sign.JPG", ""))
	assert.Equal(t, ".gif", Extension("https://x.test/Gestionnaires/ObtenirImage.ashx?imgId=1", "image/gif"))
	assert.Equal(t, ".jpg", Extension("https://x.test/ObtenirImage.ashx", "image/jpeg; charset=binary"))
	assert.Equal(t, ".png", Extension("https://x.test/ObtenirImage.ashx", ""))
	assert.Equal(t, ".png", Extension("https://x.test/ObtenirImage.ashx", "not a type"))
}

func TestDownloadWritesImage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: dir})
	require.NoError(t, err)
	getter := &stubGetter{resp: pngResponse()}
	d, err := New(getter, store, zap.NewNop())
	require.NoError(t, err)

	path, err := d.Download(context.Background(), 12392,
		"https://x.test/Gestionnaires/ObtenirImage.ashx?imgId=55", "P-010")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "P-010.png"), path)
	assert.NoFileExists(t, filepath.Join(dir, "12392_P-010.png"))
	assert.FileExists(t, path)
}

func TestDownloadMissingReference(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: dir})
	require.NoError(t, err)
	getter := &stubGetter{resp: pngResponse()}
	d, err := New(getter, store, nil)
	require.NoError(t, err)

	_, err = d.Download(context.Background(), 1, "https://x.test/a.png", "  ")
	require.ErrorIs(t, err, scraper.ErrMissingReferenceNumber)
	assert.Zero(t, getter.calls)
	matches, err := filepath.Glob(filepath.Join(dir, "*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestDownloadFailures(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: dir})
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("GetError", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("timeout")
		d, err := New(&stubGetter{err: boom}, store, nil)
		require.NoError(t, err)
		_, err = d.Download(ctx, 3, "https://x.test/a.png", "R")
		var failure *scraper.DownloadFailure
		require.ErrorAs(t, err, &failure)
		assert.Equal(t, 3, failure.CID)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("EmptyBody", func(t *testing.T) {
		t.Parallel()
		d, err := New(&stubGetter{resp: scraper.Response{StatusCode: http.StatusOK}}, store, nil)
		require.NoError(t, err)
		_, err = d.Download(ctx, 4, "https://x.test/a.png", "R")
		var failure *scraper.DownloadFailure
		require.ErrorAs(t, err, &failure)
	})

	t.Run("StoreError", func(t *testing.T) {
		t.Parallel()
		d, err := New(&stubGetter{resp: pngResponse()}, failingStore{}, nil)
		require.NoError(t, err)
		_, err = d.Download(ctx, 5, "https://x.test/a.png", "R")
		require.ErrorContains(t, err, "disk full")
	})
}

func TestNewRequiresDependencies(t *testing.T) {
	t.Parallel()

	_, err := New(nil, failingStore{}, nil)
	require.Error(t, err)
	_, err = New(&stubGetter{}, nil, nil)
	require.Error(t, err)
}
