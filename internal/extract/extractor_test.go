package extract

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/rsr-sign-scraper/internal/scraper"
)

const pageURL = "https://www.rsr.transports.gouv.qc.ca/Dispositifs/Details.aspx?cid=12392"

func loadPage(t *testing.T, name string, cid int) scraper.Page {
	t.Helper()
	body, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return scraper.Page{
		CID: cid,
		Response: scraper.Response{
			URL:        pageURL,
			StatusCode: http.StatusOK,
			Body:       body,
		},
	}
}

func fixedExtractor() *Extractor {
	e := New(Config{})
	e.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return e
}

func TestExtractDetailPage(t *testing.T) {
	t.Parallel()

	rec, err := fixedExtractor().Extract(loadPage(t, "detail.html", 12392))
	require.NoError(t, err)

	assert.Equal(t, 12392, rec.CID)
	assert.Equal(t, "P-010-1", rec.ReferenceNumber)
	assert.Equal(t, "Arrêt obligatoire", rec.Name)
	assert.Equal(t, "Chapitre 2", rec.ReferenceTomeV)
	assert.Equal(t, "VHR 3.1", rec.ReferenceVHR)
	assert.Equal(t, "Panneau octogonal rouge.", rec.Description)
	assert.Equal(t, "Type XI", rec.FilmType)
	assert.Equal(t, []string{"Chantier", "Intersection", "intersection"}, rec.Usages)
	assert.Equal(t, []string{"Rouge", "blanc"}, rec.Colors)
	assert.Equal(t, []scraper.Dimension{
		{Millimetres: "600 x 600", IMPCode: "P-010-1-60"},
		{Millimetres: "750 x 750", IMPCode: "P-010-1-75"},
	}, rec.Dimensions)
	assert.True(t, rec.HasImage)
	assert.Equal(t,
		"https://www.rsr.transports.gouv.qc.ca/Gestionnaires/ObtenirImage.ashx?imgId=4412",
		rec.ImageURL)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), rec.ScrapedAt)
}

func TestExtractWithoutImage(t *testing.T) {
	t.Parallel()

	rec, err := fixedExtractor().Extract(loadPage(t, "no_image.html", 7))
	require.NoError(t, err)
	assert.Equal(t, "D-250", rec.ReferenceNumber)
	assert.False(t, rec.HasImage)
	assert.Empty(t, rec.ImageURL)
	assert.Empty(t, rec.Description)
	assert.Nil(t, rec.Dimensions)
	assert.Nil(t, rec.Colors)
}

func TestExtractNotADetailPage(t *testing.T) {
	t.Parallel()

	_, err := fixedExtractor().Extract(loadPage(t, "error.html", 99))
	var failure *scraper.ExtractionFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, 99, failure.CID)

	_, err = fixedExtractor().Extract(scraper.Page{CID: 100})
	require.ErrorAs(t, err, &failure)
}

func TestCustomContainerSelector(t *testing.T) {
	t.Parallel()

	e := New(Config{ContainerSelector: "h1"})
	rec, err := e.Extract(loadPage(t, "error.html", 99))
	require.NoError(t, err)
	assert.Empty(t, rec.ReferenceNumber)
	assert.False(t, rec.HasImage)
}

func TestSplitSet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want []string
	}{
		{raw: "", want: nil},
		{raw: "  ", want: nil},
		{raw: "Jaune", want: []string{"Jaune"}},
		{raw: "Noir, Jaune ; Noir", want: []string{"Jaune", "Noir"}},
		{raw: "Blanc/Rouge\nVert", want: []string{"Blanc", "Rouge", "Vert"}},
		{raw: "Orange et noir", want: []string{"Orange", "noir"}},
		{raw: "Bleu beton", want: []string{"Bleu beton"}},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, SplitSet(tc.raw))
		})
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://x.test/img/a.png", resolve("https://x.test/dir/page", "/img/a.png"))
	assert.Equal(t, "https://cdn.test/a.png", resolve("https://x.test/dir/page", "https://cdn.test/a.png"))
	assert.Equal(t, "img/a.png", resolve("", "img/a.png"))
}
