// Package extract parses registry detail pages into sign records.
package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/rsr-sign-scraper/internal/scraper"
)

// DefaultContainerSelector matches any element of the detail form.
const DefaultContainerSelector = `[id^="ctl00_cphContenu_FicheDetails"]`

const fieldPrefix = "#ctl00_cphContenu_FicheDetails_"

const (
	fieldNumber      = fieldPrefix + "txtNumero"
	fieldName        = fieldPrefix + "txtNom"
	fieldTomeV       = fieldPrefix + "txtReferenceTomeV"
	fieldVHR         = fieldPrefix + "txtReferenceVHR"
	fieldDescription = fieldPrefix + "txtDescription"
	fieldUsage       = fieldPrefix + "txtUsage"
	fieldColor       = fieldPrefix + "txtCouleur"
	fieldFilm        = fieldPrefix + "txtTypePellicule"

	dimensionsTable = `table[summary^="Dimensions disponibles"]`
	imageSelector   = "#Image220Centrer img[src]"
)

var (
	setSeparators = regexp.MustCompile(`[,;/\n\r]|\s+et\s+`)
	whitespace    = regexp.MustCompile(`\s+`)
)

// Config customises extraction.
type Config struct {
	ContainerSelector string
}

// Extractor implements scraper.Extractor with goquery.
type Extractor struct {
	container string
	now       func() time.Time
}

// New builds an Extractor.
func New(cfg Config) *Extractor {
	container := strings.TrimSpace(cfg.ContainerSelector)
	if container == "" {
		container = DefaultContainerSelector
	}
	return &Extractor{container: container, now: time.Now}
}

// Extract reads every known field from page. Missing fields are left empty;
// only a page without the detail container is a failure.
func (e *Extractor) Extract(page scraper.Page) (scraper.SignRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return scraper.SignRecord{}, &scraper.ExtractionFailure{CID: page.CID, Reason: fmt.Sprintf("parse html: %v", err)}
	}
	if doc.Find(e.container).Length() == 0 {
		return scraper.SignRecord{}, &scraper.ExtractionFailure{CID: page.CID, Reason: "not a sign detail page"}
	}

	rec := scraper.SignRecord{
		CID:             page.CID,
		ReferenceNumber: text(doc, fieldNumber),
		Name:            text(doc, fieldName),
		ReferenceTomeV:  text(doc, fieldTomeV),
		ReferenceVHR:    text(doc, fieldVHR),
		Description:     text(doc, fieldDescription),
		FilmType:        text(doc, fieldFilm),
		Usages:          SplitSet(rawText(doc, fieldUsage)),
		Colors:          SplitSet(rawText(doc, fieldColor)),
		Dimensions:      dimensions(doc),
		ScrapedAt:       e.now().UTC(),
	}

	if src, ok := doc.Find(imageSelector).First().Attr("src"); ok && strings.TrimSpace(src) != "" {
		rec.HasImage = true
		rec.ImageURL = resolve(page.URL, strings.TrimSpace(src))
	}
	return rec, nil
}

func rawText(doc *goquery.Document, selector string) string {
	return doc.Find(selector).First().Text()
}

func text(doc *goquery.Document, selector string) string {
	return collapse(rawText(doc, selector))
}

func collapse(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

func dimensions(doc *goquery.Document) []scraper.Dimension {
	var out []scraper.Dimension
	doc.Find(dimensionsTable).First().Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return
		}
		cols := row.Find("td")
		if cols.Length() < 2 {
			return
		}
		d := scraper.Dimension{
			Millimetres: collapse(cols.Eq(0).Text()),
			IMPCode:     collapse(cols.Eq(1).Text()),
		}
		if d.Millimetres == "" && d.IMPCode == "" {
			return
		}
		out = append(out, d)
	})
	return out
}

// SplitSet splits a multi-valued field into a sorted, de-duplicated set.
func SplitSet(raw string) []string {
	parts := setSeparators.Split(raw, -1)
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		v := collapse(p)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

func resolve(base, ref string) string {
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil || base == "" {
		return refURL.String()
	}
	return baseURL.ResolveReference(refURL).String()
}
