// Package download saves sign images to a blob store.
package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"path"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/rsr-sign-scraper/internal/scraper"
)

// DefaultExtension is used when neither the URL nor the Content-Type names one.
const DefaultExtension = ".png"

var (
	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	validExt    = regexp.MustCompile(`^\.[A-Za-z0-9]{1,5}$`)
)

var extByContentType = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/jpg":     ".jpg",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
	"image/bmp":     ".bmp",
}

// Downloader implements scraper.ImageDownloader.
type Downloader struct {
	getter scraper.Getter
	store  scraper.BlobStore
	logger *zap.Logger
}

// New wires a Downloader.
func New(getter scraper.Getter, store scraper.BlobStore, logger *zap.Logger) (*Downloader, error) {
	if getter == nil {
		return nil, errors.New("getter is required")
	}
	if store == nil {
		return nil, errors.New("store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloader{getter: getter, store: store, logger: logger}, nil
}

// Download fetches imageURL and stores it as "<reference>.<ext>". The file
// name never carries the CID. The returned string is the stored path.
func (d *Downloader) Download(ctx context.Context, cid int, imageURL, referenceNumber string) (string, error) {
	if strings.TrimSpace(referenceNumber) == "" {
		return "", fmt.Errorf("cid %d: %w", cid, scraper.ErrMissingReferenceNumber)
	}
	if strings.TrimSpace(imageURL) == "" {
		return "", &scraper.DownloadFailure{CID: cid, URL: imageURL, Err: errors.New("empty image url")}
	}

	resp, err := d.getter.Get(ctx, imageURL)
	if err != nil {
		return "", &scraper.DownloadFailure{CID: cid, URL: imageURL, Err: err}
	}
	if len(resp.Body) == 0 {
		return "", &scraper.DownloadFailure{CID: cid, URL: imageURL, Err: errors.New("empty image body")}
	}

	name := FileName(referenceNumber, Extension(imageURL, resp.ContentType()))
	stored, err := d.store.PutObject(ctx, name, resp.ContentType(), bytes.NewReader(resp.Body))
	if err != nil {
		return "", &scraper.DownloadFailure{CID: cid, URL: imageURL, Err: err}
	}
	d.logger.Debug("image saved",
		zap.Int("cid", cid),
		zap.String("path", stored),
		zap.Int("bytes", len(resp.Body)),
	)
	return stored, nil
}

// FileName builds the image file name. Characters outside [A-Za-z0-9._-] are
// replaced with '_'.
func FileName(referenceNumber, ext string) string {
	ref := strings.TrimSpace(referenceNumber)
	ref = unsafeChars.ReplaceAllString(ref, "_")
	ref = strings.Trim(ref, ".")
	if ref == "" {
		ref = "_"
	}
	if ext == "" {
		ext = DefaultExtension
	}
	return ref + ext
}

// Extension picks a file extension from the URL path, then the Content-Type,
// then DefaultExtension.
func Extension(imageURL, contentType string) string {
	if u, err := url.Parse(imageURL); err == nil {
		ext := strings.ToLower(path.Ext(u.Path))
		// The registry serves images from a handler (.ashx), which is not an image type.
		if validExt.MatchString(ext) && ext != ".ashx" && ext != ".aspx" {
			return ext
		}
	}
	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err == nil {
			mediaType = strings.ToLower(mediaType)
			if ext, ok := extByContentType[mediaType]; ok {
				return ext
			}
			if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
				return exts[0]
			}
		}
	}
	return DefaultExtension
}
