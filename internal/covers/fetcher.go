// Package covers fetches book cover images from OpenLibrary and caches them
// on local disk, addressed by ISBN.
//
// A cover is stored as {isbn}-{size}.jpg in the cover directory. The file
// name is a pure function of the ISBN, so concurrent fetches of the same
// cover race harmlessly: each writes a private temp file and renames it into
// place, and the last rename wins.
//
// Fetching is best-effort. Network, HTTP and disk failures are logged and
// swallowed; nothing in this package reports a failed fetch to its caller.
package covers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mrlokans/bookshelf/internal/config"
)

const userAgent = "Bookshelf/1.0"

// Fetcher downloads covers into a local directory.
type Fetcher struct {
	dir        string
	baseURL    string
	size       string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewFetcher creates the cover directory if needed and returns a fetcher
// writing into it.
func NewFetcher(cfg config.Covers, logger *zap.Logger) (*Fetcher, error) {
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create covers dir: %w", err)
	}

	size := cfg.Size
	if size == "" {
		size = "M"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Fetcher{
		dir:     cfg.Dir,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		size:    size,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.Named("covers"),
	}, nil
}

// NormalizeISBN keeps only digits and the X check character, so that an ISBN
// typed with dashes or spaces maps to the same file and the result is always
// safe as a path element.
func NormalizeISBN(isbn string) string {
	var b strings.Builder
	for _, r := range isbn {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			b.WriteRune('X')
		}
	}
	return b.String()
}

// FileName returns the cache file name for an ISBN, e.g. 9780141036144-M.jpg.
// It is empty when the ISBN has no usable characters.
func (f *Fetcher) FileName(isbn string) string {
	isbn = NormalizeISBN(isbn)
	if isbn == "" {
		return ""
	}
	return fmt.Sprintf("%s-%s.jpg", isbn, f.size)
}

// Path returns the local file path of the cover for an ISBN.
func (f *Fetcher) Path(isbn string) string {
	name := f.FileName(isbn)
	if name == "" {
		return ""
	}
	return filepath.Join(f.dir, name)
}

// URL returns the image service locator for an ISBN. default=false makes the
// service answer 404 for unknown ISBNs instead of a blank placeholder.
func (f *Fetcher) URL(isbn string) string {
	return fmt.Sprintf("%s/%s?default=false", f.baseURL, f.FileName(isbn))
}

// Exists reports whether the cover for an ISBN is already cached.
func (f *Fetcher) Exists(isbn string) bool {
	path := f.Path(isbn)
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// Dir returns the cover directory.
func (f *Fetcher) Dir() string {
	return f.dir
}

// FetchAndCache downloads the cover for isbn unless it is already cached.
// Failures are logged, never returned.
func (f *Fetcher) FetchAndCache(ctx context.Context, isbn string) {
	if NormalizeISBN(isbn) == "" {
		return
	}
	if f.Exists(isbn) {
		return
	}

	if err := f.fetch(ctx, isbn); err != nil {
		f.logger.Warn("Cover fetch failed",
			zap.String("isbn", isbn),
			zap.Error(err),
		)
		return
	}

	f.logger.Debug("Cover cached", zap.String("isbn", isbn), zap.String("path", f.Path(isbn)))
}

func (f *Fetcher) fetch(ctx context.Context, isbn string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL(isbn), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	// Temp file in the same directory keeps the rename atomic
	tmpFile, err := os.CreateTemp(f.dir, ".cover_tmp_")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}()

	if _, err = io.Copy(tmpFile, resp.Body); err != nil {
		return err
	}
	if err = tmpFile.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, f.Path(isbn))
}
