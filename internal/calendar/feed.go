package calendar

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// FeedSource produces the parsed events of a named calendar feed.
type FeedSource interface {
	FetchFeed(ctx context.Context, name string) ([]ParsedEvent, error)
}

// FetcherOptions configures the HTTP feed fetcher.
type FetcherOptions struct {
	// BaseURL is the community site root, e.g. "https://di.community/".
	BaseURL string

	// MemberID and MemberKey authenticate the ICS download endpoint.
	MemberID  int
	MemberKey string

	// Cookies are attached to every request.
	Cookies []*http.Cookie

	// CacheDir is where per-feed HTTP cache state (ETag/Last-Modified and
	// the last body) is kept.
	CacheDir string

	// Horizon bounds recurrence expansion into the future. Zero means
	// defaultHorizon.
	Horizon time.Duration

	// Timeout bounds a single download. Zero means defaultFetchTimeout.
	Timeout time.Duration
}

const (
	defaultHorizon      = 60 * 24 * time.Hour
	defaultFetchTimeout = 15 * time.Second

	// expandLookback keeps recently past occurrences in the expansion so
	// an edit to a just-finished event still diffs as an update.
	expandLookback = 7 * 24 * time.Hour
)

// Fetcher downloads calendar feeds with HTTP caching (ETag/Last-Modified,
// disk-backed) and parses them into events. A network failure with a warm
// cache degrades to the cached body instead of failing the cycle.
type Fetcher struct {
	client *http.Client
	opts   FetcherOptions
	log    *zap.Logger
}

// cacheEntry holds HTTP cache metadata for a single feed.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewFetcher creates a feed fetcher.
func NewFetcher(opts FetcherOptions, log *zap.Logger) *Fetcher {
	if opts.Horizon <= 0 {
		opts.Horizon = defaultHorizon
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultFetchTimeout
	}
	if opts.CacheDir == "" {
		opts.CacheDir = "./var/feed-cache"
	}
	return &Fetcher{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
		log:    log,
	}
}

// FetchFeed downloads and parses the named calendar. All errors returned
// here are fetch-level: the caller skips the cycle and retries on the next
// tick.
func (f *Fetcher) FetchFeed(ctx context.Context, name string) ([]ParsedEvent, error) {
	body, err := f.download(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("calendar %s: %w", name, err)
	}

	now := time.Now().UTC()
	window := ExpandWindow{
		Start: now.Add(-expandLookback),
		End:   now.Add(f.opts.Horizon),
	}

	events, err := ParseFeed(body, window, f.log.With(zap.String("calendar", name)))
	if err != nil {
		return nil, fmt.Errorf("calendar %s: %w", name, err)
	}
	return events, nil
}

func (f *Fetcher) feedURL(name string) string {
	return fmt.Sprintf("%scalendar/%s/download/?member=%d&key=%s",
		f.opts.BaseURL, name, f.opts.MemberID, f.opts.MemberKey)
}

// download fetches the feed body, honoring ETag and Last-Modified from the
// disk cache and falling back to the cached body when the site is
// unreachable or misbehaving.
func (f *Fetcher) download(ctx context.Context, name string) ([]byte, error) {
	url := f.feedURL(name)

	cachePath := f.cachePathForFeed(name)
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return nil, err
	}

	meta, _ := f.loadCacheMeta(cachePath)
	cachedBody, _ := f.loadCacheBody(cachePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for _, c := range f.opts.Cookies {
		req.AddCookie(c)
	}

	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cachedBody) > 0 {
			f.log.Warn("feed fetch failed, using cached body", zap.Error(err), zap.String("calendar", name))
			return cachedBody, nil
		}
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, readErr
		}

		newMeta := cacheEntry{
			URL:          url,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			UpdatedAt:    time.Now().UTC(),
		}
		if err := f.saveCache(cachePath, newMeta, body); err != nil {
			f.log.Warn("feed cache save failed", zap.Error(err), zap.String("calendar", name))
		}

		f.log.Debug("feed fetched", zap.String("calendar", name), zap.Int("bytes", len(body)))
		return body, nil

	case http.StatusNotModified:
		if len(cachedBody) == 0 {
			return nil, errors.New("received 304 Not Modified but no cached body available")
		}
		f.log.Debug("feed not modified, using cache", zap.String("calendar", name))
		return cachedBody, nil

	default:
		if len(cachedBody) > 0 {
			f.log.Warn("feed fetch non-OK, using cached body",
				zap.String("calendar", name), zap.Int("status", resp.StatusCode))
			return cachedBody, nil
		}
		return nil, errors.New(resp.Status)
	}
}

func (f *Fetcher) cachePathForFeed(name string) string {
	sum := sha256.Sum256([]byte(f.feedURL(name)))
	return filepath.Join(f.opts.CacheDir, hex.EncodeToString(sum[:8]))
}

func (f *Fetcher) loadCacheMeta(cachePath string) (cacheEntry, error) {
	var meta cacheEntry

	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}, err
	}
	return meta, nil
}

func (f *Fetcher) loadCacheBody(cachePath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(cachePath, "body.ics"))
}

func (f *Fetcher) saveCache(cachePath string, meta cacheEntry, body []byte) error {
	// Write body first so meta never points at a missing body.
	if err := os.WriteFile(filepath.Join(cachePath, "body.ics"), body, 0o600); err != nil {
		return err
	}

	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}
