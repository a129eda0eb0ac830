// Package download pulls wallpaper images to the local disk cache and
// records their paths in the catalog.
package download

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/abelbrown/wallfeed/internal/cache"
	"github.com/abelbrown/wallfeed/internal/logging"
	"github.com/abelbrown/wallfeed/internal/store"
)

// DefaultTimeout bounds a single image download. Full-resolution
// wallpapers run to tens of megabytes, so this is generous compared to
// the metadata fetch timeout.
const DefaultTimeout = 60 * time.Second

const userAgent = "wallfeed/0.1 (+https://github.com/abelbrown/wallfeed)"

// Downloader fetches image bytes into the disk cache and updates the
// catalog's local-path columns.
type Downloader struct {
	store  *store.Store
	cache  *cache.DiskCache
	client *http.Client
}

// New creates a Downloader. A non-positive timeout selects DefaultTimeout.
func New(st *store.Store, c *cache.DiskCache, timeout time.Duration) *Downloader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Downloader{
		store:  st,
		cache:  c,
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch ensures the item's full-resolution image (and preview, when the
// item has a distinct preview URL) is on disk, records the paths in the
// catalog, and returns the local path of the full image.
//
// Already-cached files are reused without touching the network. A
// preview failure is logged and tolerated; a full-image failure fails
// the call.
func (d *Downloader) Fetch(ctx context.Context, item store.Item) (string, error) {
	if item.ContentURL == "" {
		return "", fmt.Errorf("item %s has no content URL", item.ID)
	}

	fullPath, err := d.ensure(ctx, item.ContentURL)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", item.Source, err)
	}

	previewPath := ""
	if item.PreviewURL != "" && item.PreviewURL != item.ContentURL {
		previewPath, err = d.ensure(ctx, item.PreviewURL)
		if err != nil {
			logging.Warn("preview download failed", "id", item.ID, "error", err)
			previewPath = ""
		}
	}

	if err := d.store.SetLocalPaths(item.ID, fullPath, previewPath); err != nil {
		return fullPath, err
	}
	return fullPath, nil
}

// ensure returns the cached path for url, downloading it first if absent.
func (d *Downloader) ensure(ctx context.Context, url string) (string, error) {
	if d.cache.Exists(url) {
		return d.cache.Path(url), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	path, err := d.cache.Put(url, resp.Body)
	if err != nil {
		return "", err
	}
	logging.Debug("image cached", "url", url, "path", path)
	return path, nil
}
