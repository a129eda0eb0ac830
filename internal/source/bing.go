package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/abelbrown/wallfeed/internal/store"
)

const defaultBingBaseURL = "https://www.bing.com"

// BingClient fetches daily wallpapers from the Bing homepage image archive.
// The archive serves at most 8 images per market per request; asking across
// markets yields a deeper pool, and identical images across markets are
// handled downstream by deduplication.
type BingClient struct {
	BaseURL string
	Markets []string

	client *http.Client
}

// bingArchive is the HPImageArchive response shape.
type bingArchive struct {
	Images []struct {
		URLBase   string `json:"urlbase"`
		Title     string `json:"title"`
		Copyright string `json:"copyright"`
	} `json:"images"`
}

// NewBingClient creates a Bing archive client for the given market codes
// (e.g. "en-US", "zh-CN"). An empty list defaults to en-US.
func NewBingClient(markets []string, timeout time.Duration) *BingClient {
	if len(markets) == 0 {
		markets = []string{"en-US"}
	}
	return &BingClient{
		BaseURL: defaultBingBaseURL,
		Markets: markets,
		client:  newHTTPClient(timeout),
	}
}

func (c *BingClient) Name() string         { return "Bing Daily" }
func (c *BingClient) Source() store.Source { return store.SourceBing }

// Fetch retrieves up to n archive images, walking markets until n is met.
// A failing market is skipped; only all markets failing is an error.
func (c *BingClient) Fetch(ctx context.Context, n int) ([]store.Item, error) {
	if n <= 0 {
		return nil, nil
	}

	var items []store.Item
	var lastErr error
	for _, market := range c.Markets {
		if len(items) >= n {
			break
		}
		per := n - len(items)
		if per > 8 {
			per = 8 // archive page size
		}

		got, err := c.fetchMarket(ctx, market, per)
		if err != nil {
			lastErr = err
			continue
		}
		items = append(items, got...)
	}

	if len(items) == 0 && lastErr != nil {
		return nil, lastErr
	}
	if len(items) > n {
		items = items[:n]
	}
	return items, nil
}

func (c *BingClient) fetchMarket(ctx context.Context, market string, n int) ([]store.Item, error) {
	endpoint := fmt.Sprintf("%s/HPImageArchive.aspx?format=js&idx=0&n=%d&mkt=%s",
		c.BaseURL, n, url.QueryEscape(market))

	var archive bingArchive
	if err := getJSON(ctx, c.client, endpoint, nil, &archive); err != nil {
		return nil, err
	}

	items := make([]store.Item, 0, len(archive.Images))
	for _, img := range archive.Images {
		if img.URLBase == "" {
			continue
		}
		// urlbase resolves to a sized variant; UHD for the full image,
		// 1920x1080 as the preview.
		base := img.URLBase
		if !strings.HasPrefix(base, "http") {
			base = c.BaseURL + base
		}
		title := img.Title
		if title == "" {
			title = img.Copyright
		}
		items = append(items, store.Item{
			ID:          newID(),
			Source:      store.SourceBing,
			Title:       title,
			Attribution: img.Copyright,
			ContentURL:  base + "_UHD.jpg",
			PreviewURL:  base + "_1920x1080.jpg",
		})
	}
	return items, nil
}
