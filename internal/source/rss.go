package source

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/abelbrown/wallfeed/internal/store"
)

// RSSClient pulls wallpaper candidates from any RSS/Atom feed that carries
// image enclosures (NASA Image of the Day, photo blogs, etc).
type RSSClient struct {
	FeedName string
	FeedURL  string

	client *http.Client
}

// NewRSSClient creates a client for one image feed.
func NewRSSClient(name, feedURL string, timeout time.Duration) *RSSClient {
	return &RSSClient{
		FeedName: name,
		FeedURL:  feedURL,
		client:   newHTTPClient(timeout),
	}
}

func (c *RSSClient) Name() string         { return c.FeedName }
func (c *RSSClient) Source() store.Source { return store.SourceRSS }

// Fetch retrieves up to n feed entries that carry a usable image URL.
// Entries without one are skipped, not errors.
func (c *RSSClient) Fetch(ctx context.Context, n int) ([]store.Item, error) {
	if n <= 0 {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.FeedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch feed: HTTP %d", resp.StatusCode)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := make([]store.Item, 0, n)
	for _, entry := range feed.Items {
		imageURL := feedImageURL(entry)
		if imageURL == "" {
			continue
		}
		attribution := c.FeedName
		if entry.Author != nil && entry.Author.Name != "" {
			attribution = entry.Author.Name
		}
		items = append(items, store.Item{
			ID:          newID(),
			Source:      store.SourceRSS,
			Title:       entry.Title,
			Attribution: attribution,
			ContentURL:  imageURL,
			PreviewURL:  imageURL,
		})
		if len(items) >= n {
			break
		}
	}
	return items, nil
}

// feedImageURL extracts the best image URL from a feed entry: image
// enclosures first, then the item image, then media:content extensions.
func feedImageURL(entry *gofeed.Item) string {
	for _, enc := range entry.Enclosures {
		if enc.URL != "" && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	if entry.Image != nil && entry.Image.URL != "" {
		return entry.Image.URL
	}
	if media, ok := entry.Extensions["media"]; ok {
		for _, content := range media["content"] {
			if u := content.Attrs["url"]; u != "" {
				return u
			}
		}
	}
	return ""
}
