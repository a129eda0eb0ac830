package source

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/abelbrown/wallfeed/internal/store"
)

const defaultPeapixBaseURL = "https://peapix.com"

// PeapixClient fetches Windows Spotlight wallpapers via the Peapix JSON feed.
type PeapixClient struct {
	BaseURL string
	Country string

	client *http.Client
}

// peapixEntry is one element of the Peapix feed array.
type peapixEntry struct {
	Title     string `json:"title"`
	Copyright string `json:"copyright"`
	FullURL   string `json:"fullUrl"`
	ThumbURL  string `json:"thumbUrl"`
	ImageURL  string `json:"imageUrl"`
	PageURL   string `json:"pageUrl"`
}

// NewPeapixClient creates a Spotlight feed client. Country may be empty.
func NewPeapixClient(country string, timeout time.Duration) *PeapixClient {
	return &PeapixClient{
		BaseURL: defaultPeapixBaseURL,
		Country: country,
		client:  newHTTPClient(timeout),
	}
}

func (c *PeapixClient) Name() string         { return "Windows Spotlight" }
func (c *PeapixClient) Source() store.Source { return store.SourcePeapix }

// Fetch retrieves up to n entries from the Spotlight feed.
func (c *PeapixClient) Fetch(ctx context.Context, n int) ([]store.Item, error) {
	if n <= 0 {
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s/spotlight/feed?n=%d", c.BaseURL, n)
	if c.Country != "" {
		endpoint += "&country=" + c.Country
	}

	var entries []peapixEntry
	if err := getJSON(ctx, c.client, endpoint, nil, &entries); err != nil {
		return nil, err
	}

	items := make([]store.Item, 0, len(entries))
	for _, e := range entries {
		full := e.FullURL
		if full == "" {
			full = e.ImageURL
		}
		if full == "" {
			continue
		}
		preview := e.ThumbURL
		if preview == "" {
			preview = full
		}
		items = append(items, store.Item{
			ID:          newID(),
			Source:      store.SourcePeapix,
			Title:       e.Title,
			Attribution: e.Copyright,
			ContentURL:  full,
			PreviewURL:  preview,
		})
		if len(items) >= n {
			break
		}
	}
	return items, nil
}
