package source

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/abelbrown/wallfeed/internal/logging"
	"github.com/abelbrown/wallfeed/internal/store"
)

const defaultUnsplashBaseURL = "https://api.unsplash.com"

// unsplashRequestsPerHour is the demo-tier request budget. When the bucket
// is empty the client reports zero items instead of an error; the caller
// treats that like any other quiet round.
const unsplashRequestsPerHour = 12

// UnsplashClient fetches random landscape photos from the Unsplash API.
// The request budget lives in a per-client token bucket, not process-wide
// state, so two clients with separate keys meter independently.
type UnsplashClient struct {
	BaseURL string

	accessKey string
	limiter   *rate.Limiter
	client    *http.Client
}

// unsplashPhoto is the subset of the /photos/random response we use.
type unsplashPhoto struct {
	ID             string `json:"id"`
	Description    string `json:"description"`
	AltDescription string `json:"alt_description"`
	URLs           struct {
		Full    string `json:"full"`
		Regular string `json:"regular"`
		Small   string `json:"small"`
	} `json:"urls"`
	User struct {
		Name string `json:"name"`
	} `json:"user"`
}

// NewUnsplashClient creates an Unsplash client with the hourly token bucket.
func NewUnsplashClient(accessKey string, timeout time.Duration) *UnsplashClient {
	return NewUnsplashClientWithLimiter(accessKey, timeout,
		rate.NewLimiter(rate.Every(time.Hour/unsplashRequestsPerHour), unsplashRequestsPerHour))
}

// NewUnsplashClientWithLimiter allows injecting the limiter (for tests, or
// to share one bucket across clients using the same key).
func NewUnsplashClientWithLimiter(accessKey string, timeout time.Duration, limiter *rate.Limiter) *UnsplashClient {
	return &UnsplashClient{
		BaseURL:   defaultUnsplashBaseURL,
		accessKey: accessKey,
		limiter:   limiter,
		client:    newHTTPClient(timeout),
	}
}

func (c *UnsplashClient) Name() string         { return "Unsplash" }
func (c *UnsplashClient) Source() store.Source { return store.SourceUnsplash }

// Available reports whether the client is configured with an access key.
func (c *UnsplashClient) Available() bool { return c.accessKey != "" }

// Fetch retrieves up to n random landscape photos.
// Returns immediately with zero items when unconfigured or when the hourly
// request budget is spent.
func (c *UnsplashClient) Fetch(ctx context.Context, n int) ([]store.Item, error) {
	if n <= 0 || !c.Available() {
		return nil, nil
	}
	if !c.limiter.Allow() {
		logging.Debug("unsplash request budget exhausted, skipping fetch")
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s/photos/random?count=%d&orientation=landscape", c.BaseURL, n)
	headers := map[string]string{
		"Authorization":  "Client-ID " + c.accessKey,
		"Accept-Version": "v1",
	}

	var photos []unsplashPhoto
	if err := getJSON(ctx, c.client, endpoint, headers, &photos); err != nil {
		return nil, err
	}

	items := make([]store.Item, 0, len(photos))
	for _, p := range photos {
		if p.URLs.Full == "" {
			continue
		}
		title := p.Description
		if title == "" {
			title = p.AltDescription
		}
		if title == "" {
			title = "Unsplash Photo"
		}
		preview := p.URLs.Regular
		if preview == "" {
			preview = p.URLs.Full
		}
		items = append(items, store.Item{
			ID:          newID(),
			Source:      store.SourceUnsplash,
			Title:       title,
			Attribution: "Photo by " + p.User.Name + " on Unsplash",
			ContentURL:  p.URLs.Full,
			PreviewURL:  preview,
		})
	}
	return items, nil
}
