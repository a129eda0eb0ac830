package source

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/abelbrown/wallfeed/internal/store"
)

const defaultPexelsBaseURL = "https://api.pexels.com/v1"

// PexelsClient fetches curated photos from the Pexels API.
// Pages are chosen at random so successive rounds don't replay page one.
type PexelsClient struct {
	BaseURL string

	apiKey string
	client *http.Client

	mu  sync.Mutex
	rng *rand.Rand
}

// pexelsResponse is the /curated response shape.
type pexelsResponse struct {
	Photos []struct {
		ID           int    `json:"id"`
		Alt          string `json:"alt"`
		Photographer string `json:"photographer"`
		Src          struct {
			Original string `json:"original"`
			Large2x  string `json:"large2x"`
			Large    string `json:"large"`
			Medium   string `json:"medium"`
		} `json:"src"`
	} `json:"photos"`
}

// NewPexelsClient creates a Pexels curated-photos client.
func NewPexelsClient(apiKey string, timeout time.Duration) *PexelsClient {
	return &PexelsClient{
		BaseURL: defaultPexelsBaseURL,
		apiKey:  apiKey,
		client:  newHTTPClient(timeout),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *PexelsClient) Name() string         { return "Pexels" }
func (c *PexelsClient) Source() store.Source { return store.SourcePexels }

// Available reports whether the client is configured with an API key.
func (c *PexelsClient) Available() bool { return c.apiKey != "" }

// Fetch retrieves up to n curated photos from a random page.
func (c *PexelsClient) Fetch(ctx context.Context, n int) ([]store.Item, error) {
	if n <= 0 || !c.Available() {
		return nil, nil
	}

	c.mu.Lock()
	page := 1 + c.rng.Intn(50)
	c.mu.Unlock()

	endpoint := fmt.Sprintf("%s/curated?page=%d&per_page=%d", c.BaseURL, page, n)
	headers := map[string]string{"Authorization": c.apiKey}

	var resp pexelsResponse
	if err := getJSON(ctx, c.client, endpoint, headers, &resp); err != nil {
		return nil, err
	}

	items := make([]store.Item, 0, len(resp.Photos))
	for _, p := range resp.Photos {
		if p.Src.Original == "" {
			continue
		}
		title := p.Alt
		if title == "" {
			title = "Pexels Photo " + strconv.Itoa(p.ID)
		}
		preview := p.Src.Large
		if preview == "" {
			preview = p.Src.Original
		}
		items = append(items, store.Item{
			ID:          newID(),
			Source:      store.SourcePexels,
			Title:       title,
			Attribution: "Photo by " + p.Photographer + " on Pexels",
			ContentURL:  p.Src.Original,
			PreviewURL:  preview,
		})
	}
	return items, nil
}
