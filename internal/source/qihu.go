package source

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/abelbrown/wallfeed/internal/store"
)

const defaultQihuBaseURL = "http://wallpaper.apc.360.cn"

// qihuCategories are the wallpaper category IDs we pull from.
var qihuCategories = []string{
	"26", // anime
	"11", // games
	"15", // cars
	"9",  // sports
	"30", // abstract
	"5",  // landscapes
	"10", // animals
	"38", // architecture
}

// QihuClient fetches wallpapers from the 360 wallpaper API. Each fetch pulls
// from a randomly chosen category at a random page offset, so successive
// rounds keep yielding fresh candidates.
type QihuClient struct {
	BaseURL string

	client *http.Client

	mu  sync.Mutex
	rng *rand.Rand
}

// qihuResponse is the getAppsByCategory response shape.
type qihuResponse struct {
	Data []struct {
		Img1600x900 string `json:"img_1600_900"`
		URLThumb    string `json:"url_thumb"`
		UTag        string `json:"utag"`
	} `json:"data"`
}

// NewQihuClient creates a 360 wallpaper client.
func NewQihuClient(timeout time.Duration) *QihuClient {
	return &QihuClient{
		BaseURL: defaultQihuBaseURL,
		client:  newHTTPClient(timeout),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QihuClient) Name() string         { return "360 Wallpaper" }
func (c *QihuClient) Source() store.Source { return store.SourceQihu }

// Fetch retrieves up to n wallpapers from one random category.
func (c *QihuClient) Fetch(ctx context.Context, n int) ([]store.Item, error) {
	if n <= 0 {
		return nil, nil
	}

	c.mu.Lock()
	category := qihuCategories[c.rng.Intn(len(qihuCategories))]
	start := c.rng.Intn(500)
	c.mu.Unlock()

	endpoint := fmt.Sprintf(
		"%s/index.php?c=WallPaper&a=getAppsByCategory&cid=%s&start=%d&count=%d&from=360chrome",
		c.BaseURL, category, start, n)

	var resp qihuResponse
	if err := getJSON(ctx, c.client, endpoint, nil, &resp); err != nil {
		return nil, err
	}

	items := make([]store.Item, 0, len(resp.Data))
	for _, entry := range resp.Data {
		if entry.Img1600x900 == "" {
			continue
		}
		// The API only hands out the 1600x900 variant; the 2K one lives at
		// the same path with a different size segment.
		full := strings.Replace(entry.Img1600x900, "1600_900_85", "2560_1440_100", 1)
		preview := entry.URLThumb
		if preview == "" {
			preview = entry.Img1600x900
		}
		title := entry.UTag
		if title == "" {
			title = "360 Wallpaper"
		}
		items = append(items, store.Item{
			ID:          newID(),
			Source:      store.SourceQihu,
			Title:       title,
			Attribution: "360 Wallpaper",
			ContentURL:  full,
			PreviewURL:  preview,
		})
		if len(items) >= n {
			break
		}
	}
	return items, nil
}
