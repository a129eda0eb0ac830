package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/abelbrown/wallfeed/internal/store"
)

func TestBingFetch(t *testing.T) {
	payload := `{"images":[
		{"urlbase":"/th?id=OHR.Sunrise","title":"Sunrise","copyright":"Somewhere (© Photographer)"},
		{"urlbase":"/th?id=OHR.Forest","title":"","copyright":"A forest"}
	]}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("mkt"); got != "en-US" {
			t.Errorf("expected mkt=en-US, got %q", got)
		}
		w.Write([]byte(payload))
	}))
	defer server.Close()

	client := NewBingClient([]string{"en-US"}, time.Second)
	client.BaseURL = server.URL

	items, err := client.Fetch(context.Background(), 8)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	if items[0].Title != "Sunrise" {
		t.Errorf("unexpected title: %q", items[0].Title)
	}
	if !strings.HasSuffix(items[0].ContentURL, "_UHD.jpg") {
		t.Errorf("content URL should be the UHD variant: %q", items[0].ContentURL)
	}
	if !strings.HasSuffix(items[0].PreviewURL, "_1920x1080.jpg") {
		t.Errorf("preview URL should be the 1080p variant: %q", items[0].PreviewURL)
	}
	if items[0].Source != store.SourceBing {
		t.Errorf("unexpected source tag: %q", items[0].Source)
	}
	// Copyright stands in for a missing title.
	if items[1].Title != "A forest" {
		t.Errorf("expected copyright fallback title, got %q", items[1].Title)
	}
}

func TestBingFetchSkipsFailingMarket(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Query().Get("mkt") == "de-DE" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"images":[{"urlbase":"/th?id=OHR.Alps","title":"Alps","copyright":"c"}]}`))
	}))
	defer server.Close()

	client := NewBingClient([]string{"de-DE", "en-US"}, time.Second)
	client.BaseURL = server.URL

	items, err := client.Fetch(context.Background(), 8)
	if err != nil {
		t.Fatalf("Fetch failed despite one healthy market: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("expected 1 item from the healthy market, got %d", len(items))
	}
	if calls != 2 {
		t.Errorf("expected both markets queried, got %d calls", calls)
	}
}

func TestPeapixFetch(t *testing.T) {
	payload := `[
		{"title":"Aurora","copyright":"© Someone","fullUrl":"https://img.example/a_full.jpg","thumbUrl":"https://img.example/a_thumb.jpg"},
		{"title":"No image"},
		{"title":"Dunes","imageUrl":"https://img.example/b.jpg"}
	]`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/spotlight/feed") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(payload))
	}))
	defer server.Close()

	client := NewPeapixClient("", time.Second)
	client.BaseURL = server.URL

	items, err := client.Fetch(context.Background(), 10)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items (entry without URL skipped), got %d", len(items))
	}
	if items[0].ContentURL != "https://img.example/a_full.jpg" {
		t.Errorf("unexpected content URL: %q", items[0].ContentURL)
	}
	// imageUrl doubles as both full and preview when nothing else is given.
	if items[1].PreviewURL != "https://img.example/b.jpg" {
		t.Errorf("unexpected preview fallback: %q", items[1].PreviewURL)
	}
}

func TestQihuFetchUpgradesResolution(t *testing.T) {
	payload := `{"data":[
		{"img_1600_900":"https://img.example/u/1600_900_85/x.jpg","url_thumb":"https://img.example/t/x.jpg","utag":"mountains"}
	]}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("c") != "WallPaper" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Write([]byte(payload))
	}))
	defer server.Close()

	client := NewQihuClient(time.Second)
	client.BaseURL = server.URL

	items, err := client.Fetch(context.Background(), 5)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if !strings.Contains(items[0].ContentURL, "2560_1440_100") {
		t.Errorf("content URL should be upgraded to 2K: %q", items[0].ContentURL)
	}
	if items[0].Title != "mountains" {
		t.Errorf("unexpected title: %q", items[0].Title)
	}
}

func TestUnsplashQuotaExhaustedReturnsZeroItems(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`[{"id":"x","urls":{"full":"https://img.example/full.jpg","regular":"https://img.example/reg.jpg"},"user":{"name":"Ann"}}]`))
	}))
	defer server.Close()

	// One token, effectively never refilled within the test.
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	client := NewUnsplashClientWithLimiter("test-key", time.Second, limiter)
	client.BaseURL = server.URL

	items, err := client.Fetch(context.Background(), 1)
	if err != nil {
		t.Fatalf("first fetch failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Attribution != "Photo by Ann on Unsplash" {
		t.Errorf("unexpected attribution: %q", items[0].Attribution)
	}

	// Budget spent: no request, no error, no items.
	items, err = client.Fetch(context.Background(), 1)
	if err != nil {
		t.Fatalf("quota-exhausted fetch should not error: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected 0 items when over budget, got %d", len(items))
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 upstream request, got %d", calls)
	}
}

func TestUnsplashUnconfigured(t *testing.T) {
	client := NewUnsplashClient("", time.Second)
	items, err := client.Fetch(context.Background(), 3)
	if err != nil {
		t.Fatalf("unconfigured fetch should not error: %v", err)
	}
	if items != nil {
		t.Errorf("expected nil items without an access key, got %v", items)
	}
}

func TestPexelsFetchSendsAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "secret" {
			t.Errorf("missing API key header")
		}
		w.Write([]byte(`{"photos":[{"id":7,"alt":"Sea","photographer":"Bo","src":{"original":"https://img.example/o.jpg","large":"https://img.example/l.jpg"}}]}`))
	}))
	defer server.Close()

	client := NewPexelsClient("secret", time.Second)
	client.BaseURL = server.URL

	items, err := client.Fetch(context.Background(), 2)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Title != "Sea" || items[0].PreviewURL != "https://img.example/l.jpg" {
		t.Errorf("unexpected item: %+v", items[0])
	}
}

func TestRSSFetchExtractsEnclosures(t *testing.T) {
	rss := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Image of the Day</title>
    <item>
      <title>Nebula</title>
      <link>https://example.com/nebula</link>
      <enclosure url="https://example.com/nebula.jpg" type="image/jpeg" length="1"/>
    </item>
    <item>
      <title>Text only</title>
      <link>https://example.com/text</link>
    </item>
  </channel>
</rss>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rss))
	}))
	defer server.Close()

	client := NewRSSClient("Image of the Day", server.URL, time.Second)

	items, err := client.Fetch(context.Background(), 10)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item (no-image entry skipped), got %d", len(items))
	}
	if items[0].ContentURL != "https://example.com/nebula.jpg" {
		t.Errorf("unexpected content URL: %q", items[0].ContentURL)
	}
	if items[0].Source != store.SourceRSS {
		t.Errorf("unexpected source tag: %q", items[0].Source)
	}
}

func TestFetchRespectsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"images":[]}`))
	}))
	defer server.Close()

	client := NewBingClient([]string{"en-US"}, time.Second)
	client.BaseURL = server.URL

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := client.Fetch(ctx, 1); err == nil {
		t.Error("expected error from cancelled context")
	}
}
