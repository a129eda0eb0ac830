// Package source provides clients for remote wallpaper providers.
//
// Every client implements the same contract: fetch up to n candidate items,
// bounded by the caller's context, returning zero items rather than an error
// when the provider has nothing to give (empty page, exhausted quota). The
// aggregation layer is agnostic to each provider's wire format.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/abelbrown/wallfeed/internal/store"
)

// userAgent identifies us to provider APIs.
const userAgent = "wallfeed/0.1 (+https://github.com/abelbrown/wallfeed)"

// DefaultTimeout bounds a single provider fetch.
const DefaultTimeout = 30 * time.Second

// Client is the contract all providers implement.
// Fetch retrieves up to n candidate items. A nil slice with a nil error is a
// valid outcome (nothing new, or an internal quota was exhausted).
type Client interface {
	// Name returns the human-readable provider name.
	Name() string

	// Source returns the catalog tag for items this client produces.
	Source() store.Source

	// Fetch retrieves up to n candidate items from the provider.
	Fetch(ctx context.Context, n int) ([]store.Item, error)
}

// newHTTPClient builds the shared http.Client configuration for providers.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// newID assigns a fresh opaque identifier to a candidate item.
func newID() string {
	return uuid.NewString()
}

// getJSON performs a GET request and decodes the JSON response into v.
// headers may be nil.
func getJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	for k, val := range headers {
		req.Header.Set(k, val)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("fetch %s: HTTP %d", url, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}
