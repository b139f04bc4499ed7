package scan

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultMaxFetchBytes caps a single remote archive download.
const DefaultMaxFetchBytes = 256 << 20

// Fetcher downloads remote archives into memory. Concurrent requests for the
// same URL share one download.
type Fetcher struct {
	Client   *http.Client
	MaxBytes int64

	group singleflight.Group
}

// NewFetcher returns a Fetcher with a bounded client timeout.
func NewFetcher() *Fetcher {
	return &Fetcher{
		Client:   &http.Client{Timeout: 60 * time.Second},
		MaxBytes: DefaultMaxFetchBytes,
	}
}

// Fetch returns the body of url. Non-2xx responses and oversized bodies fail.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	v, err, _ := f.group.Do(url, func() (any, error) {
		return f.fetch(ctx, url)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (f *Fetcher) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: %s", url, resp.Status)
	}
	limit := f.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxFetchBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("fetch %s: body exceeds %d bytes", url, limit)
	}
	return data, nil
}
