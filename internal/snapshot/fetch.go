package snapshot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/supportlens/supportlens/pkg/models"
)

const (
	// fetchTimeout bounds one vendor snapshot pull.
	fetchTimeout = 60 * time.Second

	// maxSnapshotBytes caps the response body read. A runaway export must
	// not exhaust process memory.
	maxSnapshotBytes = 64 << 20
)

// HTTPFetcher pulls the dataset snapshot from a vendor export endpoint
// returning the snapshot JSON shape.
type HTTPFetcher struct {
	client *http.Client
	url    string
}

// NewHTTPFetcher creates a fetcher for the given snapshot endpoint.
func NewHTTPFetcher(url string) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{Timeout: fetchTimeout},
		url:    url,
	}
}

// FetchSnapshot retrieves and decodes the snapshot.
func (f *HTTPFetcher) FetchSnapshot(ctx context.Context) (*models.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build snapshot request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch snapshot: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotBytes))
	if err != nil {
		return nil, fmt.Errorf("read snapshot body: %w", err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}
