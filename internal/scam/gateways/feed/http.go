package feed

import (
	"context"
	"fmt"
	"net/http"
)

// HTTPSource fetches the feed with a single GET. There are no retries.
type HTTPSource struct {
	opts   Options
	client *http.Client
}

// NewHTTPSource builds an HTTPSource with its own client bounded by opts.Timeout.
func NewHTTPSource(opts Options) *HTTPSource {
	opts = opts.withDefaults()
	return &HTTPSource{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
	}
}

func (s *HTTPSource) Fetch(ctx context.Context) (Batch, error) {
	target := sanitizeURL(s.opts.URL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.opts.URL, nil)
	if err != nil {
		return Batch{}, err
	}
	req.Header.Set("Accept", "application/json")

	s.opts.Logger.Info(map[string]any{"url": target}, "feed_fetch_start")
	resp, err := s.client.Do(req)
	if err != nil {
		return Batch{}, fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Batch{}, fmt.Errorf("fetch %s: HTTP %d", target, resp.StatusCode)
	}

	b, err := decode(resp.Body, s.opts.MaxBytes, s.opts.Clock.Now(), s.opts.Logger)
	if err != nil {
		return Batch{}, fmt.Errorf("fetch %s: %w", target, err)
	}
	s.opts.Logger.Info(map[string]any{"url": target, "records": len(b.Records), "skipped": b.Skipped}, "feed_fetch_done")
	return b, nil
}
