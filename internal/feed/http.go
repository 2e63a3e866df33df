package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPSource fetches the feed with a GET request.
type HTTPSource struct {
	client *resty.Client
	url    string
}

func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &HTTPSource{client: client, url: url}
}

func (s *HTTPSource) Load(ctx context.Context) ([]byte, error) {
	resp, err := s.client.R().SetContext(ctx).Get(s.url)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("fetch feed: unexpected status %d", resp.StatusCode())
	}

	return resp.Body(), nil
}
