package analyzer

import (
	"context"
	"fmt"
	"net/http"

	"github.com/raysh454/hdrscan/internal/model"
	"github.com/raysh454/hdrscan/internal/webclient"
)

// LiveSource fetches each URL with the web client. Fetching happens on the
// workers, so the pool bounds concurrent requests too.
type LiveSource struct {
	Client webclient.WebClient
	URLs   []string
	Method string
	// Origin is sent as the request Origin header when non-empty.
	Origin string
}

func (s LiveSource) Items(ctx context.Context) <-chan Item {
	items := make(SliceSource, len(s.URLs))
	for i, u := range s.URLs {
		items[i] = Item{
			Ref:  u,
			Load: func(ctx context.Context) (*model.Record, error) { return s.fetch(ctx, u) },
		}
	}
	return items.Items(ctx)
}

func (s LiveSource) fetch(ctx context.Context, rawURL string) (*model.Record, error) {
	if s.Client == nil {
		return nil, fmt.Errorf("analyzer: web client is nil")
	}
	req := &webclient.Request{Method: s.Method, URL: rawURL, Headers: http.Header{}}
	if s.Origin != "" {
		req.Headers.Set("Origin", s.Origin)
	}
	resp, err := s.Client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	return resp.Record()
}
