package search

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// googleMaxNum is the largest page size the Custom Search API accepts.
const googleMaxNum = 10

// Google searches with the Programmable Search Engine (Custom Search JSON API).
type Google struct {
	svc     *customsearch.Service
	cx      string
	timeout time.Duration
}

// NewGoogle creates a Google searcher. Extra client options are appended
// after the API key.
func NewGoogle(ctx context.Context, apiKey, cx string, timeout time.Duration, opts ...option.ClientOption) (*Google, error) {
	if apiKey == "" || cx == "" {
		return nil, fmt.Errorf("google search requires an API key and a search engine ID")
	}
	svc, err := customsearch.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create customsearch service: %w", err)
	}
	return &Google{svc: svc, cx: cx, timeout: timeout}, nil
}

// Search implements Searcher.
func (g *Google) Search(ctx context.Context, term string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = 1
	}
	if maxResults > googleMaxNum {
		maxResults = googleMaxNum
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.svc.Cse.List().Cx(g.cx).Q(term).Num(int64(maxResults)).Context(ctx).Do()
	if err != nil {
		return nil, &Error{Provider: "google", Term: term, Message: "request failed", Cause: err}
	}

	results := make([]Result, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Link == "" {
			continue
		}
		results = append(results, Result{URL: item.Link, Title: item.Title})
	}
	return results, nil
}
