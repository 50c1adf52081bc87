package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultDuckDuckGoURL is the HTML-only results endpoint.
const DefaultDuckDuckGoURL = "https://html.duckduckgo.com/html/"

const duckDuckGoUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DuckDuckGo scrapes the DuckDuckGo HTML results page. It needs no credentials.
type DuckDuckGo struct {
	BaseURL string
	client  *http.Client
}

// NewDuckDuckGo creates a DuckDuckGo searcher.
func NewDuckDuckGo(timeout time.Duration) *DuckDuckGo {
	return &DuckDuckGo{
		BaseURL: DefaultDuckDuckGoURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Search implements Searcher.
func (d *DuckDuckGo) Search(ctx context.Context, term string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = 1
	}

	endpoint := d.BaseURL + "?" + url.Values{"q": {term}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &Error{Provider: "duckduckgo", Term: term, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", duckDuckGoUserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &Error{Provider: "duckduckgo", Term: term, Message: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Provider: "duckduckgo", Term: term, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &Error{Provider: "duckduckgo", Term: term, Message: "failed to parse results", Cause: err}
	}

	var results []Result
	doc.Find("a.result__a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		link := resolveDuckDuckGoLink(href)
		if link == "" {
			return true
		}
		results = append(results, Result{URL: link, Title: strings.TrimSpace(s.Text())})
		return len(results) < maxResults
	})
	return results, nil
}

// resolveDuckDuckGoLink unwraps the redirect DuckDuckGo puts around result links.
func resolveDuckDuckGoLink(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		href = target
		if u, err = url.Parse(target); err != nil {
			return ""
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return href
}
