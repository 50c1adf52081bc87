package types

// CrawledItem is the outcome of fetching one URL. A failed fetch carries Error
// and no content; it still counts as attempted.
type CrawledItem struct {
	URL     string   `json:"url"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	HTML    string   `json:"html,omitempty"`
	Links   []string `json:"links,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// OK reports whether the fetch succeeded.
func (c CrawledItem) OK() bool {
	return c.Error == ""
}

// FailedItem builds the error variant of a CrawledItem.
func FailedItem(url string, err error) CrawledItem {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return CrawledItem{URL: url, Title: "Error", Error: msg}
}

// Directive is the generation backend's pick of leads for one expansion cycle.
type Directive struct {
	Links       []string `json:"links"`
	SearchTerms []string `json:"search_terms"`
}

// Empty reports whether the directive suggests nothing.
func (d Directive) Empty() bool {
	return len(d.Links) == 0 && len(d.SearchTerms) == 0
}

// Capped returns a copy with both lists truncated to at most n entries.
func (d Directive) Capped(n int) Directive {
	if n < 0 {
		n = 0
	}
	out := Directive{
		Links:       append([]string(nil), d.Links...),
		SearchTerms: append([]string(nil), d.SearchTerms...),
	}
	if len(out.Links) > n {
		out.Links = out.Links[:n]
	}
	if len(out.SearchTerms) > n {
		out.SearchTerms = out.SearchTerms[:n]
	}
	return out
}
