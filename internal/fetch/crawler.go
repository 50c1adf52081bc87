package fetch

import (
	"context"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/luxprima/internal/types"
)

// Crawler fetches a page and turns it into a CrawledItem. It never returns an
// error: every failure is reported through the item's Error field.
type Crawler struct {
	options  *Options
	renderer Renderer // nil disables the browser fallback
	verbose  bool
}

// CrawlerOption configures a Crawler.
type CrawlerOption func(*Crawler)

// WithTimeout sets the per-fetch timeout.
func WithTimeout(d time.Duration) CrawlerOption {
	return func(c *Crawler) {
		if d > 0 {
			c.options.Timeout = d
		}
	}
}

// WithRenderer enables the browser fallback for pages with little static text.
func WithRenderer(r Renderer) CrawlerOption {
	return func(c *Crawler) { c.renderer = r }
}

// WithVerbose enables per-fetch logging.
func WithVerbose(v bool) CrawlerOption {
	return func(c *Crawler) { c.verbose = v }
}

// NewCrawler creates a Crawler with default options.
func NewCrawler(opts ...CrawlerOption) *Crawler {
	c := &Crawler{options: DefaultOptions()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch retrieves url and extracts its title, main text, main HTML and outbound links.
func (c *Crawler) Fetch(ctx context.Context, rawURL string) types.CrawledItem {
	ctx, cancel := context.WithTimeout(ctx, c.options.Timeout)
	defer cancel()

	page, err := Get(ctx, rawURL, c.options)
	if err != nil {
		if c.verbose {
			log.Printf("[FETCH] %v", err)
		}
		return types.FailedItem(rawURL, err)
	}

	item, err := Parse(rawURL, page.HTML)
	if err != nil {
		return types.FailedItem(rawURL, err)
	}

	if c.renderer != nil && ShouldUseBrowser(item.Content) {
		if c.verbose {
			log.Printf("[FETCH] %s yielded %d chars, rendering in browser", rawURL, len(item.Content))
		}
		html, rerr := c.renderer.Render(ctx, rawURL)
		if rerr != nil {
			log.Printf("[FETCH] browser fallback failed for %s: %v", rawURL, rerr)
			return item
		}
		if rendered, perr := Parse(rawURL, html); perr == nil && len(rendered.Content) > len(item.Content) {
			return rendered
		}
	}

	return item
}

// Parse builds a CrawledItem from a page's HTML.
func Parse(pageURL, html string) (types.CrawledItem, error) {
	base, err := url.Parse(pageURL)
	if err != nil || base.Host == "" {
		return types.CrawledItem{}, &Error{URL: pageURL, Message: "invalid URL", Cause: err}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return types.CrawledItem{}, &Error{URL: pageURL, Message: "failed to parse HTML", Cause: err}
	}

	// Links come from the full page, before noise elements are stripped
	links := linksFromDocument(doc, base)

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	if title == "" {
		title = pageURL
	}

	platform := DetectPlatform(pageURL)
	main := mainSelection(doc, PlatformContentSelectors(platform), PlatformNoiseSelectors(platform))
	mainHTML, err := goquery.OuterHtml(main)
	if err != nil {
		return types.CrawledItem{}, &Error{URL: pageURL, Message: "failed to render main content", Cause: err}
	}

	return types.CrawledItem{
		URL:     pageURL,
		Title:   title,
		Content: cleanWhitespace(main.Text()),
		HTML:    mainHTML,
		Links:   links,
	}, nil
}
