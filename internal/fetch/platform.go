// Package fetch - platform.go provides publishing platform detection and platform-specific selectors.
package fetch

import (
	"net/url"
	"strings"
)

// Platform represents a known publishing platform.
type Platform string

const (
	// PlatformReuters is the Reuters newswire
	PlatformReuters Platform = "reuters"
	// PlatformBloomberg is Bloomberg news
	PlatformBloomberg Platform = "bloomberg"
	// PlatformCNBC is CNBC markets coverage
	PlatformCNBC Platform = "cnbc"
	// PlatformSubstack is a Substack newsletter
	PlatformSubstack Platform = "substack"
	// PlatformMedium is a Medium publication
	PlatformMedium Platform = "medium"
	// PlatformUnknown is an unrecognized platform
	PlatformUnknown Platform = "unknown"
)

var platformHosts = []struct {
	suffix   string
	platform Platform
}{
	{"reuters.com", PlatformReuters},
	{"bloomberg.com", PlatformBloomberg},
	{"cnbc.com", PlatformCNBC},
	{"substack.com", PlatformSubstack},
	{"medium.com", PlatformMedium},
}

// DetectPlatform identifies the publishing platform from a URL.
func DetectPlatform(urlStr string) Platform {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return PlatformUnknown
	}

	host := strings.ToLower(parsed.Hostname())
	for _, h := range platformHosts {
		if host == h.suffix || strings.HasSuffix(host, "."+h.suffix) {
			return h.platform
		}
	}
	return PlatformUnknown
}

// PlatformContentSelectors returns content selectors for a platform, falling
// back to the generic article selectors.
func PlatformContentSelectors(platform Platform) []string {
	var specific []string
	switch platform {
	case PlatformReuters:
		specific = []string{"[data-testid='ArticleBody']", ".article-body__content"}
	case PlatformBloomberg:
		specific = []string{".body-content", "[data-component='article-body']"}
	case PlatformCNBC:
		specific = []string{".ArticleBody-articleBody", ".group"}
	case PlatformSubstack:
		specific = []string{".available-content", ".body.markup"}
	case PlatformMedium:
		specific = []string{"article section", "article"}
	}
	return append(specific, DefaultTextSelectors()...)
}

// PlatformNoiseSelectors returns noise exclusion selectors for a platform.
func PlatformNoiseSelectors(platform Platform) []string {
	common := []string{
		// Subscription and paywall prompts
		".paywall",
		".subscribe",
		".newsletter-signup",
		"[data-testid='paywall']",

		// Social and share buttons
		".social-share",
		".share-buttons",

		// Related content rails
		".related-content",
		".recommended",
		"aside",
	}

	switch platform {
	case PlatformReuters:
		return append(common, "[data-testid='Toolbar']", "[class*='trust-badge']")
	case PlatformCNBC:
		return append(common, ".RelatedQuotes-container", ".InlineVideo-container")
	case PlatformSubstack:
		return append(common, ".subscription-widget-wrap", ".post-footer")
	case PlatformMedium:
		return append(common, "[data-testid='headerSocialShareButton']")
	default:
		return common
	}
}
