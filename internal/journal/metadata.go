package journal

import (
	"regexp"
	"strings"
)

// DefaultModelLabel is reported when a journal never names its provider.
const DefaultModelLabel = "LuxPrima Hybrid"

const providerMarker = "Initializing LLM Provider:"

var sourcePattern = regexp.MustCompile(`Source: (https?://[^\s]+)`)

// Metadata is what downstream renderers recover from a stored journal.
type Metadata struct {
	Model       string `json:"model"`
	SourceCount int    `json:"sources"`
}

// ParseMetadata extracts the provider label and the number of distinct
// source URLs from journal entries.
func ParseMetadata(entries []string) Metadata {
	md := Metadata{Model: DefaultModelLabel}
	seen := make(map[string]struct{})

	for _, e := range entries {
		if idx := strings.Index(e, providerMarker); idx >= 0 {
			md.Model = strings.TrimSpace(e[idx+len(providerMarker):])
		}
		if m := sourcePattern.FindStringSubmatch(e); m != nil {
			seen[m[1]] = struct{}{}
		}
	}

	md.SourceCount = len(seen)
	return md
}
