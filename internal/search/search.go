// Package search resolves free-text research terms to result URLs.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DefaultTimeout bounds a single search call.
const DefaultTimeout = 15 * time.Second

// Result is one ranked search hit.
type Result struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// Searcher returns up to maxResults hits for term, best first.
type Searcher interface {
	Search(ctx context.Context, term string, maxResults int) ([]Result, error)
}

// Error represents a failed search.
type Error struct {
	Provider string
	Term     string
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s search for %q: %s: %v", e.Provider, e.Term, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s search for %q: %s", e.Provider, e.Term, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Config selects and configures a search provider.
type Config struct {
	Provider     string // duckduckgo | google
	GoogleAPIKey string
	GoogleCX     string
	Timeout      time.Duration
}

// New builds the Searcher named by cfg.Provider.
func New(ctx context.Context, cfg Config) (Searcher, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "duckduckgo", "ddg":
		return NewDuckDuckGo(timeout), nil
	case "google":
		return NewGoogle(ctx, cfg.GoogleAPIKey, cfg.GoogleCX, timeout)
	default:
		return nil, fmt.Errorf("unsupported search provider: %s", cfg.Provider)
	}
}
