// Package types provides type definitions for structured data used throughout the briefing service.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "time"

// Source is a seed URL the briefing crawl starts from.
type Source struct {
	ID         int64     `json:"id"`
	URL        string    `json:"url"`
	Name       string    `json:"name,omitempty"`
	SourceType string    `json:"source_type"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

// Setting is a persisted key/value pair.
type Setting struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

// Schedule is a persisted daily trigger time. Time is "HH:MM" on a 24 hour clock.
type Schedule struct {
	ID        int64     `json:"id"`
	Time      string    `json:"time"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Report is the synthesized briefing produced by one successful run.
// Logs is the verbatim run journal.
type Report struct {
	ID              int64          `json:"id"`
	Title           string         `json:"title"`
	GeneratedAt     time.Time      `json:"generated_at"`
	ContentMarkdown string         `json:"content_markdown"`
	ContentJSON     map[string]any `json:"content_json"`
	Logs            []string       `json:"logs"`
}

// DefaultSourceType is applied to sources created without a type.
const DefaultSourceType = "primary"
