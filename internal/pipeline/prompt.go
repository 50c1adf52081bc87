package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/jonathan/luxprima/internal/prompts"
)

func renderPrompt(key string, data map[string]string) (string, error) {
	out, err := prompts.Render(promptFile, key, data)
	if err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", key, err)
	}
	return out, nil
}

// quoteList renders links as a JSON array.
func quoteList(links []string) string {
	if links == nil {
		links = []string{}
	}
	b, err := json.Marshal(links)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// truncateChars cuts s to at most n characters without splitting a rune.
func truncateChars(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
