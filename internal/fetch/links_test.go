package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractLinks(t *testing.T) {
	html := `
	<html><body>
		<a href="/markets/asia">Asia</a>
		<a href="https://other.example.org/story#comments">Story</a>
		<a href="https://other.example.org/story">Story again</a>
		<a href="mailto:desk@example.com">Mail</a>
		<a href="javascript:void(0)">JS</a>
		<a href="">Empty</a>
		<a href="relative/page">Relative</a>
	</body></html>`

	links, err := ExtractLinks(html, "https://news.example.com/today/")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://news.example.com/markets/asia",
		"https://other.example.org/story",
		"https://news.example.com/today/relative/page",
	}, links)
}

func TestExtractLinks_InvalidBase(t *testing.T) {
	_, err := ExtractLinks("<html></html>", "not-a-url")
	require.Error(t, err)

	var linkErr *LinkExtractionError
	assert.ErrorAs(t, err, &linkErr)
}
