package fetch

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestMainSelection(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		noise   []string
		want    []string
		notWant []string
	}{
		{
			name:    "main element wins over nav and footer",
			html:    `<body><nav>Markets menu</nav><main><h1>Oil slips</h1><p>Brent fell 2%.</p></main><footer>Contact</footer></body>`,
			want:    []string{"Oil slips", "Brent fell 2%."},
			notWant: []string{"Markets menu", "Contact"},
		},
		{
			name: "article when there is no main",
			html: `<body><article><h1>Gold steady</h1><p>Bullion flat.</p></article></body>`,
			want: []string{"Gold steady", "Bullion flat."},
		},
		{
			name: "falls back to body",
			html: `<body><div>Plain page text.</div></body>`,
			want: []string{"Plain page text."},
		},
		{
			name:    "caller noise is removed",
			html:    `<body><article><p>Copper rallies.</p><div class="paywall">Subscribe now</div></article></body>`,
			noise:   []string{".paywall"},
			want:    []string{"Copper rallies."},
			notWant: []string{"Subscribe now"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := cleanWhitespace(mainSelection(parseDoc(t, tt.html), DefaultTextSelectors(), tt.noise).Text())
			for _, w := range tt.want {
				assert.Contains(t, text, w)
			}
			for _, nw := range tt.notWant {
				assert.NotContains(t, text, nw)
			}
		})
	}
}

func TestCleanWhitespace(t *testing.T) {
	assert.Equal(t, "a\nb c", cleanWhitespace("  a  \n\n\t\n b c \n"))
	assert.Equal(t, "", cleanWhitespace(" \n \n"))
}

func TestDefaultTextSelectors(t *testing.T) {
	selectors := DefaultTextSelectors()
	assert.Equal(t, "main", selectors[0])
	assert.Contains(t, selectors, "article")
}
