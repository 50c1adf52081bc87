package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jonathan/luxprima/internal/journal"
	"github.com/jonathan/luxprima/internal/llm"
	"github.com/jonathan/luxprima/internal/search"
	"github.com/jonathan/luxprima/internal/types"
)

var testNow = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]types.CrawledItem
	calls []string
}

func newFakeFetcher(pages ...types.CrawledItem) *fakeFetcher {
	f := &fakeFetcher{pages: make(map[string]types.CrawledItem)}
	for _, p := range pages {
		f.pages[p.URL] = p
	}
	return f
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) types.CrawledItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if item, ok := f.pages[url]; ok {
		return item
	}
	return types.FailedItem(url, errors.New("connection refused"))
}

func (f *fakeFetcher) count(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == url {
			n++
		}
	}
	return n
}

type fakeSearcher struct {
	mu      sync.Mutex
	results map[string][]search.Result
	errs    map[string]error
	terms   []string
}

func (s *fakeSearcher) Search(_ context.Context, term string, _ int) ([]search.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terms = append(s.terms, term)
	if err := s.errs[term]; err != nil {
		return nil, err
	}
	return s.results[term], nil
}

type generateFunc func(ctx context.Context, prompt string) (string, error)

type fakeGenerator struct {
	mu      sync.Mutex
	expand  generateFunc
	synth   generateFunc
	prompts []string
	closed  bool
}

func isSynthesis(prompt string) bool {
	return strings.HasPrefix(prompt, "Current Date and Time:")
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()

	if isSynthesis(prompt) {
		if g.synth != nil {
			return g.synth(ctx, prompt)
		}
		return "```markdown\n# Briefing\n```", nil
	}
	if g.expand != nil {
		return g.expand(ctx, prompt)
	}
	return `{"links": [], "search_terms": []}`, nil
}

func (g *fakeGenerator) Name() string { return "fake (test)" }

func (g *fakeGenerator) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return nil
}

func (g *fakeGenerator) promptsWhere(match func(string) bool) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []string
	for _, p := range g.prompts {
		if match(p) {
			out = append(out, p)
		}
	}
	return out
}

func (g *fakeGenerator) factory() llm.Factory {
	return func(context.Context, types.LLMSettings) (llm.Generator, error) {
		return g, nil
	}
}

type fakeReports struct {
	mu    sync.Mutex
	saved []types.Report
	err   error
}

func (r *fakeReports) SaveReport(_ context.Context, report types.Report) (*types.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	report.ID = int64(len(r.saved) + 1)
	r.saved = append(r.saved, report)
	return &report, nil
}

type fixture struct {
	fetcher  *fakeFetcher
	searcher *fakeSearcher
	gen      *fakeGenerator
	reports  *fakeReports
	board    *journal.Board
	events   []ProgressEvent
	eventsMu sync.Mutex
}

func newFixture(pages ...types.CrawledItem) *fixture {
	return &fixture{
		fetcher:  newFakeFetcher(pages...),
		searcher: &fakeSearcher{results: map[string][]search.Result{}, errs: map[string]error{}},
		gen:      &fakeGenerator{},
		reports:  &fakeReports{},
		board:    journal.NewBoard(),
	}
}

func (f *fixture) pipeline(t *testing.T, mutate ...func(*Config)) *Pipeline {
	t.Helper()
	cfg := Config{
		Fetcher:      f.fetcher,
		Searcher:     f.searcher,
		Generators:   f.gen.factory(),
		Reports:      f.reports,
		Board:        f.board,
		Location:     time.UTC,
		Now:          func() time.Time { return testNow },
		QuietJournal: true,
		OnProgress: func(ev ProgressEvent) {
			f.eventsMu.Lock()
			f.events = append(f.events, ev)
			f.eventsMu.Unlock()
		},
	}
	for _, m := range mutate {
		m(&cfg)
	}
	p, err := New(cfg)
	require.NoError(t, err)
	return p
}

func (f *fixture) messages() []string {
	f.eventsMu.Lock()
	defer f.eventsMu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, ev := range f.events {
		out = append(out, ev.Message)
	}
	return out
}

func page(url, title, content string, links ...string) types.CrawledItem {
	return types.CrawledItem{URL: url, Title: title, Content: content, Links: links}
}

func sourcesFor(urls ...string) []types.Source {
	out := make([]types.Source, 0, len(urls))
	for i, u := range urls {
		out = append(out, types.Source{ID: int64(i + 1), URL: u, IsActive: true, SourceType: types.DefaultSourceType})
	}
	return out
}

func settings(breadth, depth int) types.LLMSettings {
	return types.LLMSettings{Provider: "openai", Model: "gpt-test", Breadth: breadth, Depth: depth}
}

func countContaining(entries []string, substr string) int {
	n := 0
	for _, e := range entries {
		if strings.Contains(e, substr) {
			n++
		}
	}
	return n
}
