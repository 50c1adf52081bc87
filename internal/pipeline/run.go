// Package pipeline runs a briefing: it crawls the seed sources, follows the
// leads a generation backend picks over a number of expansion cycles, and
// synthesizes one stored report from everything gathered.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/jonathan/luxprima/internal/journal"
	"github.com/jonathan/luxprima/internal/llm"
	"github.com/jonathan/luxprima/internal/pipeline/steps"
	"github.com/jonathan/luxprima/internal/search"
	"github.com/jonathan/luxprima/internal/types"
)

const (
	// MaxOfferedLinks caps the candidate links listed in an expansion prompt.
	MaxOfferedLinks = 50
	// MaxContentChars caps each item's text in the synthesis input.
	MaxContentChars = 5000

	promptFile      = "briefing.json"
	titleLayout     = "2006-01-02 15:04"
	promptNowLayout = "Monday, January 02, 2006 15:04"
)

// ProgressEvent represents a progress update during a run
type ProgressEvent struct {
	Step     string `json:"step"`
	Category string `json:"category"`
	Message  string `json:"message"`
	RunID    string `json:"run_id,omitempty"`
	Content  any    `json:"content,omitempty"`
}

// ProgressCallback is called when run progress occurs
type ProgressCallback func(event ProgressEvent)

// Fetcher retrieves one page. Failures come back as the error variant of
// CrawledItem, never as a Go error.
type Fetcher interface {
	Fetch(ctx context.Context, url string) types.CrawledItem
}

// ReportSaver persists a finished report and returns it with its ID.
type ReportSaver interface {
	SaveReport(ctx context.Context, report types.Report) (*types.Report, error)
}

// Config holds the collaborators and knobs of a Pipeline
type Config struct {
	Fetcher    Fetcher
	Searcher   search.Searcher
	Generators llm.Factory
	Reports    ReportSaver

	// Board receives every status change. A private board is created when nil.
	Board *journal.Board
	// Location stamps journal entries, the report title and the prompt clock.
	Location *time.Location
	// ExpansionTimeout bounds each expansion request for hosted providers.
	// Zero disables it. The local provider is never bounded.
	ExpansionTimeout time.Duration
	Now              func() time.Time
	OnProgress       ProgressCallback
	// QuietJournal stops journal entries from being echoed to the process log.
	QuietJournal bool
}

// Pipeline executes briefing runs, one at a time.
type Pipeline struct {
	cfg     Config
	lock    *semaphore.Weighted
	running atomic.Bool
}

// Result is everything one run produced.
type Result struct {
	RunID    string
	Provider string
	// Report is nil unless the run stored a report.
	Report  *types.Report
	Stages  []steps.StageResult
	Journal []string
	// Attempted counts every URL fetched, failures included.
	Attempted int
	StartedAt time.Time
	EndedAt   time.Time
}

// New validates cfg and creates a Pipeline.
func New(cfg Config) (*Pipeline, error) {
	switch {
	case cfg.Fetcher == nil:
		return nil, errors.New("pipeline: fetcher is required")
	case cfg.Searcher == nil:
		return nil, errors.New("pipeline: searcher is required")
	case cfg.Generators == nil:
		return nil, errors.New("pipeline: generator factory is required")
	case cfg.Reports == nil:
		return nil, errors.New("pipeline: report saver is required")
	}
	if cfg.Board == nil {
		cfg.Board = journal.NewBoard()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Pipeline{cfg: cfg, lock: semaphore.NewWeighted(1)}, nil
}

// Board returns the status board the pipeline publishes to.
func (p *Pipeline) Board() *journal.Board {
	return p.cfg.Board
}

// Running reports whether a run currently holds the lock.
func (p *Pipeline) Running() bool {
	return p.running.Load()
}

// Run executes one briefing run synchronously. It returns ErrRunInProgress
// without doing anything when another run holds the lock.
func (p *Pipeline) Run(ctx context.Context, sources []types.Source, settings types.LLMSettings) (*Result, error) {
	if !p.acquire() {
		return nil, ErrRunInProgress
	}
	defer p.release()
	return p.execute(ctx, sources, settings)
}

// Start takes the run lock and executes the run in the background, calling
// done with its outcome. ctx must outlive the caller's request.
func (p *Pipeline) Start(ctx context.Context, sources []types.Source, settings types.LLMSettings, done func(*Result, error)) error {
	if !p.acquire() {
		return ErrRunInProgress
	}
	go func() {
		res, err := p.execute(ctx, sources, settings)
		p.release()
		if done != nil {
			done(res, err)
		}
	}()
	return nil
}

func (p *Pipeline) acquire() bool {
	if !p.lock.TryAcquire(1) {
		return false
	}
	p.running.Store(true)
	return true
}

func (p *Pipeline) release() {
	p.running.Store(false)
	p.lock.Release(1)
}

// run is the state of one execution.
type run struct {
	p         *Pipeline
	id        string
	settings  types.LLMSettings
	journal   *journal.Journal
	gen       llm.Generator
	items     []types.CrawledItem
	attempted map[string]struct{}
	stages    []steps.StageResult
}

func (p *Pipeline) newRun(settings types.LLMSettings) *run {
	opts := []journal.Option{journal.WithClock(p.cfg.Now)}
	if p.cfg.QuietJournal {
		opts = append(opts, journal.Quiet())
	}
	return &run{
		p:         p,
		id:        uuid.New().String(),
		settings:  settings,
		journal:   journal.New(p.cfg.Location, opts...),
		attempted: make(map[string]struct{}),
	}
}

func (p *Pipeline) execute(ctx context.Context, sources []types.Source, settings types.LLMSettings) (res *Result, err error) {
	r := p.newRun(settings)
	res = &Result{RunID: r.id, Provider: settings.Provider, StartedAt: p.cfg.Now()}
	defer func() {
		if p.cfg.Board.Current() != journal.StatusIdle {
			p.cfg.Board.Set(journal.StatusIdle)
		}
		res.Journal = r.journal.Entries()
		res.Stages = r.stages
		res.Attempted = len(r.attempted)
		res.EndedAt = p.cfg.Now()
	}()

	r.status(steps.StageSeedCrawl, journal.StatusInitializing)

	if len(sources) == 0 {
		r.logf(steps.StageSeedCrawl, "Error: No active sources found")
		r.status(steps.StageSeedCrawl, journal.StatusIdle)
		return res, ErrNoActiveSources
	}

	model := settings.Model
	if model == "" {
		model = "default"
	}
	r.logf(steps.StageSeedCrawl, "Initializing LLM Provider: %s (%s)", settings.Provider, model)
	r.logf(steps.StageSeedCrawl, "Strategy: Depth %d, Breadth %d", settings.Depth, settings.Breadth)

	gen, err := p.cfg.Generators(ctx, settings)
	if err != nil {
		r.logf(steps.StageSeedCrawl, "Failed to initialize LLM provider: %v", err)
		r.status(steps.StageSeedCrawl, journal.StatusError)
		return res, &ProviderInitError{Provider: settings.Provider, Cause: err}
	}
	defer gen.Close()
	r.gen = gen
	r.logf(steps.StageSeedCrawl, "LLM client ready: %s", gen.Name())

	r.record(r.seedCrawl(ctx, sources))
	for cycle := 1; cycle <= settings.Depth; cycle++ {
		r.record(r.expand(ctx, cycle))
	}

	content, err := r.synthesize(ctx)
	if err != nil {
		return res, err
	}

	saved, err := r.persist(ctx, content)
	if err != nil {
		return res, err
	}
	res.Report = saved
	r.status(steps.StagePersist, journal.StatusIdle)
	return res, nil
}

// seedCrawl fetches every source in order. Failures are recorded and skipped.
func (r *run) seedCrawl(ctx context.Context, sources []types.Source) steps.StageResult {
	start := time.Now()
	failed := 0
	for _, src := range sources {
		r.status(steps.StageSeedCrawl, "Processing Source: "+src.URL)
		item := r.fetch(ctx, src.URL)
		if item.OK() {
			r.logf(steps.StageSeedCrawl, "Successfully crawled: %s", item.Title)
		} else {
			failed++
			r.logf(steps.StageSeedCrawl, "Failed to crawl %s: %s", src.URL, item.Error)
		}
	}
	return steps.StageResult{
		Stage:     steps.StageSeedCrawl,
		Outcome:   steps.OutcomeFor(len(sources), failed),
		Attempted: len(sources),
		Failed:    failed,
		Duration:  time.Since(start),
	}
}

// expand runs one expansion cycle. It never fails the run: a failed
// expansion request ends the cycle and the next one proceeds.
func (r *run) expand(ctx context.Context, cycle int) steps.StageResult {
	start := time.Now()
	breadth := r.settings.Breadth
	result := steps.StageResult{Stage: steps.StageExpansion, Cycle: cycle}

	r.logf(steps.StageExpansion, "Expansion Cycle %d of %d starting...", cycle, r.settings.Depth)
	r.status(steps.StageExpansion, fmt.Sprintf("Exploring lead layer %d (Breadth: %d)...", cycle, breadth))

	candidates := r.candidateLinks()
	r.logf(steps.StageExpansion, "Cycle %d: Found %d new potential links.", cycle, len(candidates))
	if len(candidates) > MaxOfferedLinks {
		candidates = candidates[:MaxOfferedLinks]
	}

	prompt, err := renderPrompt("expansion", map[string]string{
		"Breadth": fmt.Sprintf("%d", breadth),
		"Context": r.digest(),
		"Links":   quoteList(candidates),
	})
	if err != nil {
		return r.cycleFailed(result, start, err)
	}

	r.logf(steps.StageExpansion, "Sending Expansion Prompt (Cycle %d)...", cycle)
	raw, err := r.generateLead(ctx, prompt)
	if err != nil {
		return r.cycleFailed(result, start, err)
	}

	directive, err := DecodeDirective(raw)
	partial := false
	if err != nil {
		r.logf(steps.StageExpansion, "Failed to parse Expansion JSON in cycle %d.", cycle)
		directive = types.Directive{}
		partial = true
	}
	directive = directive.Capped(breadth)
	r.logf(steps.StageExpansion, "Cycle %d leads: %d links, %d search terms", cycle, len(directive.Links), len(directive.SearchTerms))
	if directive.Empty() {
		r.logf(steps.StageExpansion, "No new leads for cycle %d.", cycle)
	}

	leads := append([]string(nil), directive.Links...)
	for _, term := range directive.SearchTerms {
		r.status(steps.StageExpansion, fmt.Sprintf("Cycle %d Research: '%s'", cycle, term))
		hits, err := r.p.cfg.Searcher.Search(ctx, term, 1)
		if err != nil {
			r.logf(steps.StageExpansion, "Search failed for '%s': %v", term, err)
			partial = true
			continue
		}
		if len(hits) > 0 && hits[0].URL != "" {
			r.logf(steps.StageExpansion, "Found lead: %s", hits[0].URL)
			leads = append(leads, hits[0].URL)
		}
	}

	for _, link := range r.unseen(leads) {
		r.status(steps.StageExpansion, fmt.Sprintf("Processing Depth Level %d Source: %s", cycle, link))
		result.Attempted++
		item := r.fetch(ctx, link)
		if item.OK() {
			r.logf(steps.StageExpansion, "Captured: %s", item.Title)
		} else {
			result.Failed++
			r.logf(steps.StageExpansion, "Failed to crawl %s: %s", link, item.Error)
		}
	}

	result.Outcome = steps.OutcomeFor(result.Attempted, result.Failed)
	if partial && result.Outcome == steps.OutcomeSucceeded {
		result.Outcome = steps.OutcomePartial
	}
	result.Duration = time.Since(start)
	return result
}

func (r *run) cycleFailed(result steps.StageResult, start time.Time, err error) steps.StageResult {
	if errors.Is(err, context.DeadlineExceeded) {
		r.logf(steps.StageExpansion, "Expansion cycle %d timed out.", result.Cycle)
	} else {
		r.logf(steps.StageExpansion, "Expansion cycle %d failed: %v", result.Cycle, err)
	}
	result.Outcome = steps.OutcomeFailed
	result.Err = err
	result.Duration = time.Since(start)
	return result
}

// generateLead asks for a directive, bounded by the expansion timeout unless
// the backend is self-hosted.
func (r *run) generateLead(ctx context.Context, prompt string) (string, error) {
	timeout := r.p.cfg.ExpansionTimeout
	provider, _ := llm.ParseProvider(r.settings.Provider)
	if timeout > 0 && provider != llm.ProviderLocal {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return r.gen.Generate(ctx, prompt)
}

// synthesize builds the final document from every successful item.
func (r *run) synthesize(ctx context.Context) (string, error) {
	start := time.Now()
	var input strings.Builder
	for _, item := range r.items {
		if !item.OK() {
			continue
		}
		fmt.Fprintf(&input, "\n\nSource: %s (%s)\n", item.URL, item.Title)
		input.WriteString(truncateChars(item.Content, MaxContentChars))
	}

	prompt, err := renderPrompt("synthesis", map[string]string{
		"Now":   r.p.cfg.Now().In(r.p.cfg.Location).Format(promptNowLayout),
		"Input": input.String(),
	})
	if err != nil {
		return "", r.synthesisFailed(start, err)
	}

	r.status(steps.StageSynthesis, journal.StatusFinalizing)
	out, err := r.gen.Generate(ctx, prompt)
	if err != nil {
		return "", r.synthesisFailed(start, err)
	}
	content := llm.StripCodeFence(out)
	if content == "" {
		return "", r.synthesisFailed(start, errors.New("empty response"))
	}

	r.logf(steps.StageSynthesis, "Report generation successful.")
	r.record(steps.StageResult{Stage: steps.StageSynthesis, Outcome: steps.OutcomeSucceeded, Duration: time.Since(start)})
	return content, nil
}

func (r *run) synthesisFailed(start time.Time, err error) error {
	r.logf(steps.StageSynthesis, "Report generation failed: %v", err)
	r.status(steps.StageSynthesis, journal.StatusError)
	r.record(steps.StageResult{Stage: steps.StageSynthesis, Outcome: steps.OutcomeFailed, Err: err, Duration: time.Since(start)})
	return &SynthesisError{Cause: err}
}

// persist stores the report with the journal as it stands.
func (r *run) persist(ctx context.Context, content string) (*types.Report, error) {
	start := time.Now()
	now := r.p.cfg.Now().In(r.p.cfg.Location)
	report := types.Report{
		Title:           "Daily Briefing - " + now.Format(titleLayout),
		GeneratedAt:     now,
		ContentMarkdown: content,
		ContentJSON:     map[string]any{},
		Logs:            r.journal.Entries(),
	}

	saved, err := r.p.cfg.Reports.SaveReport(ctx, report)
	if err != nil {
		r.logf(steps.StagePersist, "Failed to save report: %v", err)
		r.status(steps.StagePersist, journal.StatusError)
		r.record(steps.StageResult{Stage: steps.StagePersist, Outcome: steps.OutcomeFailed, Err: err, Duration: time.Since(start)})
		return nil, &PersistError{Cause: err}
	}

	r.logf(steps.StagePersist, "Report saved to database (ID: %d)", saved.ID)
	r.record(steps.StageResult{Stage: steps.StagePersist, Outcome: steps.OutcomeSucceeded, Duration: time.Since(start)})
	return saved, nil
}

// fetch crawls url and marks it attempted whatever the outcome.
func (r *run) fetch(ctx context.Context, url string) types.CrawledItem {
	item := r.p.cfg.Fetcher.Fetch(ctx, url)
	if item.URL == "" {
		item.URL = url
	}
	r.attempted[url] = struct{}{}
	r.items = append(r.items, item)
	return item
}

// candidateLinks returns the outbound links seen so far that were never
// attempted, in first-seen order.
func (r *run) candidateLinks() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, item := range r.items {
		for _, link := range item.Links {
			if !strings.HasPrefix(link, "http") {
				continue
			}
			if _, done := r.attempted[link]; done {
				continue
			}
			if _, dup := seen[link]; dup {
				continue
			}
			seen[link] = struct{}{}
			out = append(out, link)
		}
	}
	return out
}

// unseen drops blanks, repeats and anything already attempted, keeping order.
func (r *run) unseen(links []string) []string {
	seen := make(map[string]struct{}, len(links))
	var out []string
	for _, link := range links {
		link = strings.TrimSpace(link)
		if link == "" {
			continue
		}
		if _, done := r.attempted[link]; done {
			continue
		}
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}
		out = append(out, link)
	}
	return out
}

func (r *run) digest() string {
	var sb strings.Builder
	for _, item := range r.items {
		fmt.Fprintf(&sb, "Source: %s - Title: %s\n", item.URL, item.Title)
	}
	return sb.String()
}

func (r *run) status(step, status string) {
	r.p.cfg.Board.Set(status)
	r.journal.Log(status)
	r.emit(step, status)
}

func (r *run) logf(step, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.journal.Log(msg)
	r.emit(step, msg)
}

func (r *run) record(result steps.StageResult) {
	r.stages = append(r.stages, result)
	if r.p.cfg.OnProgress != nil {
		r.p.cfg.OnProgress(ProgressEvent{
			Step:     result.Stage,
			Category: steps.StageRegistry[result.Stage].Category,
			Message:  result.Summary(),
			RunID:    r.id,
			Content:  result,
		})
	}
}

// emit calls the progress callback if configured
func (r *run) emit(step, message string) {
	if r.p.cfg.OnProgress == nil {
		return
	}
	r.p.cfg.OnProgress(ProgressEvent{
		Step:     step,
		Category: steps.StageRegistry[step].Category,
		Message:  message,
		RunID:    r.id,
	})
}
