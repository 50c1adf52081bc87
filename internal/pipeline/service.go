package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jonathan/luxprima/internal/events"
	"github.com/jonathan/luxprima/internal/types"
)

const publishTimeout = 5 * time.Second

// Run outcomes reported by LastRun.
const (
	RunSucceeded = "succeeded"
	RunNoSources = "no_sources"
	RunError     = "error"
)

// Store is the persistence a Service reads settings and sources from and
// writes reports to.
type Store interface {
	ReportSaver
	ListActiveSources(ctx context.Context) ([]types.Source, error)
	GetSettings(ctx context.Context, keys []string) (map[string]string, error)
}

// RunSummary describes the most recent finished run.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Outcome    string    `json:"outcome"`
	Provider   string    `json:"provider,omitempty"`
	ReportID   int64     `json:"report_id,omitempty"`
	Title      string    `json:"title,omitempty"`
	Error      string    `json:"error,omitempty"`
	Attempted  int       `json:"attempted"`
	Stages     []string  `json:"stages,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Service is the entry point for triggering runs. It loads the active
// sources and settings, runs the pipeline and publishes the outcome.
type Service struct {
	pipeline        *Pipeline
	store           Store
	defaultProvider string
	publisher       events.Publisher

	mu   sync.RWMutex
	last *RunSummary
}

// NewService creates a Service. defaultProvider applies when no llm_provider
// setting is stored. A nil publisher discards events.
func NewService(p *Pipeline, store Store, defaultProvider string, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &Service{
		pipeline:        p,
		store:           store,
		defaultProvider: defaultProvider,
		publisher:       publisher,
	}
}

// Generate runs a briefing synchronously.
func (s *Service) Generate(ctx context.Context) (*Result, error) {
	if s.pipeline.Running() {
		return nil, ErrRunInProgress
	}
	sources, settings, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.pipeline.Run(ctx, sources, settings)
	if errors.Is(err, ErrRunInProgress) {
		return nil, err
	}
	s.finish(ctx, res, err)
	return res, err
}

// Start runs a briefing in the background. It returns ErrRunInProgress when
// another run holds the lock.
func (s *Service) Start(ctx context.Context) error {
	if s.pipeline.Running() {
		return ErrRunInProgress
	}
	sources, settings, err := s.load(ctx)
	if err != nil {
		return err
	}
	runCtx := context.WithoutCancel(ctx)
	return s.pipeline.Start(runCtx, sources, settings, func(res *Result, err error) {
		if err != nil {
			log.Printf("[BRIEFING] Background run failed: %v", err)
		}
		s.finish(runCtx, res, err)
	})
}

// Status returns the current run status.
func (s *Service) Status() string {
	return s.pipeline.Board().Current()
}

// Running reports whether a run is in progress.
func (s *Service) Running() bool {
	return s.pipeline.Running()
}

// Subscribe streams status changes. Call cancel when done.
func (s *Service) Subscribe() (<-chan string, func()) {
	return s.pipeline.Board().Subscribe()
}

// LastRun returns a copy of the most recent run summary, or nil.
func (s *Service) LastRun() *RunSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil
	}
	cp := *s.last
	cp.Stages = append([]string(nil), s.last.Stages...)
	return &cp
}

func (s *Service) load(ctx context.Context) ([]types.Source, types.LLMSettings, error) {
	sources, err := s.store.ListActiveSources(ctx)
	if err != nil {
		return nil, types.LLMSettings{}, fmt.Errorf("failed to list active sources: %w", err)
	}
	values, err := s.store.GetSettings(ctx, types.LLMSettingKeys())
	if err != nil {
		return nil, types.LLMSettings{}, fmt.Errorf("failed to read settings: %w", err)
	}
	return sources, types.ResolveLLMSettings(values, s.defaultProvider), nil
}

func (s *Service) finish(ctx context.Context, res *Result, runErr error) {
	if res == nil {
		return
	}
	summary := &RunSummary{
		RunID:      res.RunID,
		Provider:   res.Provider,
		Attempted:  res.Attempted,
		StartedAt:  res.StartedAt,
		FinishedAt: res.EndedAt,
	}
	for _, st := range res.Stages {
		summary.Stages = append(summary.Stages, st.Summary())
	}

	event := events.RunEvent{
		RunID:       res.RunID,
		Provider:    res.Provider,
		SourceCount: res.Attempted,
		OccurredAt:  res.EndedAt,
	}
	switch {
	case runErr == nil:
		summary.Outcome = RunSucceeded
		if res.Report != nil {
			summary.ReportID = res.Report.ID
			summary.Title = res.Report.Title
			event.ReportID = res.Report.ID
			event.Title = res.Report.Title
		}
		event.Type = events.TypeReportGenerated
	case errors.Is(runErr, ErrNoActiveSources):
		summary.Outcome = RunNoSources
		summary.Error = runErr.Error()
		event.Type = events.TypeRunFailed
		event.Error = runErr.Error()
	default:
		summary.Outcome = RunError
		summary.Error = runErr.Error()
		event.Type = events.TypeRunFailed
		event.Error = runErr.Error()
	}

	s.mu.Lock()
	s.last = summary
	s.mu.Unlock()

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, event); err != nil {
		log.Printf("[BRIEFING] Failed to publish %s event: %v", event.Type, err)
	}
}
