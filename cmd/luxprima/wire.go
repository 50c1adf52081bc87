package main

import (
	"context"
	"fmt"
	"log"

	"github.com/jonathan/luxprima/internal/config"
	"github.com/jonathan/luxprima/internal/db"
	"github.com/jonathan/luxprima/internal/events"
	"github.com/jonathan/luxprima/internal/fetch"
	"github.com/jonathan/luxprima/internal/journal"
	"github.com/jonathan/luxprima/internal/llm"
	"github.com/jonathan/luxprima/internal/pipeline"
	"github.com/jonathan/luxprima/internal/search"
)

// loadConfig reads the environment and merges the optional config file over it.
func loadConfig(path string) (*config.Config, error) {
	envCfg, err := config.FromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg := *envCfg
	if path != "" {
		fileCfg, err := config.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = fileCfg.MergeWithDefaults(*envCfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// app holds the collaborators shared by the serve and run commands.
type app struct {
	cfg       *config.Config
	db        *db.DB
	mirror    *journal.RedisMirror
	publisher events.Publisher
	pipeline  *pipeline.Pipeline
	service   *pipeline.Service
}

type wireOptions struct {
	onProgress pipeline.ProgressCallback
	quiet      bool
	provider   string // overrides cfg.LLMProvider as the default provider
}

// wire connects storage and builds the pipeline service from cfg.
func wire(ctx context.Context, cfg *config.Config, opts wireOptions) (*app, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a := &app{cfg: cfg, db: database, publisher: events.Discard{}}

	if err := database.Migrate(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	searcher, err := search.New(ctx, search.Config{
		Provider:     cfg.SearchProvider,
		GoogleAPIKey: cfg.GoogleSearchAPIKey,
		GoogleCX:     cfg.GoogleSearchCX,
		Timeout:      cfg.SearchTimeout,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create search provider: %w", err)
	}

	crawlerOpts := []fetch.CrawlerOption{fetch.WithTimeout(cfg.FetchTimeout), fetch.WithVerbose(!opts.quiet)}
	if cfg.UseBrowser {
		crawlerOpts = append(crawlerOpts, fetch.WithRenderer(&fetch.ChromeRenderer{Timeout: cfg.FetchTimeout}))
	}

	var sinks []journal.Sink
	if cfg.RedisAddr != "" {
		a.mirror = journal.NewRedisMirror(cfg.RedisAddr, cfg.RedisStatusKey)
		sinks = append(sinks, a.mirror)
		log.Printf("[SERVER] Mirroring status to redis %s (%s)", cfg.RedisAddr, cfg.RedisStatusKey)
	}
	if len(cfg.KafkaBrokers) > 0 {
		a.publisher = events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		log.Printf("[SERVER] Publishing run events to kafka topic %s", cfg.KafkaTopic)
	}

	p, err := pipeline.New(pipeline.Config{
		Fetcher:  fetch.NewCrawler(crawlerOpts...),
		Searcher: searcher,
		Generators: llm.NewFactory(llm.Credentials{
			OpenAIAPIKey: cfg.OpenAIAPIKey,
			GeminiAPIKey: cfg.GeminiAPIKey,
			LocalBaseURL: cfg.LocalLLMURL,
		}),
		Reports:          database,
		Board:            journal.NewBoard(sinks...),
		Location:         cfg.Location(),
		ExpansionTimeout: cfg.ExpansionTimeout,
		OnProgress:       opts.onProgress,
		QuietJournal:     opts.quiet,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.pipeline = p

	provider := cfg.LLMProvider
	if opts.provider != "" {
		provider = opts.provider
	}
	a.service = pipeline.NewService(p, database, provider, a.publisher)
	return a, nil
}

// Close releases every connection the app opened.
func (a *app) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			log.Printf("[SERVER] Failed to close event publisher: %v", err)
		}
	}
	if a.mirror != nil {
		if err := a.mirror.Close(); err != nil {
			log.Printf("[SERVER] Failed to close redis mirror: %v", err)
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}
