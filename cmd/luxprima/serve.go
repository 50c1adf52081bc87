package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/luxprima/internal/config"
	"github.com/jonathan/luxprima/internal/scheduler"
	"github.com/jonathan/luxprima/internal/server"
	"github.com/jonathan/luxprima/internal/server/ratelimit"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server and the schedule runner",
	Long: `Start an HTTP server exposing sources, settings, schedules and reports, and
fire briefing runs at every active schedule's time of day.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (defaults to PORT or 8000)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Port = servePort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := wire(ctx, cfg, wireOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	registry := scheduler.New(cfg.Location(), func(ctx context.Context) error {
		_, err := a.service.Generate(ctx)
		return err
	})
	n, err := registry.Rehydrate(ctx, a.db)
	if err != nil {
		return fmt.Errorf("failed to load schedules: %w", err)
	}
	log.Printf("[SCHEDULER] Loaded %d active schedules (%s)", n, cfg.Timezone)

	var jwtService *server.JWTService
	if cfg.RequireAuthForWrite {
		jwtCfg, err := config.NewJWTConfig()
		if err != nil {
			return fmt.Errorf("failed to create JWT config: %w", err)
		}
		jwtService = server.NewJWTService(jwtCfg)
	}

	srv, err := server.New(server.Config{
		Port:         cfg.Port,
		Store:        a.db,
		Briefings:    a.service,
		Scheduler:    registry,
		JWT:          jwtService,
		RateLimit:    ratelimit.LoadConfig(cfg.RateLimitEnabled, cfg.GenerateLimitPerHr),
		LocalBaseURL: cfg.LocalLLMURL,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	registry.Start()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gCtx) })
	g.Go(func() error {
		<-gCtx.Done()
		<-registry.Stop().Done()
		log.Println("[SCHEDULER] Stopped")
		return nil
	})
	return g.Wait()
}
