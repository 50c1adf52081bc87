package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/luxprima/internal/observability"
)

var (
	runProvider string
	runVerbose  bool
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Generate one briefing now",
	Long: `Run the briefing pipeline once against the active sources and stored settings:
seed crawl -> expansion cycles -> synthesis -> save. The report is stored like a
scheduled one.`,
	RunE: runBriefing,
}

func init() {
	runCommand.Flags().StringVar(&runProvider, "provider", "", "Default LLM provider when none is stored (openai, gemini, local)")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print every journal line and a run summary")
	rootCmd.AddCommand(runCommand)
}

func runBriefing(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printer := observability.NewPrinter(cmd.OutOrStdout())
	opts := wireOptions{provider: runProvider, quiet: !runVerbose}
	if runVerbose {
		opts.onProgress = printer.PrintProgress
	}

	a, err := wire(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	if runVerbose {
		sources, err := a.db.ListActiveSources(ctx)
		if err != nil {
			return fmt.Errorf("failed to list active sources: %w", err)
		}
		printer.PrintSources(sources)
	}

	res, runErr := a.service.Generate(ctx)
	if runVerbose {
		printer.PrintResult(res, runErr)
	}
	if runErr != nil {
		return runErr
	}
	if !runVerbose {
		printer.PrintReport(res.Report)
	}
	return nil
}
