// Package main provides the entry point for the LuxPrima briefing service.
package main

import (
	"fmt"
	"os"
	_ "time/tzdata" // schedules and titles use an IANA zone; containers may lack zoneinfo

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "luxprima",
	Short: "LuxPrima scheduled intelligence briefings",
	Long: `LuxPrima crawls a set of seed sources, lets a language model pick follow-up
leads over several expansion cycles, and synthesizes the collected material
into a daily markdown briefing. Runs are triggered on a schedule or on demand.`,
	SilenceUsage: true,
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a JSON config file (overrides environment values)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
