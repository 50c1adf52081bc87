package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/luxprima/internal/journal"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the run status mirrored to Redis",
	Long:  `Read the status key a running server mirrors to Redis (REDIS_ADDR, REDIS_STATUS_KEY).`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is not set; the status mirror is disabled")
	}

	mirror := journal.NewRedisMirror(cfg.RedisAddr, cfg.RedisStatusKey)
	defer func() { _ = mirror.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	st, ok, err := mirror.ReadStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to read status: %w", err)
	}
	out := cmd.OutOrStdout()
	if !ok {
		_, err = fmt.Fprintln(out, "No status recorded")
		return err
	}
	_, err = fmt.Fprintf(out, "%s (updated %s)\n", st.Status, st.UpdatedAt.In(cfg.Location()).Format(time.RFC3339))
	return err
}
