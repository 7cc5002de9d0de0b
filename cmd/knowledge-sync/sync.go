package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a single sync cycle and exit",
	Long: `Sync runs exactly one reconcile cycle: pull the repository, compare the
documents against the local ledger, and apply the changes to the knowledge
base. It exits non-zero when the cycle fails or any document is rejected,
which makes it suitable for cron jobs and CI.`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := newLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, led, err := buildService(cfg, log)
	if err != nil {
		return err
	}
	defer led.Close()

	summary, err := svc.RunOnce(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "\nSync summary: %d uploaded, %d updated, %d removed, %d unchanged, %d failed (total: %d)\n",
		summary.Uploaded, summary.Updated, summary.Removed, summary.Skipped, summary.Failed, summary.Total())

	if summary.HasFailures() {
		return fmt.Errorf("%d document(s) failed to sync", summary.Failed)
	}
	return nil
}
