// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/knowledge-sync/internal/docs"
	"github.com/pdiddy/knowledge-sync/internal/gitrepo"
	"github.com/pdiddy/knowledge-sync/internal/ledger"
	"github.com/pdiddy/knowledge-sync/internal/metrics"
	"github.com/pdiddy/knowledge-sync/internal/syncer"
	"github.com/pdiddy/knowledge-sync/internal/watch"
	"github.com/pdiddy/knowledge-sync/internal/webui"
	"github.com/pdiddy/knowledge-sync/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the periodic sync loop",
	Long: `Run starts the sync daemon: pull the document repository, reconcile the
knowledge base, sleep for SYNC_INTERVAL, repeat. The loop survives transient
Git and API failures and stops on SIGINT or SIGTERM.

With HTTP_ADDR set, /metrics and /healthz are served on that address. With
WATCH_ENABLED, filesystem changes under the sync directory trigger an early
cycle.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
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

	if cfg.Listen.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Listen.Addr, log); err != nil {
				log.Error("metrics server failed", "error", err)
			}
		}()
	}

	var trigger <-chan struct{}
	if cfg.Watch.Enabled {
		w, err := watch.New(cfg.Sync.Directory, cfg.Watch.Debounce, log)
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			return err
		}
		trigger = w.Events()
	}

	log.Info("starting sync loop",
		"repo", gitrepo.Redact(cfg.Git.RepoURL),
		"directory", cfg.Sync.Directory,
		"knowledge_id", cfg.WebUI.KnowledgeID,
		"interval", cfg.Sync.Interval)

	err = svc.Run(ctx, trigger)
	if errors.Is(err, context.Canceled) {
		log.Info("shutting down")
		return nil
	}
	return err
}

// buildService wires the sync service from the configuration. The caller
// owns the returned ledger.
func buildService(cfg types.Config, log *slog.Logger) (*syncer.Service, *ledger.Ledger, error) {
	if err := os.MkdirAll(cfg.Sync.Directory, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating sync directory: %w", err)
	}

	led, err := ledger.Open(cfg.Sync.StateDir)
	if err != nil {
		return nil, nil, err
	}

	source := gitrepo.New(cfg.Git, cfg.Sync.Directory)
	client := webui.NewClient(cfg.WebUI)
	scanner := docs.NewScanner(cfg.Sync)

	return syncer.New(cfg.Sync, source, client, scanner, led, log), led, nil
}
