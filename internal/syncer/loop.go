// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/pdiddy/knowledge-sync/internal/metrics"
)

// RunOnce executes a single reconcile tick under the configured timeout.
func (s *Service) RunOnce(ctx context.Context) (TickSummary, error) {
	return s.tickWithTimeout(ctx)
}

// Run executes the reconcile loop until ctx is cancelled: tick, idle for the
// interval, repeat. A signal on trigger cuts the idle short. Tick failures
// are logged and retried on the next interval; the loop aborts only when
// MaxFailures consecutive ones accumulate, or never when MaxFailures is
// negative.
func (s *Service) Run(ctx context.Context, trigger <-chan struct{}) error {
	interval := s.cfg.Interval
	if interval <= 0 {
		interval = time.Hour
	}

	failCount := 0
	for {
		start := time.Now()
		summary, err := s.tickWithTimeout(ctx)
		if err != nil {
			metrics.ObserveTick(metrics.StatusError, time.Since(start).Seconds())
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if max := s.cfg.MaxFailures; max >= 0 && failCount >= max {
				return fmt.Errorf("aborting after %d consecutive sync failures: %w", failCount+1, err)
			}
			failCount++
			s.log.Error("sync failed, will retry", "error", err, "consecutive_failures", failCount)
		} else {
			failCount = 0
			s.observe(summary, start)
			s.log.Info("sync complete",
				"uploaded", summary.Uploaded,
				"updated", summary.Updated,
				"removed", summary.Removed,
				"skipped", summary.Skipped,
				"failed", summary.Failed,
				"duration", time.Since(start).Round(time.Millisecond))
		}

		s.log.Debug("next sync", "wait", interval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		case _, ok := <-trigger:
			if !ok {
				// The watcher is gone. Wait out the interval, then fall back
				// to timer-only operation.
				trigger = nil
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(interval):
				}
			} else {
				s.log.Info("change detected, syncing early")
			}
		}
	}
}

func (s *Service) tickWithTimeout(ctx context.Context) (TickSummary, error) {
	if s.cfg.Timeout <= 0 {
		return s.Tick(ctx)
	}
	tctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	return s.Tick(tctx)
}

// observe records tick metrics. A completed tick with rejected documents
// counts as an error tick; documents_total carries the per-action detail.
func (s *Service) observe(summary TickSummary, start time.Time) {
	status := metrics.StatusNoop
	switch {
	case summary.HasFailures():
		status = metrics.StatusError
	case summary.Changed():
		status = metrics.StatusSuccess
	}
	metrics.ObserveTick(status, time.Since(start).Seconds())

	metrics.AddDocuments(metrics.ActionUploaded, summary.Uploaded)
	metrics.AddDocuments(metrics.ActionUpdated, summary.Updated)
	metrics.AddDocuments(metrics.ActionRemoved, summary.Removed)
	metrics.AddDocuments(metrics.ActionSkipped, summary.Skipped)
	metrics.AddDocuments(metrics.ActionFailed, summary.Failed)

	metrics.RecordSuccess(time.Now())
}
