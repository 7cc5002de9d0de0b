// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package syncer drives the reconcile cycle that keeps an OpenWebUI knowledge
// base aligned with the documents in the working copy.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/pdiddy/knowledge-sync/internal/docs"
	"github.com/pdiddy/knowledge-sync/internal/ledger"
	"github.com/pdiddy/knowledge-sync/internal/webui"
	"github.com/pdiddy/knowledge-sync/pkg/types"
)

// Source keeps the working copy current. The Git phase is skipped when the
// source reports itself disabled.
type Source interface {
	Enabled() bool
	Ensure(ctx context.Context) (changed bool, head string, err error)
}

// KnowledgeAPI is the slice of the OpenWebUI client the reconcile cycle
// drives.
type KnowledgeAPI interface {
	Knowledge(ctx context.Context) (*webui.KnowledgeInfo, error)
	UploadFile(ctx context.Context, filename string, data []byte) (webui.File, error)
	UpdateFileContent(ctx context.Context, fileID string, data []byte) error
	DeleteFile(ctx context.Context, fileID string) error
	AddFile(ctx context.Context, fileID string) error
	ReindexFile(ctx context.Context, fileID string) error
	RemoveFile(ctx context.Context, fileID string) error
}

// TickSummary holds the outcome of one reconcile tick.
type TickSummary struct {
	Uploaded int
	Updated  int
	Removed  int
	Skipped  int
	Failed   int

	// Head is the working copy commit after the Git phase, when enabled.
	Head string
}

// Total returns the number of documents the tick considered.
func (s TickSummary) Total() int {
	return s.Uploaded + s.Updated + s.Removed + s.Skipped + s.Failed
}

// HasFailures reports whether any document failed to sync.
func (s TickSummary) HasFailures() bool {
	return s.Failed > 0
}

// Changed reports whether the tick performed any remote operation.
func (s TickSummary) Changed() bool {
	return s.Uploaded+s.Updated+s.Removed > 0
}

// Service reconciles the working copy with the knowledge base.
type Service struct {
	cfg     types.SyncConfig
	source  Source
	api     KnowledgeAPI
	scanner *docs.Scanner
	ledger  *ledger.Ledger
	log     *slog.Logger
}

// New assembles the sync service. A nil source skips the Git phase entirely;
// a nil logger discards logs.
func New(cfg types.SyncConfig, source Source, api KnowledgeAPI, scanner *docs.Scanner, led *ledger.Ledger, log *slog.Logger) *Service {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Service{
		cfg:     cfg,
		source:  source,
		api:     api,
		scanner: scanner,
		ledger:  led,
		log:     log,
	}
}

// Tick runs one reconcile cycle: update the working copy, enumerate
// documents, diff against the ledger and the remote listing, and apply the
// resulting plan. A document the remote rejects is logged and counted while
// the rest of the plan still runs. Failures before the plan stage abort the
// whole tick.
func (s *Service) Tick(ctx context.Context) (TickSummary, error) {
	var summary TickSummary

	if s.source != nil && s.source.Enabled() {
		changed, head, err := s.source.Ensure(ctx)
		if err != nil {
			return summary, fmt.Errorf("updating working copy: %w", err)
		}
		summary.Head = head
		if changed {
			s.log.Info("working copy updated", "head", head)
		}
	}

	documents, err := s.scanner.Scan()
	if err != nil {
		return summary, fmt.Errorf("enumerating documents: %w", err)
	}

	tracked, err := s.ledger.List(ctx)
	if err != nil {
		return summary, fmt.Errorf("reading sync ledger: %w", err)
	}

	info, err := s.api.Knowledge(ctx)
	if err != nil {
		return summary, fmt.Errorf("listing knowledge base: %w", err)
	}

	plan := BuildPlan(documents, tracked, info.Files, s.cfg.Prune)
	summary.Skipped = plan.Unchanged

	if plan.Empty() {
		s.log.Debug("nothing to reconcile", "documents", len(documents), "unchanged", plan.Unchanged)
		return summary, nil
	}

	s.log.Info("reconciling",
		"documents", len(documents),
		"creates", len(plan.Creates),
		"updates", len(plan.Updates),
		"removes", len(plan.Removes),
		"unchanged", plan.Unchanged)

	s.apply(ctx, plan, &summary)

	if summary.Changed() {
		if err := s.ledger.ExportYAML(ctx); err != nil {
			s.log.Warn("writing sync report", "error", err)
		}
	}
	return summary, nil
}

// apply executes the plan serially, isolating per-document failures.
func (s *Service) apply(ctx context.Context, plan Plan, summary *TickSummary) {
	for _, doc := range plan.Creates {
		if err := s.create(ctx, doc); err != nil {
			s.log.Error("upload failed", "path", doc.Path, "error", err)
			summary.Failed++
			continue
		}
		s.log.Info("uploaded", "path", doc.Path, "size", doc.Size)
		summary.Uploaded++
	}

	for _, up := range plan.Updates {
		if err := s.update(ctx, up); err != nil {
			s.log.Error("update failed", "path", up.Doc.Path, "error", err)
			summary.Failed++
			continue
		}
		s.log.Info("updated", "path", up.Doc.Path, "size", up.Doc.Size)
		summary.Updated++
	}

	for _, t := range plan.Removes {
		if err := s.remove(ctx, t); err != nil {
			s.log.Error("remove failed", "path", t.Path, "error", err)
			summary.Failed++
			continue
		}
		s.log.Info("removed", "path", t.Path)
		summary.Removed++
	}
}

// create uploads a document and attaches it to the knowledge base. The
// ledger records it only after both steps succeed, so a failed document is
// retried on the next tick.
func (s *Service) create(ctx context.Context, doc types.Document) error {
	file, err := s.api.UploadFile(ctx, doc.Path, doc.Data)
	if err != nil {
		return err
	}

	if err := s.api.AddFile(ctx, file.ID); err != nil {
		// Drop the orphaned file object so the retry starts clean.
		if derr := s.api.DeleteFile(ctx, file.ID); derr != nil {
			s.log.Warn("orphaned file left behind", "path", doc.Path, "file_id", file.ID, "error", derr)
		}
		return err
	}
	return s.track(ctx, doc, file.ID)
}

// update replaces the content of an existing remote file and re-indexes it.
// A vanished remote file is re-created from scratch. The content endpoint
// carries JSON, so documents that are not valid UTF-8 go through
// remove-and-recreate instead.
func (s *Service) update(ctx context.Context, up Update) error {
	if !utf8.Valid(up.Doc.Data) {
		return s.replace(ctx, up)
	}

	err := s.api.UpdateFileContent(ctx, up.FileID, up.Doc.Data)
	if errors.Is(err, webui.ErrNotFound) {
		return s.replace(ctx, up)
	}
	if err != nil {
		return err
	}

	if err := s.api.ReindexFile(ctx, up.FileID); err != nil {
		// The file exists but is not attached to the knowledge base, which
		// happens when a previous tick died between upload and attach.
		if !errors.Is(err, webui.ErrNotFound) {
			return err
		}
		if err := s.api.AddFile(ctx, up.FileID); err != nil {
			return err
		}
	}
	return s.track(ctx, up.Doc, up.FileID)
}

// replace discards the remote file and uploads the document fresh. The
// detach and delete steps are best effort: the stale entry may already be
// half gone.
func (s *Service) replace(ctx context.Context, up Update) error {
	if err := s.api.RemoveFile(ctx, up.FileID); err != nil && !errors.Is(err, webui.ErrNotFound) {
		s.log.Warn("detaching stale file", "path", up.Doc.Path, "file_id", up.FileID, "error", err)
	}
	if err := s.api.DeleteFile(ctx, up.FileID); err != nil && !errors.Is(err, webui.ErrNotFound) {
		s.log.Warn("deleting stale file", "path", up.Doc.Path, "file_id", up.FileID, "error", err)
	}
	return s.create(ctx, up.Doc)
}

// remove detaches and deletes a pruned document's remote file, then drops
// it from the ledger. Entries already gone on the remote still leave the
// ledger.
func (s *Service) remove(ctx context.Context, t types.TrackedDocument) error {
	if err := s.api.RemoveFile(ctx, t.FileID); err != nil && !errors.Is(err, webui.ErrNotFound) {
		return err
	}
	if err := s.api.DeleteFile(ctx, t.FileID); err != nil && !errors.Is(err, webui.ErrNotFound) {
		return err
	}
	return s.ledger.Delete(ctx, t.Path)
}

func (s *Service) track(ctx context.Context, doc types.Document, fileID string) error {
	return s.ledger.Put(ctx, types.TrackedDocument{
		Path:   doc.Path,
		SHA256: doc.SHA256,
		FileID: fileID,
		Size:   doc.Size,
	})
}
