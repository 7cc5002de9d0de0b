// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/knowledge-sync/pkg/types"
)

// Report is the exported view of the ledger, written after ticks that change
// remote state so operators can inspect what is tracked without sqlite.
type Report struct {
	GeneratedAt time.Time               `json:"generated_at" yaml:"generated_at"`
	Documents   []types.TrackedDocument `json:"documents" yaml:"documents"`
}

// ExportYAML writes the tracked document set to stateDir/report.yaml.
func (l *Ledger) ExportYAML(ctx context.Context) error {
	report, err := l.buildReport(ctx)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return os.WriteFile(filepath.Join(l.stateDir, "report.yaml"), data, 0o644)
}

// ExportJSON writes the tracked document set to stateDir/report.json.
func (l *Ledger) ExportJSON(ctx context.Context) error {
	report, err := l.buildReport(ctx)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return os.WriteFile(filepath.Join(l.stateDir, "report.json"), data, 0o644)
}

func (l *Ledger) buildReport(ctx context.Context) (Report, error) {
	docs, err := l.List(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("querying for export: %w", err)
	}
	return Report{GeneratedAt: time.Now().UTC(), Documents: docs}, nil
}
