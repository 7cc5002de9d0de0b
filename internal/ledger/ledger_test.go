// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/knowledge-sync/pkg/types"
)

// --- test helpers ---

func testLedger(t *testing.T) (*Ledger, string) {
	t.Helper()
	stateDir := t.TempDir()
	l, err := Open(stateDir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })
	return l, stateDir
}

func tracked(path, hash, fileID string) types.TrackedDocument {
	return types.TrackedDocument{
		Path:     path,
		SHA256:   hash,
		FileID:   fileID,
		Size:     int64(len(path)),
		SyncedAt: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
	}
}

// --- tests ---

func TestPutGetRoundTrip(t *testing.T) {
	l, _ := testLedger(t)
	ctx := context.Background()

	want := tracked("guides/setup.md", "abc123", "file-1")
	if err := l.Put(ctx, want); err != nil {
		t.Fatal(err)
	}

	got, found, err := l.Get(ctx, "guides/setup.md")
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("Get() found = false after Put")
	}
	if got.Path != want.Path || got.SHA256 != want.SHA256 || got.FileID != want.FileID || got.Size != want.Size {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
	if !got.SyncedAt.Equal(want.SyncedAt) {
		t.Errorf("SyncedAt = %v, want %v", got.SyncedAt, want.SyncedAt)
	}
}

func TestGetMissing(t *testing.T) {
	l, _ := testLedger(t)

	_, found, err := l.Get(context.Background(), "nope.md")
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("Get() found = true for untracked path")
	}
}

func TestPutReplacesExisting(t *testing.T) {
	l, _ := testLedger(t)
	ctx := context.Background()

	if err := l.Put(ctx, tracked("doc.md", "hash-v1", "file-1")); err != nil {
		t.Fatal(err)
	}
	if err := l.Put(ctx, tracked("doc.md", "hash-v2", "file-1")); err != nil {
		t.Fatal(err)
	}

	got, _, err := l.Get(ctx, "doc.md")
	if err != nil {
		t.Fatal(err)
	}
	if got.SHA256 != "hash-v2" {
		t.Errorf("SHA256 = %s, want hash-v2", got.SHA256)
	}

	n, err := l.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Count() = %d after double Put of one path, want 1", n)
	}
}

func TestPutFillsSyncedAt(t *testing.T) {
	l, _ := testLedger(t)
	ctx := context.Background()

	doc := types.TrackedDocument{Path: "doc.md", SHA256: "h", FileID: "f"}
	if err := l.Put(ctx, doc); err != nil {
		t.Fatal(err)
	}

	got, _, err := l.Get(ctx, "doc.md")
	if err != nil {
		t.Fatal(err)
	}
	if got.SyncedAt.IsZero() {
		t.Error("SyncedAt is zero, want a timestamp filled at Put time")
	}
}

func TestDelete(t *testing.T) {
	l, _ := testLedger(t)
	ctx := context.Background()

	if err := l.Put(ctx, tracked("doc.md", "h", "f")); err != nil {
		t.Fatal(err)
	}
	if err := l.Delete(ctx, "doc.md"); err != nil {
		t.Fatal(err)
	}

	_, found, err := l.Get(ctx, "doc.md")
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("Get() found = true after Delete")
	}

	// Deleting an untracked path is a no-op.
	if err := l.Delete(ctx, "never-existed.md"); err != nil {
		t.Errorf("Delete() of untracked path: %v", err)
	}
}

func TestListOrdered(t *testing.T) {
	l, _ := testLedger(t)
	ctx := context.Background()

	for _, p := range []string{"z.md", "a.md", "m/n.md"} {
		if err := l.Put(ctx, tracked(p, "h", "f-"+p)); err != nil {
			t.Fatal(err)
		}
	}

	docs, err := l.List(ctx)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"a.md", "m/n.md", "z.md"}
	if len(docs) != len(want) {
		t.Fatalf("List() = %d docs, want %d", len(docs), len(want))
	}
	for i, p := range want {
		if docs[i].Path != p {
			t.Errorf("List()[%d].Path = %s, want %s", i, docs[i].Path, p)
		}
	}
}

func TestReopenPersists(t *testing.T) {
	stateDir := t.TempDir()
	ctx := context.Background()

	l, err := Open(stateDir)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Put(ctx, tracked("doc.md", "h1", "f1")); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(stateDir)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	got, found, err := reopened.Get(ctx, "doc.md")
	if err != nil {
		t.Fatal(err)
	}
	if !found || got.SHA256 != "h1" {
		t.Errorf("reopened Get() = %+v found=%v, want persisted record", got, found)
	}
}

func TestOpenCreatesStateDir(t *testing.T) {
	stateDir := filepath.Join(t.TempDir(), "nested", ".sync-state")
	l, err := Open(stateDir)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	if _, err := os.Stat(filepath.Join(stateDir, dbFile)); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestExportYAML(t *testing.T) {
	l, stateDir := testLedger(t)
	ctx := context.Background()

	if err := l.Put(ctx, tracked("doc.md", "h", "f")); err != nil {
		t.Fatal(err)
	}
	if err := l.ExportYAML(ctx); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(stateDir, "report.yaml"))
	if err != nil {
		t.Fatal(err)
	}

	var report Report
	if err := yaml.Unmarshal(data, &report); err != nil {
		t.Fatal(err)
	}
	if len(report.Documents) != 1 || report.Documents[0].Path != "doc.md" {
		t.Errorf("report documents = %+v, want the tracked doc", report.Documents)
	}
	if report.GeneratedAt.IsZero() {
		t.Error("report GeneratedAt is zero")
	}
}

func TestExportJSON(t *testing.T) {
	l, stateDir := testLedger(t)
	ctx := context.Background()

	if err := l.Put(ctx, tracked("a.md", "h", "f")); err != nil {
		t.Fatal(err)
	}
	if err := l.ExportJSON(ctx); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(stateDir, "report.json"))
	if err != nil {
		t.Fatal(err)
	}

	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatal(err)
	}
	if len(report.Documents) != 1 || report.Documents[0].FileID != "f" {
		t.Errorf("report documents = %+v, want the tracked doc", report.Documents)
	}
}
