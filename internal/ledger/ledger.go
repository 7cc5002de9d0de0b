// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger persists the mapping between local documents and their
// remote knowledge entries. It is the sync loop's memory: content hashes for
// change detection and remote file IDs for updates and pruning.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/knowledge-sync/pkg/types"
)

const dbFile = "sync.db"

// Ledger is the SQLite-backed sync state store.
type Ledger struct {
	db       *sql.DB
	stateDir string
}

// Open creates or opens the ledger database under stateDir.
func Open(stateDir string) (*Ledger, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	dbPath := filepath.Join(stateDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	l := &Ledger{db: db, stateDir: stateDir}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return l, nil
}

// Close releases the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			path TEXT PRIMARY KEY,
			sha256 TEXT NOT NULL,
			file_id TEXT NOT NULL,
			size INTEGER NOT NULL DEFAULT 0,
			synced_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_file_id ON documents(file_id)`,
	}

	for _, stmt := range statements {
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Get returns the tracked record for a document path.
func (l *Ledger) Get(ctx context.Context, path string) (types.TrackedDocument, bool, error) {
	var doc types.TrackedDocument
	var syncedAt string

	err := l.db.QueryRowContext(ctx,
		`SELECT path, sha256, file_id, size, synced_at FROM documents WHERE path = ?`, path,
	).Scan(&doc.Path, &doc.SHA256, &doc.FileID, &doc.Size, &syncedAt)
	if err == sql.ErrNoRows {
		return types.TrackedDocument{}, false, nil
	}
	if err != nil {
		return types.TrackedDocument{}, false, fmt.Errorf("querying document %s: %w", path, err)
	}

	doc.SyncedAt = parseTime(syncedAt)
	return doc, true, nil
}

// Put records a document's successful sync, replacing any previous record
// for the same path.
func (l *Ledger) Put(ctx context.Context, doc types.TrackedDocument) error {
	if doc.SyncedAt.IsZero() {
		doc.SyncedAt = time.Now().UTC()
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO documents (path, sha256, file_id, size, synced_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
			sha256=excluded.sha256, file_id=excluded.file_id,
			size=excluded.size, synced_at=excluded.synced_at`,
		doc.Path, doc.SHA256, doc.FileID, doc.Size,
		doc.SyncedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upserting document %s: %w", doc.Path, err)
	}
	return nil
}

// Delete drops the record for a document path. Deleting an untracked path is
// a no-op.
func (l *Ledger) Delete(ctx context.Context, path string) error {
	if _, err := l.db.ExecContext(ctx, `DELETE FROM documents WHERE path = ?`, path); err != nil {
		return fmt.Errorf("deleting document %s: %w", path, err)
	}
	return nil
}

// List returns every tracked document in path order.
func (l *Ledger) List(ctx context.Context) ([]types.TrackedDocument, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT path, sha256, file_id, size, synced_at FROM documents ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []types.TrackedDocument
	for rows.Next() {
		var doc types.TrackedDocument
		var syncedAt string
		if err := rows.Scan(&doc.Path, &doc.SHA256, &doc.FileID, &doc.Size, &syncedAt); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		doc.SyncedAt = parseTime(syncedAt)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating document rows: %w", err)
	}
	return docs, nil
}

// Count returns the number of tracked documents.
func (l *Ledger) Count(ctx context.Context) (int, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, `SELECT count(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
