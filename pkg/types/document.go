// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Document is one syncable file discovered in the working copy.
type Document struct {
	// Path is the slash-separated path relative to the sync directory.
	// It doubles as the document's stable identity on the remote side.
	Path string `json:"path" yaml:"path"`

	// AbsPath is the absolute filesystem location the content was read from.
	AbsPath string `json:"abs_path" yaml:"abs_path"`

	// Size is the content length in bytes after any conversion.
	Size int64 `json:"size" yaml:"size"`

	// ModTime is the file's last modification time.
	ModTime time.Time `json:"mod_time" yaml:"mod_time"`

	// SHA256 is the hex digest of Data, used for change detection.
	SHA256 string `json:"sha256" yaml:"sha256"`

	// Data holds the document content as uploaded.
	Data []byte `json:"-" yaml:"-"`
}

// TrackedDocument is the ledger's record of a document that has been pushed
// to the knowledge base.
type TrackedDocument struct {
	// Path is the document's relative path, the ledger primary key.
	Path string `json:"path" yaml:"path"`

	// SHA256 is the content digest at the time of the last successful sync.
	SHA256 string `json:"sha256" yaml:"sha256"`

	// FileID is the OpenWebUI file identifier backing the knowledge entry.
	FileID string `json:"file_id" yaml:"file_id"`

	// Size is the content length in bytes at the last successful sync.
	Size int64 `json:"size" yaml:"size"`

	// SyncedAt records when the document last reached the remote.
	SyncedAt time.Time `json:"synced_at" yaml:"synced_at"`
}
