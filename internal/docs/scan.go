// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package docs enumerates syncable documents in the working copy.
package docs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/pdiddy/knowledge-sync/pkg/types"
)

// DefaultExtensions are the file extensions synced when none are configured.
var DefaultExtensions = []string{".md", ".txt"}

// Scanner walks the sync directory and produces the set of documents to
// reconcile. Hidden files and directories (.git included) and the configured
// state directory are never documents.
type Scanner struct {
	dir        string
	stateDir   string
	extensions map[string]bool
	include    []string
	exclude    []string
	converter  *Converter
}

// NewScanner builds a Scanner from the sync settings. Extensions are
// normalized to a leading dot and matched case-insensitively. When
// cfg.ConvertHTML is set, .html and .htm files are converted to Markdown
// before hashing so unchanged markup never re-uploads.
func NewScanner(cfg types.SyncConfig) *Scanner {
	exts := cfg.AllowedExtensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	extensions := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extensions[ext] = true
	}

	s := &Scanner{
		dir:        cfg.Directory,
		extensions: extensions,
		include:    cfg.Include,
		exclude:    cfg.Exclude,
	}
	if cfg.StateDir != "" {
		s.stateDir = filepath.Clean(cfg.StateDir)
	}
	if cfg.ConvertHTML {
		s.converter = NewConverter()
		s.extensions[".html"] = true
		s.extensions[".htm"] = true
	}
	return s
}

// Scan walks the sync directory and returns the documents in path order.
// Scanning an unchanged tree returns an identical set, including hashes.
func (s *Scanner) Scan() ([]types.Document, error) {
	var docs []types.Document

	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		name := d.Name()
		if d.IsDir() {
			if path == s.dir {
				return nil
			}
			if strings.HasPrefix(name, ".") {
				return fs.SkipDir
			}
			// The state dir may sit inside the tree under a non-hidden
			// name; its ledger and report exports are not documents.
			if s.stateDir != "" && filepath.Clean(path) == s.stateDir {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		if !s.extensions[strings.ToLower(filepath.Ext(name))] {
			return nil
		}

		rel, err := filepath.Rel(s.dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		ok, err := s.selected(rel)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", rel, err)
		}

		if s.converter != nil && IsHTML(rel) {
			data, err = s.converter.Convert(data)
			if err != nil {
				return fmt.Errorf("converting %s: %w", rel, err)
			}
		}

		docs = append(docs, types.Document{
			Path:    rel,
			AbsPath: path,
			Size:    int64(len(data)),
			ModTime: info.ModTime(),
			SHA256:  HashBytes(data),
			Data:    data,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", s.dir, err)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

// selected applies the include and exclude patterns to a relative path.
func (s *Scanner) selected(rel string) (bool, error) {
	for _, pattern := range s.exclude {
		match, err := doublestar.Match(pattern, rel)
		if err != nil {
			return false, fmt.Errorf("exclude pattern %q: %w", pattern, err)
		}
		if match {
			return false, nil
		}
	}

	if len(s.include) == 0 {
		return true, nil
	}
	for _, pattern := range s.include {
		match, err := doublestar.Match(pattern, rel)
		if err != nil {
			return false, fmt.Errorf("include pattern %q: %w", pattern, err)
		}
		if match {
			return true, nil
		}
	}
	return false, nil
}

// HashBytes returns the hex SHA-256 digest used for change detection.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
