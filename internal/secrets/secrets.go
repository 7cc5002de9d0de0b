// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files,
// the layout produced by Docker and Kubernetes secret mounts. Each file in
// the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Supported key files: webui-token, github-token, knowledge-id.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/knowledge-sync/pkg/types"
)

// Keys recognized by Fill.
const (
	KeyWebUIToken  = "webui-token"
	KeyGitToken    = "github-token"
	KeyKnowledgeID = "knowledge-id"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Fill copies loaded secrets into config fields that are still empty.
// Values set through the environment or a config file win over secret files.
func Fill(cfg *types.Config, secrets map[string]string) {
	if cfg.WebUI.Token == "" {
		cfg.WebUI.Token = secrets[KeyWebUIToken]
	}
	if cfg.WebUI.KnowledgeID == "" {
		cfg.WebUI.KnowledgeID = secrets[KeyKnowledgeID]
	}
	if cfg.Git.Token == "" {
		cfg.Git.Token = secrets[KeyGitToken]
	}
}
