package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrConfigMissing is returned by Config.Validate when a required setting is
// absent. Callers treat it as fatal at startup, before any network activity.
var ErrConfigMissing = errors.New("required configuration missing")

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "knowledge-sync/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// GitConfig holds settings for the document repository working copy.
type GitConfig struct {
	// RepoURL is the HTTPS remote to mirror. When empty the Git phase is
	// skipped and whatever already sits in the sync directory is pushed.
	RepoURL string `json:"repo_url" yaml:"repo_url"`

	// Username is the HTTPS basic-auth user for private remotes.
	Username string `json:"username" yaml:"username"`

	// Token is the HTTPS basic-auth password or personal access token.
	Token string `json:"token,omitempty" yaml:"token,omitempty"`

	// Branch is the branch to track. Empty selects the remote default.
	Branch string `json:"branch" yaml:"branch"`

	// Depth limits clone history. Zero clones the full history.
	Depth int `json:"depth" yaml:"depth"`
}

// WebUIConfig holds settings for the OpenWebUI knowledge API.
type WebUIConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the OpenWebUI root, e.g. "https://chat.example.com".
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Token is the API bearer token.
	Token string `json:"token,omitempty" yaml:"token,omitempty"`

	// KnowledgeID identifies the target knowledge base.
	KnowledgeID string `json:"knowledge_id" yaml:"knowledge_id"`

	// MaxRetries is the number of retry attempts for throttled or failing
	// API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// SyncConfig holds settings for the reconcile loop.
type SyncConfig struct {
	// Directory is the working copy root (default /app/data).
	Directory string `json:"directory" yaml:"directory"`

	// StateDir is where the sync ledger lives (default <Directory>/.sync-state).
	StateDir string `json:"state_dir" yaml:"state_dir"`

	// Interval is the pause between ticks (default 1h).
	Interval time.Duration `json:"interval" yaml:"interval"`

	// Timeout bounds a single tick (default 5m).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// AllowedExtensions lists syncable file extensions with leading dots
	// (default .md, .txt).
	AllowedExtensions []string `json:"allowed_extensions" yaml:"allowed_extensions"`

	// Include restricts enumeration to relative paths matching any of these
	// doublestar patterns. Empty means everything.
	Include []string `json:"include,omitempty" yaml:"include,omitempty"`

	// Exclude drops relative paths matching any of these doublestar patterns.
	Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`

	// Prune removes remote entries for documents deleted upstream (default true).
	Prune bool `json:"prune" yaml:"prune"`

	// ConvertHTML converts .html/.htm documents to Markdown before upload.
	ConvertHTML bool `json:"convert_html" yaml:"convert_html"`

	// MaxFailures is the number of consecutive failed ticks tolerated before
	// the process exits. -1 retries forever (default).
	MaxFailures int `json:"max_failures" yaml:"max_failures"`
}

// WatchConfig holds settings for the filesystem change trigger.
type WatchConfig struct {
	// Enabled turns on the fsnotify watcher over the sync directory.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Debounce is how long to wait after the last change before triggering
	// an early tick (default 2s).
	Debounce time.Duration `json:"debounce" yaml:"debounce"`
}

// ListenConfig holds settings for the metrics and health endpoint.
type ListenConfig struct {
	// Addr is the bind address for /metrics and /healthz, e.g. ":8080".
	// Empty disables the listener.
	Addr string `json:"addr" yaml:"addr"`
}

// Config groups all settings for the sync service.
type Config struct {
	Git    GitConfig    `json:"git" yaml:"git"`
	WebUI  WebUIConfig  `json:"webui" yaml:"webui"`
	Sync   SyncConfig   `json:"sync" yaml:"sync"`
	Watch  WatchConfig  `json:"watch" yaml:"watch"`
	Listen ListenConfig `json:"listen" yaml:"listen"`
}

// Validate reports every required setting that is missing. The returned error
// wraps ErrConfigMissing and is meant to stop the process before it touches
// the network.
func (c Config) Validate() error {
	var missing []string
	if c.WebUI.BaseURL == "" {
		missing = append(missing, "WEBUI_URL")
	}
	if c.WebUI.Token == "" {
		missing = append(missing, "TOKEN")
	}
	if c.WebUI.KnowledgeID == "" {
		missing = append(missing, "KNOWLEDGE_ID")
	}
	if c.Sync.Directory == "" {
		missing = append(missing, "SYNC_DIRECTORY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrConfigMissing, missing)
	}
	return nil
}

// ParseInterval parses a sync interval or timeout. A bare integer is a
// number of seconds; anything else must be a Go duration string such as
// "90m".
func ParseInterval(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty interval")
	}

	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative interval %d", n)
		}
		return time.Duration(n) * time.Second, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parsing interval %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative interval %q", s)
	}
	return d, nil
}

// SplitList splits a comma-separated setting into trimmed, non-empty items.
func SplitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
