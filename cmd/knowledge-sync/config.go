package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/knowledge-sync/internal/secrets"
	"github.com/pdiddy/knowledge-sync/pkg/types"
)

const (
	defaultDirectory   = "/app/data"
	defaultInterval    = time.Hour
	defaultTickTimeout = 5 * time.Minute
	defaultHTTPTimeout = 60 * time.Second
	defaultUserAgent   = "knowledge-sync/0.1"
)

// loadConfig assembles the configuration from viper (env + optional YAML
// file) and the mounted secrets, then applies defaults. Validation is left
// to the commands that talk to the network.
func loadConfig() (types.Config, error) {
	cfg := types.Config{
		Git: types.GitConfig{
			RepoURL:  viper.GetString("git.repo_url"),
			Username: viper.GetString("git.username"),
			Token:    viper.GetString("git.token"),
			Branch:   viper.GetString("git.branch"),
			Depth:    viper.GetInt("git.depth"),
		},
		WebUI: types.WebUIConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   defaultHTTPTimeout,
				UserAgent: defaultUserAgent,
			},
			BaseURL:     viper.GetString("webui.base_url"),
			Token:       viper.GetString("webui.token"),
			KnowledgeID: viper.GetString("webui.knowledge_id"),
			MaxRetries:  viper.GetInt("webui.max_retries"),
		},
		Sync: types.SyncConfig{
			Directory:         viper.GetString("sync.directory"),
			StateDir:          viper.GetString("sync.state_dir"),
			AllowedExtensions: types.SplitList(viper.GetString("sync.allowed_extensions")),
			Include:           types.SplitList(viper.GetString("sync.include")),
			Exclude:           types.SplitList(viper.GetString("sync.exclude")),
			Prune:             viper.GetBool("sync.prune"),
			ConvertHTML:       viper.GetBool("sync.convert_html"),
			MaxFailures:       viper.GetInt("sync.max_failures"),
		},
		Watch: types.WatchConfig{
			Enabled: viper.GetBool("watch.enabled"),
		},
		Listen: types.ListenConfig{
			Addr: viper.GetString("listen.addr"),
		},
	}

	secrets.Fill(&cfg, loadedSecrets)

	if cfg.Sync.Directory == "" {
		cfg.Sync.Directory = defaultDirectory
	}
	if cfg.Sync.StateDir == "" {
		cfg.Sync.StateDir = filepath.Join(cfg.Sync.Directory, ".sync-state")
	}

	var err error
	cfg.Sync.Interval, err = intervalSetting("sync.interval", defaultInterval)
	if err != nil {
		return cfg, err
	}
	cfg.Sync.Timeout, err = intervalSetting("sync.timeout", defaultTickTimeout)
	if err != nil {
		return cfg, err
	}
	cfg.Watch.Debounce, err = intervalSetting("watch.debounce", 2*time.Second)
	if err != nil {
		return cfg, err
	}

	return cfg, nil
}

// intervalSetting reads a duration setting that also accepts bare seconds,
// matching the SYNC_INTERVAL convention.
func intervalSetting(key string, fallback time.Duration) (time.Duration, error) {
	raw := viper.GetString(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := types.ParseInterval(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
