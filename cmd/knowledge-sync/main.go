// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the knowledge-sync CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/knowledge-sync/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the knowledge-sync CLI.
var rootCmd = &cobra.Command{
	Use:   "knowledge-sync",
	Short: "Mirror a Git repository of documents into an OpenWebUI knowledge base",
	Long: `knowledge-sync keeps an OpenWebUI knowledge base aligned with a Git
repository of documents. On a timer it pulls the repository, enumerates the
document files, and uploads, updates, or removes the matching knowledge
entries over the OpenWebUI API.

Run the daemon with "run", a single cycle with "sync", and inspect the local
sync state with "status". Configuration comes from environment variables
(REPO_URL, WEBUI_URL, TOKEN, KNOWLEDGE_ID, ...), an optional
knowledge-sync.yaml file, and mounted .secrets/ files.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

// envBindings maps config keys to the unprefixed environment variables of the
// container contract.
var envBindings = map[string]string{
	"git.repo_url":            "REPO_URL",
	"git.username":            "GITHUB_USERNAME",
	"git.token":               "GITHUB_TOKEN",
	"git.branch":              "GIT_BRANCH",
	"git.depth":               "GIT_DEPTH",
	"webui.base_url":          "WEBUI_URL",
	"webui.token":             "TOKEN",
	"webui.knowledge_id":      "KNOWLEDGE_ID",
	"webui.max_retries":       "WEBUI_MAX_RETRIES",
	"sync.directory":          "SYNC_DIRECTORY",
	"sync.state_dir":          "STATE_DIR",
	"sync.interval":           "SYNC_INTERVAL",
	"sync.timeout":            "SYNC_TIMEOUT",
	"sync.allowed_extensions": "ALLOWED_EXTENSIONS",
	"sync.include":            "SYNC_INCLUDE",
	"sync.exclude":            "SYNC_EXCLUDE",
	"sync.prune":              "SYNC_PRUNE",
	"sync.convert_html":       "CONVERT_HTML",
	"sync.max_failures":       "SYNC_MAX_FAILURES",
	"watch.enabled":           "WATCH_ENABLED",
	"watch.debounce":          "WATCH_DEBOUNCE",
	"listen.addr":             "HTTP_ADDR",
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./knowledge-sync.yaml or /etc/knowledge-sync/knowledge-sync.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text or json")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("knowledge-sync")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/knowledge-sync")
	}

	viper.SetDefault("sync.prune", true)
	viper.SetDefault("sync.max_failures", -1)
	viper.SetDefault("webui.max_retries", 3)

	viper.SetEnvPrefix("KNOWLEDGE_SYNC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	for key, env := range envBindings {
		viper.BindEnv(key, env)
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the process logger from the root logging flags.
func newLogger() *slog.Logger {
	levelStr, _ := rootCmd.PersistentFlags().GetString("log-level")
	format, _ := rootCmd.PersistentFlags().GetString("log-format")

	level := slog.LevelInfo
	switch strings.ToLower(levelStr) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
