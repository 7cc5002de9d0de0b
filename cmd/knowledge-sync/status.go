// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/knowledge-sync/internal/ledger"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the tracked documents in the sync ledger",
	Long: `Status lists every document the ledger tracks: its relative path, content
hash, remote file ID, and when it last synced. The listing is read from
local state only and never contacts the knowledge base.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().Bool("json", false, "output the ledger as JSON")
	statusCmd.Flags().String("format", "", "also refresh the state report: yaml or json")

	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	led, err := ledger.Open(cfg.Sync.StateDir)
	if err != nil {
		return err
	}
	defer led.Close()

	ctx := context.Background()

	if format, _ := cmd.Flags().GetString("format"); format != "" {
		switch format {
		case "yaml":
			if err := led.ExportYAML(ctx); err != nil {
				return err
			}
			fmt.Println("Exported to", cfg.Sync.StateDir+"/report.yaml")
		case "json":
			if err := led.ExportJSON(ctx); err != nil {
				return err
			}
			fmt.Println("Exported to", cfg.Sync.StateDir+"/report.json")
		default:
			return fmt.Errorf("unsupported format %q: use yaml or json", format)
		}
	}

	tracked, err := led.List(ctx)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(tracked)
	}

	if len(tracked) == 0 {
		fmt.Println("No documents tracked.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-48s  %-12s  %-36s  %-9s  %s\n",
		"Path", "Hash", "File ID", "Size", "Synced")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 130))

	for _, d := range tracked {
		path := d.Path
		if len(path) > 48 {
			path = path[:45] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-48s  %-12s  %-36s  %-9d  %s\n",
			path, shortHash(d.SHA256), d.FileID, d.Size, d.SyncedAt.Format(time.RFC3339))
	}

	fmt.Fprintf(os.Stdout, "\n%d documents tracked\n", len(tracked))
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
