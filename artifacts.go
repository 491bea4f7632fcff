package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/castwork/slidecast/internal/config"
	"github.com/castwork/slidecast/internal/ledger"
)

func newArtifactsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "artifacts",
		Short: "List videos produced by past runs",
		RunE:  runArtifacts,
	}
}

// artifactJSONItem is the JSON output schema for a single artifact.
type artifactJSONItem struct {
	RunID     string    `json:"run_id"`
	Folder    string    `json:"folder"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

func runArtifacts(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := cmd.Context()

	store, err := ledger.Open(ctx, config.LedgerPath(), logger)
	if err != nil {
		return err
	}
	defer store.Close()

	artifacts, err := store.ListArtifacts(ctx)
	if err != nil {
		return err
	}

	if flagJSON {
		out := make([]artifactJSONItem, 0, len(artifacts))
		for _, a := range artifacts {
			out = append(out, artifactJSONItem{
				RunID:     a.RunID,
				Folder:    a.Folder,
				Path:      a.Path,
				CreatedAt: a.CreatedAt,
			})
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("encoding JSON output: %w", err)
		}

		return nil
	}

	rows := make([][]string, 0, len(artifacts))
	for _, a := range artifacts {
		rows = append(rows, []string{formatTime(a.CreatedAt), a.Folder, a.Path})
	}

	printTable(os.Stdout, []string{"CREATED", "FOLDER", "ARTIFACT"}, rows)

	return nil
}
