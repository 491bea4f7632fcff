package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/castwork/slidecast/internal/graph"
)

func newSharesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shares",
		Short: "List folders shared with you",
		Long: "List items shared with the authenticated account. Use the exact folder\n" +
			"name shown here as the argument to 'slidecast run'.",
		RunE: runShares,
	}
}

// sharesJSONItem is the JSON output schema for a single shared item.
type sharesJSONItem struct {
	Name     string `json:"name"`
	IsFolder bool   `json:"is_folder"`
	DriveID  string `json:"drive_id"`
	ItemID   string `json:"item_id"`
}

func runShares(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	ts, err := savedTokenSource(ctx)
	if err != nil {
		return err
	}

	client := graph.NewClient(graph.DefaultBaseURL, defaultHTTPClient(), ts, buildLogger())

	items, err := client.SharedWithMe(ctx)
	if err != nil {
		return fmt.Errorf("listing shared items: %w", err)
	}

	if flagJSON {
		out := make([]sharesJSONItem, 0, len(items))
		for i := range items {
			out = append(out, sharesJSONItem{
				Name:     items[i].Name,
				IsFolder: items[i].IsFolder,
				DriveID:  items[i].Remote.DriveID,
				ItemID:   items[i].Remote.ItemID,
			})
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("encoding JSON output: %w", err)
		}

		return nil
	}

	rows := make([][]string, 0, len(items))

	for i := range items {
		kind := "file"
		if items[i].IsFolder {
			kind = "folder"
		}

		rows = append(rows, []string{items[i].Name, kind})
	}

	printTable(os.Stdout, []string{"NAME", "KIND"}, rows)

	return nil
}
