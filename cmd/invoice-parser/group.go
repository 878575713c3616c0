package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/RahulDas-dev/invoice-parser/tools"
)

var groupCmd = &cobra.Command{
	Use:   "group <metadata.json>",
	Short: "Group pages into invoices from per-page metadata",
	Long: `Run the deterministic page grouping on a JSON file holding either an array of page
metadata objects or {"pages": [...]}. No model is called and no API key is needed.`,
	Args: cobra.ExactArgs(1),
	RunE: runGroup,
}

func init() {
	rootCmd.AddCommand(groupCmd)
}

// readGroupQuery accepts a bare array of pages or a page-group tool query.
func readGroupQuery(data []byte) (tools.PageGroupQuery, error) {
	var query tools.PageGroupQuery
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		err := json.Unmarshal(trimmed, &query.Pages)
		return query, err
	}
	err := json.Unmarshal(data, &query)
	return query, err
}

func runGroup(cmd *cobra.Command, args []string) error {
	_, log, err := setup()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	query, err := readGroupQuery(data)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", args[0], err)
	}

	_, resp, err := tools.PageGroupToolHandler(context.Background(), nil, query, log)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), outputFormat, resp)
}
