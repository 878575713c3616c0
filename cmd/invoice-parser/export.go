package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/RahulDas-dev/invoice-parser/server"
	"github.com/RahulDas-dev/invoice-parser/tools"
)

var exportCmd = &cobra.Command{
	Use:   "export <documentId> <out.xlsx>",
	Short: "Export the invoices of a stored document to XLSX",
	Args:  cobra.ExactArgs(2),
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	store, err := server.OpenStore(cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	query := tools.InvoiceExportQuery{DocumentIDs: []string{args[0]}, OutputPath: args[1]}
	_, resp, err := tools.InvoiceExportToolHandler(context.Background(), nil, query, cfg.OutputPath, store, log)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), outputFormat, resp)
}
