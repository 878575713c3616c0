package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/RahulDas-dev/invoice-parser/internal/documents"
	"github.com/RahulDas-dev/invoice-parser/internal/export"
	"github.com/RahulDas-dev/invoice-parser/internal/operations"
	"github.com/RahulDas-dev/invoice-parser/models"
	"github.com/RahulDas-dev/invoice-parser/server"
)

var (
	runXLSXPath string
	runForce    bool
	runZoteroID string
)

var runCmd = &cobra.Command{
	Use:   "run [file|url]",
	Short: "Extract invoices from a document",
	Long:  "Run the extraction workflow on a local file, a URL or a Zotero attachment and print the result.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runXLSXPath, "xlsx", "", "also write the invoices to this XLSX file")
	runCmd.Flags().BoolVar(&runForce, "force", false, "ignore a stored run of the same document")
	runCmd.Flags().StringVar(&runZoteroID, "zotero", "", "Zotero attachment key to parse instead of a file or URL")
	rootCmd.AddCommand(runCmd)
}

func sourceFromArg(arg string) models.SourceInfo {
	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		return models.SourceInfo{URL: arg}
	}
	return models.SourceInfo{Path: arg}
}

func runRun(cmd *cobra.Command, args []string) error {
	var source models.SourceInfo
	switch {
	case runZoteroID != "":
		source = models.SourceInfo{ZoteroID: runZoteroID}
	case len(args) == 1:
		source = sourceFromArg(args[0])
	default:
		return fmt.Errorf("a file, a URL or --zotero is required")
	}

	cfg, log, err := setup()
	if err != nil {
		return err
	}

	store, err := server.OpenStore(cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	controller, err := operations.NewController(cfg, log)
	if err != nil {
		return err
	}

	creds := documents.ZoteroCredentials{APIKey: cfg.ZoteroAPIKey, LibraryID: cfg.ZoteroLibraryID}
	req := operations.ParseRequest{Source: source, Force: runForce}
	docID, result, err := operations.GetOrParseInvoices(context.Background(), req, creds, controller, store, log)
	if result != nil {
		if werr := writeOutput(cmd.OutOrStdout(), outputFormat, struct {
			DocumentID string `json:"document_id"`
			*models.RunResult
		}{docID, result}); werr != nil {
			return werr
		}
	}
	if err != nil {
		return err
	}

	if runXLSXPath != "" {
		f, err := os.Create(runXLSXPath)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", runXLSXPath, err)
		}
		defer f.Close()
		if err := export.WriteInvoices(f, result.Invoices, result.Tokens); err != nil {
			return err
		}
		log.Info("Wrote %d invoices to %s", len(result.Invoices), runXLSXPath)
	}
	return nil
}
