package storage

import (
	"fmt"

	"github.com/RahulDas-dev/invoice-parser/models"
)

// CalculateResourcePaths generates all available resource URIs for a stored run.
func CalculateResourcePaths(docID string, result *models.RunResult) []string {
	resourcePaths := []string{
		fmt.Sprintf("invoice://%s", docID),
		fmt.Sprintf("invoice://%s/pages", docID),
		fmt.Sprintf("invoice://%s/pages/{pageIndex}", docID),
	}

	if len(result.Invoices) > 0 {
		resourcePaths = append(resourcePaths,
			fmt.Sprintf("invoice://%s/invoices", docID),
			fmt.Sprintf("invoice://%s/invoices/{invoiceIndex}", docID),
		)
	}

	// Groups only exist on the grouped route
	if len(result.Groups) > 0 {
		resourcePaths = append(resourcePaths, fmt.Sprintf("invoice://%s/groups", docID))
	}

	if len(result.Tokens) > 0 {
		resourcePaths = append(resourcePaths, fmt.Sprintf("invoice://%s/tokens", docID))
	}

	return resourcePaths
}
