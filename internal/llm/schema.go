package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func object(required []string, props map[string]any) map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

func arrayOf(items map[string]any) map[string]any {
	return map[string]any{"type": "array", "items": items}
}

var (
	str     = map[string]any{"type": "string"}
	number  = map[string]any{"type": "number"}
	integer = map[string]any{"type": "integer"}
	boolean = map[string]any{"type": "boolean"}

	taxSchema = object(
		[]string{"Tax_Type", "Tax_Rate", "Tax_Amount"},
		map[string]any{"Tax_Type": str, "Tax_Rate": number, "Tax_Amount": number},
	)

	companySchema = object(
		[]string{"name", "BIN_Details", "address", "state", "country", "pin_code", "phone_number", "email"},
		map[string]any{
			"name": str,
			"BIN_Details": arrayOf(object(
				[]string{"BIN_Type", "BIN_Number"},
				map[string]any{"BIN_Type": str, "BIN_Number": str},
			)),
			"address":      str,
			"state":        str,
			"country":      str,
			"pin_code":     str,
			"phone_number": str,
			"email":        str,
		},
	)

	itemSchema = object(
		[]string{"slno", "description", "inventory_flag", "quantity", "UOM", "HSN_CODE", "price", "tax", "discount", "amount", "currency"},
		map[string]any{
			"slno":           integer,
			"description":    str,
			"inventory_flag": boolean,
			"quantity":       number,
			"UOM":            str,
			"HSN_CODE":       str,
			"price":          number,
			"tax":            arrayOf(taxSchema),
			"discount":       number,
			"amount":         number,
			"currency":       str,
		},
	)

	// invoiceSchema is the structured-output schema for one invoice. Missing strings come back as
	// NOT_AVAILABLE and missing amounts as 0.
	invoiceSchema = object(
		[]string{
			"invoice_number", "invoice_date", "invoice_due_date", "seller_details", "buyer_details",
			"items", "total_tax", "total_charge", "total_discount", "total_amount", "amount_paid",
			"amount_due",
		},
		map[string]any{
			"invoice_number":   str,
			"invoice_date":     str,
			"invoice_due_date": str,
			"seller_details":   companySchema,
			"buyer_details":    companySchema,
			"items":            arrayOf(itemSchema),
			"total_tax":        arrayOf(taxSchema),
			"total_charge":     number,
			"total_discount":   number,
			"total_amount":     number,
			"amount_paid":      number,
			"amount_due":       number,
		},
	)

	pageList = arrayOf(str)

	// proposalSchema is the grouping proposal. Page references look like "P3".
	proposalSchema = object(
		[]string{"groups"},
		map[string]any{
			"groups": arrayOf(object(
				[]string{"group_name", "pages", "details"},
				map[string]any{
					"group_name": str,
					"pages":      pageList,
					"details": object(
						[]string{
							"invoice_number", "line_item_details", "total_invoice_amount", "seller_details",
							"buyer_details", "invoice_date", "invoice_due_date", "total_tax_details",
							"total_charges", "total_discount", "amount_paid", "amount_due",
						},
						map[string]any{
							"invoice_number":       pageList,
							"line_item_details":    pageList,
							"total_invoice_amount": pageList,
							"seller_details":       pageList,
							"buyer_details":        pageList,
							"invoice_date":         pageList,
							"invoice_due_date":     pageList,
							"total_tax_details":    pageList,
							"total_charges":        pageList,
							"total_discount":       pageList,
							"amount_paid":          pageList,
							"amount_due":           pageList,
						},
					),
				},
			)),
		},
	)
)

var (
	compiledInvoice  = sync.OnceValues(func() (*jsonschema.Schema, error) { return compile("invoice.json", invoiceSchema) })
	compiledProposal = sync.OnceValues(func() (*jsonschema.Schema, error) { return compile("proposal.json", proposalSchema) })
)

func compile(name string, schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	return compiler.Compile(name)
}

// validateJSON checks model output against a compiled schema before it is decoded.
func validateJSON(schema func() (*jsonschema.Schema, error), data []byte) error {
	s, err := schema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
