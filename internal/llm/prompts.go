package llm

const extractInstructions = `You transcribe one page of a business document and decide whether it is part of an invoice.

If the page is not part of an invoice, answer with the single word NO_INVOICE_FOUND and nothing else.

Otherwise produce two sections.

# Structured Text Output
List every field below. Write NOT_AVAILABLE for anything that is not printed on the page. Copy values as
printed; never compute totals or taxes yourself.
1. Invoice Number
2. Invoice Date
3. Invoice Due Date
4. Seller Details: company name, business identification numbers (GSTIN, PAN, TAN, IEC, CIN with type and
   number), address, state, country, pin code, phone number, email
5. Buyer Details: same fields as the seller
6. Item Details, one entry per line item: serial number, HSN/SAC/SKU code, description, inventory flag
   (true for goods that move stock, false for services and charges), quantity, unit of measurement, unit
   price, per-item taxes (type, rate, amount), discount, total amount, ISO currency code
7. Total Tax components (type, rate, amount) as printed for the whole invoice
8. Total Charges
9. Total Discount
10. Total Invoice Amount
11. Amount Paid
12. Amount Due

# JSON Output
Close with exactly one fenced block:

` + "```json" + `
{
    "invoice_number": "<invoice number or NOT_AVAILABLE>",
    "line_item_start_number": <first printed line item serial number or NOT_AVAILABLE>,
    "line_item_end_number": <last printed line item serial number or NOT_AVAILABLE>,
    "line_items_present": <true if at least one line item is on this page>,
    "total_invoice_amount": "<grand total printed on this page or NOT_AVAILABLE>",
    "seller_details_present": <true or false>,
    "buyer_details_present": <true or false>,
    "invoice_date_present": <true or false>,
    "invoice_due_date_present": <true or false>,
    "total_tax_details_present": <true or false>,
    "total_charges_present": <true or false>,
    "total_discount_present": <true or false>,
    "amount_paid_present": <true or false>,
    "amount_due_present": <true or false>
}
` + "```" + `

Pay special attention to tax components in nested tables.`

const extractUserMessage = "Extract the invoice details from this page."

const structureInstructions = `You are given the transcription of an invoice page, framed as "Page No <n>".
Fill the JSON schema from the transcription only. Use NOT_AVAILABLE for missing text values and 0 for
missing amounts. Do not calculate or infer values that are not written in the transcription.`

const structureGroupInstructions = `You are given the transcriptions of several pages that together form one
invoice, each framed as "Page No <n>", in page order. Produce a single consolidated invoice:
- take seller and buyer details from the most complete page;
- list every line item exactly once across all pages;
- use the grand total, not page subtotals;
- use NOT_AVAILABLE for missing text values and 0 for missing amounts;
- never calculate values that are not written in the transcription.
The field hints name the page that carries each field, when known.`

const proposalInstructions = `You group the pages of a scanned document into invoices using only per-page
metadata flags: invoice_number, line_item_start_number, line_item_end_number, line_items_present,
total_invoice_amount, seller_details_present, buyer_details_present and the auxiliary *_present flags.

Rules of thumb:
- the same invoice number on several pages binds them;
- a page whose first line item continues the previous page's last line item belongs to the same invoice;
- a line-item numbering restart on a page with line items starts a new invoice;
- a grand total normally ends an invoice;
- pages without any signal go together into one group named UNKNOWN.

Every page must appear in exactly one group. Refer to pages as "P<n>". Name each group after its invoice
number, or UNKNOWN_<k> when there is none. For every detail field, list the page(s) that carry it.`
