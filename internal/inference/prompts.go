package inference

import (
	"fmt"
	"strings"
)

// buildPagePrompt asks for a strict JSON boundary decision. The prompt is
// deterministic for a given (page number, previous type) pair.
func buildPagePrompt(pageNumber int, previousType string) string {
	var b strings.Builder

	b.WriteString("You are analyzing one page of a scanned multi-page PDF containing financial documents (invoices, receipts, credit notes, statements).\n\n")
	fmt.Fprintf(&b, "This is page %d.\n", pageNumber)

	if previousType == "" {
		b.WriteString("There is no preceding page.\n")
	} else {
		fmt.Fprintf(&b, "The preceding page was classified as document type %s.\n", previousType)
	}

	b.WriteString(`
Decide whether this page BEGINS A NEW DOCUMENT or continues the preceding one. Signals for a new document: a new header with supplier name and logo, a new invoice/receipt number, a new date, restarted page numbering. Signals for continuation: "page N of M" numbering, carried-over totals, the same supplier header without a new document number.

Respond with ONLY a JSON object in exactly this shape:
{"isNewDocument": true, "documentType": "INVOICE", "reasoning": "short explanation", "confidence": 0.9}

documentType must be one of: INVOICE, RECEIPT, CREDIT_NOTE, STATEMENT, OTHER.
confidence must be a number between 0 and 1.`)

	return b.String()
}

// buildAccountPrompt asks for a strict JSON account suggestion, guided by
// a bounded list of common accounts.
func buildAccountPrompt(req AccountRequest) string {
	var b strings.Builder

	b.WriteString("You are a bookkeeping assistant assigning a general-ledger account (BAS chart) to one transaction.\n\n")
	fmt.Fprintf(&b, "Supplier: %s\n", req.SupplierName)
	fmt.Fprintf(&b, "Description: %s\n", req.Description)
	fmt.Fprintf(&b, "Amount: %.2f\n\n", req.Amount)

	if len(req.CommonAccounts) > 0 {
		b.WriteString("Commonly used accounts:\n")
		for _, a := range req.CommonAccounts {
			fmt.Fprintf(&b, "- %s %s\n", a.Account, a.AccountName)
		}
		b.WriteString("\n")
	}

	b.WriteString(`Pick the most suitable account. Prefer an account from the list above; only deviate when none of them fit.

Respond with ONLY a JSON object in exactly this shape:
{"account": "4010", "accountName": "Inköp av varor och material", "confidence": 0.8, "reasoning": "short explanation"}`)

	return b.String()
}
