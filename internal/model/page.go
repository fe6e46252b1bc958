// Package model defines the core domain models used throughout the application.
package model

// DocumentType indicates what kind of source document a page belongs to.
type DocumentType string

// Document type constants.
const (
	DocTypeInvoice    DocumentType = "INVOICE"
	DocTypeReceipt    DocumentType = "RECEIPT"
	DocTypeCreditNote DocumentType = "CREDIT_NOTE"
	DocTypeStatement  DocumentType = "STATEMENT"
	DocTypeOther      DocumentType = "OTHER"
)

// ParseDocumentType maps a free-form model answer onto a known document type.
// Unknown values become DocTypeOther.
func ParseDocumentType(s string) DocumentType {
	switch DocumentType(s) {
	case DocTypeInvoice, DocTypeReceipt, DocTypeCreditNote, DocTypeStatement, DocTypeOther:
		return DocumentType(s)
	default:
		return DocTypeOther
	}
}

// Page is the boundary decision for a single PDF page. Pages are written
// once during analysis and never mutated afterwards.
type Page struct {
	ImageRef      string
	DocumentType  DocumentType
	PageNumber    int
	Confidence    float64
	IsNewDocument bool
}

// SplitStrategy describes how an uploaded file was divided into jobs.
type SplitStrategy string

// Split strategy constants.
const (
	SplitSingle   SplitStrategy = "single"
	SplitMultiple SplitStrategy = "multiple"
	SplitMerged   SplitStrategy = "merged"
)

// MultiPageAnalysisResult is the outcome of classifying every page of one
// upload. It is consumed once by the job assembler and never persisted.
type MultiPageAnalysisResult struct {
	SplitStrategy     SplitStrategy
	Pages             []Page
	TotalPages        int
	DocumentsDetected int
}
