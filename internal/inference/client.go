// Package inference talks to the external vision/LLM collaborator through
// a narrow text/image-in, JSON-out contract. Responses are parsed
// leniently; anything unparsable surfaces as an error the caller degrades
// from, never as a panic or a hard pipeline failure.
package inference

import (
	"context"
	"time"
)

// Client defines the interface for inference providers.
type Client interface {
	// ClassifyPage decides whether a page image starts a new document.
	ClassifyPage(ctx context.Context, req PageRequest) (PageClassification, error)
	// InferAccount suggests a GL account for a transaction.
	InferAccount(ctx context.Context, req AccountRequest) (AccountInference, error)
}

// PageRequest carries one page image plus the context the model needs:
// the page number and the document type decided for the preceding page
// (empty for page 1).
type PageRequest struct {
	MediaType    string
	PreviousType string
	Image        []byte
	PageNumber   int
}

// PageClassification is the model's boundary decision for one page.
type PageClassification struct {
	DocumentType  string  `json:"documentType"`
	Reasoning     string  `json:"reasoning"`
	Confidence    float64 `json:"confidence"`
	IsNewDocument bool    `json:"isNewDocument"`
}

// CommonAccount is one entry in the bounded guidance list sent along with
// account inference requests.
type CommonAccount struct {
	Account     string
	AccountName string
}

// AccountRequest carries the transaction facts for account inference.
type AccountRequest struct {
	SupplierName   string
	Description    string
	CommonAccounts []CommonAccount
	Amount         float64
}

// AccountInference is the model's account suggestion. Confidence is taken
// as reported; the prediction engine clamps it to its ceiling.
type AccountInference struct {
	Account     string  `json:"account"`
	AccountName string  `json:"accountName"`
	Reasoning   string  `json:"reasoning"`
	Confidence  float64 `json:"confidence"`
}

// Config holds configuration for inference clients.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	RateLimit   int
}
