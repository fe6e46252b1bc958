package engine

import (
	"context"

	"github.com/konteragroup/kontera/internal/inference"
	"github.com/konteragroup/kontera/internal/model"
)

// SupplierLookup provides read access to learned supplier profiles.
// *supplier.Store satisfies it.
type SupplierLookup interface {
	Get(ctx context.Context, companyID, supplierName string) (*model.SupplierLearningProfile, error)
	FindSimilar(ctx context.Context, companyID, supplierName string) (*model.SupplierLearningProfile, error)
}

// PatternMatcher provides read access to learned transaction patterns.
// *pattern.Store satisfies it.
type PatternMatcher interface {
	Match(ctx context.Context, companyID, supplierName, description string) (*model.TransactionPattern, error)
}

// AccountInferrer is the AI fallback for account prediction.
// inference.Client satisfies it.
type AccountInferrer interface {
	InferAccount(ctx context.Context, req inference.AccountRequest) (inference.AccountInference, error)
}
