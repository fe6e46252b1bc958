// Package learning closes the feedback loop: every human decision about a
// transaction's account flows back into the supplier profile and the
// description patterns, and corrections additionally decay supplier
// confidence and leave an audit record.
package learning

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/konteragroup/kontera/internal/model"
	"github.com/konteragroup/kontera/internal/similarity"
	"github.com/konteragroup/kontera/internal/supplier"
)

// correctionDecayFactor shrinks supplier confidence on every correction.
const correctionDecayFactor = 0.9

// SupplierRecorder is the slice of the supplier store the loop writes to.
// *supplier.Store satisfies it.
type SupplierRecorder interface {
	Record(ctx context.Context, companyID string, txn model.Transaction, approval supplier.Approval) (*model.SupplierLearningProfile, error)
	DecayConfidence(ctx context.Context, companyID, supplierName string, factor float64) error
}

// PatternLearner is the slice of the pattern store the loop writes to.
// *pattern.Store satisfies it.
type PatternLearner interface {
	Learn(ctx context.Context, companyID string, txn model.Transaction, account, accountName string, wasCorrection bool) (*model.TransactionPattern, error)
}

// CorrectionWriter persists correction audit records. service.Storage
// satisfies it.
type CorrectionWriter interface {
	SaveCorrection(ctx context.Context, record *model.CorrectionRecord) error
}

// Feedback is one human decision about a transaction's account. When
// SuggestedAccount differs from Account the decision counts as a
// correction; when they match (or no suggestion was shown) it counts as a
// confirmed prediction.
type Feedback struct {
	Account          string
	AccountName      string
	VatCode          string
	CostCenter       string
	SuggestedAccount string
}

// IsCorrection reports whether this feedback overrode a suggestion.
func (f Feedback) IsCorrection() bool {
	return f.SuggestedAccount != "" && f.SuggestedAccount != f.Account
}

// Loop applies feedback to the learning stores.
type Loop struct {
	suppliers   SupplierRecorder
	patterns    PatternLearner
	corrections CorrectionWriter
	logger      *slog.Logger
	now         func() time.Time
}

// NewLoop creates a feedback loop.
func NewLoop(suppliers SupplierRecorder, patterns PatternLearner, corrections CorrectionWriter, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		suppliers:   suppliers,
		patterns:    patterns,
		corrections: corrections,
		logger:      logger,
		now:         time.Now,
	}
}

// Apply feeds one decision through the supplier profile, the pattern
// store and, for corrections, the confidence decay and the audit trail.
// The updated supplier profile is returned.
func (l *Loop) Apply(ctx context.Context, companyID string, txn model.Transaction, feedback Feedback) (*model.SupplierLearningProfile, error) {
	if feedback.Account == "" {
		return nil, fmt.Errorf("feedback must carry the decided account")
	}

	wasCorrection := feedback.IsCorrection()

	profile, err := l.suppliers.Record(ctx, companyID, txn, supplier.Approval{
		Account:       feedback.Account,
		AccountName:   feedback.AccountName,
		VatCode:       feedback.VatCode,
		CostCenter:    feedback.CostCenter,
		WasCorrection: wasCorrection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record supplier feedback: %w", err)
	}

	// The supplier profile already carries the decision at this point; a
	// retry after a pattern failure records it again, which the history
	// counts tolerate.
	if _, err := l.patterns.Learn(ctx, companyID, txn, feedback.Account, feedback.AccountName, wasCorrection); err != nil {
		return nil, fmt.Errorf("failed to learn transaction pattern: %w", err)
	}

	if !wasCorrection {
		return profile, nil
	}

	if err := l.suppliers.DecayConfidence(ctx, companyID, txn.SupplierName, correctionDecayFactor); err != nil {
		return nil, fmt.Errorf("failed to decay supplier confidence: %w", err)
	}
	// Keep the returned snapshot in step with the persisted decay.
	profile.LearningStats.ConfidenceScore *= correctionDecayFactor

	record := &model.CorrectionRecord{
		Timestamp:            l.now(),
		CompanyID:            companyID,
		NormalizedName:       similarity.Normalize(txn.SupplierName),
		OriginalAccount:      feedback.SuggestedAccount,
		CorrectedAccount:     feedback.Account,
		CorrectedAccountName: feedback.AccountName,
	}
	if err := l.corrections.SaveCorrection(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save correction record: %w", err)
	}

	l.logger.Info("correction recorded",
		"company_id", companyID,
		"supplier", record.NormalizedName,
		"from", record.OriginalAccount,
		"to", record.CorrectedAccount)

	return profile, nil
}
