package learning

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/konteragroup/kontera/internal/model"
	"github.com/konteragroup/kontera/internal/supplier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordCall struct {
	companyID string
	txn       model.Transaction
	approval  supplier.Approval
}

type decayCall struct {
	companyID    string
	supplierName string
	factor       float64
}

// mockSuppliers records Record and DecayConfidence calls.
type mockSuppliers struct {
	records   []recordCall
	decays    []decayCall
	recordErr error
	decayErr  error
	profile   *model.SupplierLearningProfile
}

func (m *mockSuppliers) Record(_ context.Context, companyID string, txn model.Transaction, approval supplier.Approval) (*model.SupplierLearningProfile, error) {
	m.records = append(m.records, recordCall{companyID: companyID, txn: txn, approval: approval})
	if m.recordErr != nil {
		return nil, m.recordErr
	}
	if m.profile != nil {
		return m.profile, nil
	}
	return &model.SupplierLearningProfile{CompanyID: companyID}, nil
}

func (m *mockSuppliers) DecayConfidence(_ context.Context, companyID, supplierName string, factor float64) error {
	m.decays = append(m.decays, decayCall{companyID: companyID, supplierName: supplierName, factor: factor})
	return m.decayErr
}

type learnCall struct {
	account       string
	accountName   string
	wasCorrection bool
}

// mockPatterns records Learn calls.
type mockPatterns struct {
	calls []learnCall
	err   error
}

func (m *mockPatterns) Learn(_ context.Context, _ string, _ model.Transaction, account, accountName string, wasCorrection bool) (*model.TransactionPattern, error) {
	m.calls = append(m.calls, learnCall{account: account, accountName: accountName, wasCorrection: wasCorrection})
	if m.err != nil {
		return nil, m.err
	}
	return &model.TransactionPattern{Account: account}, nil
}

// mockCorrections records saved correction records.
type mockCorrections struct {
	saved []model.CorrectionRecord
	err   error
}

func (m *mockCorrections) SaveCorrection(_ context.Context, record *model.CorrectionRecord) error {
	m.saved = append(m.saved, *record)
	return m.err
}

func testTxn() model.Transaction {
	return model.Transaction{
		ID:           "txn-1",
		SupplierName: "Telia Sverige AB",
		Description:  "Mobilabonnemang",
		Amount:       450,
		Date:         time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newTestLoop() (*Loop, *mockSuppliers, *mockPatterns, *mockCorrections) {
	suppliers := &mockSuppliers{}
	patterns := &mockPatterns{}
	corrections := &mockCorrections{}
	loop := NewLoop(suppliers, patterns, corrections, slog.Default())
	return loop, suppliers, patterns, corrections
}

func TestFeedbackIsCorrection(t *testing.T) {
	tests := []struct {
		name     string
		feedback Feedback
		want     bool
	}{
		{name: "confirmed suggestion", feedback: Feedback{Account: "6212", SuggestedAccount: "6212"}, want: false},
		{name: "override", feedback: Feedback{Account: "6210", SuggestedAccount: "6212"}, want: true},
		{name: "no suggestion shown", feedback: Feedback{Account: "6212"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.feedback.IsCorrection())
		})
	}
}

func TestApplyConfirmation(t *testing.T) {
	loop, suppliers, patterns, corrections := newTestLoop()

	profile, err := loop.Apply(context.Background(), "company-1", testTxn(), Feedback{
		Account:          "6212",
		AccountName:      "Telefon och internet",
		VatCode:          "25",
		SuggestedAccount: "6212",
	})
	require.NoError(t, err)
	require.NotNil(t, profile)

	require.Len(t, suppliers.records, 1)
	assert.False(t, suppliers.records[0].approval.WasCorrection)
	assert.Equal(t, "6212", suppliers.records[0].approval.Account)
	assert.Equal(t, "25", suppliers.records[0].approval.VatCode)

	require.Len(t, patterns.calls, 1)
	assert.False(t, patterns.calls[0].wasCorrection)

	assert.Empty(t, suppliers.decays, "confirmations never decay confidence")
	assert.Empty(t, corrections.saved, "confirmations leave no audit record")
}

func TestApplyCorrection(t *testing.T) {
	loop, suppliers, patterns, corrections := newTestLoop()
	suppliers.profile = &model.SupplierLearningProfile{
		CompanyID:     "company-1",
		LearningStats: model.LearningStats{ConfidenceScore: 0.8},
	}

	profile, err := loop.Apply(context.Background(), "company-1", testTxn(), Feedback{
		Account:          "6210",
		AccountName:      "Telekommunikation",
		SuggestedAccount: "6212",
	})
	require.NoError(t, err)

	require.Len(t, suppliers.records, 1)
	assert.True(t, suppliers.records[0].approval.WasCorrection)

	require.Len(t, patterns.calls, 1)
	assert.True(t, patterns.calls[0].wasCorrection)
	assert.Equal(t, "6210", patterns.calls[0].account)

	require.Len(t, suppliers.decays, 1)
	assert.InDelta(t, 0.9, suppliers.decays[0].factor, 1e-9)
	assert.Equal(t, "Telia Sverige AB", suppliers.decays[0].supplierName)

	require.Len(t, corrections.saved, 1)
	saved := corrections.saved[0]
	assert.Equal(t, "telia sverige ab", saved.NormalizedName)
	assert.Equal(t, "6212", saved.OriginalAccount)
	assert.Equal(t, "6210", saved.CorrectedAccount)
	assert.False(t, saved.Timestamp.IsZero())

	assert.InDelta(t, 0.72, profile.LearningStats.ConfidenceScore, 1e-9,
		"returned snapshot reflects the decayed confidence")
}

func TestApplyRequiresAccount(t *testing.T) {
	loop, suppliers, _, _ := newTestLoop()

	_, err := loop.Apply(context.Background(), "company-1", testTxn(), Feedback{})
	require.Error(t, err)
	assert.Empty(t, suppliers.records)
}

func TestApplySupplierRecordFailure(t *testing.T) {
	loop, suppliers, patterns, _ := newTestLoop()
	suppliers.recordErr = errors.New("db locked")

	_, err := loop.Apply(context.Background(), "company-1", testTxn(), Feedback{Account: "6212"})
	require.Error(t, err)
	assert.Empty(t, patterns.calls, "pattern learning does not run when the profile write failed")
}

func TestApplyPatternFailureSurfaces(t *testing.T) {
	loop, suppliers, patterns, corrections := newTestLoop()
	patterns.err = errors.New("disk full")

	_, err := loop.Apply(context.Background(), "company-1", testTxn(), Feedback{
		Account:          "6212",
		SuggestedAccount: "6212",
	})
	require.Error(t, err, "a lost pattern write must be visible to the caller")
	assert.ErrorContains(t, err, "disk full")

	// The supplier write had already succeeded; a retry records it again,
	// which the history counts tolerate.
	assert.Len(t, suppliers.records, 1)
	assert.Empty(t, corrections.saved)
}

func TestApplyCorrectionAuditFailure(t *testing.T) {
	loop, _, _, corrections := newTestLoop()
	corrections.err = errors.New("disk full")

	_, err := loop.Apply(context.Background(), "company-1", testTxn(), Feedback{
		Account:          "6210",
		SuggestedAccount: "6212",
	})
	require.Error(t, err)
}
