package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/konteragroup/kontera/internal/common"
	"github.com/konteragroup/kontera/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	storage, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	require.NoError(t, storage.Migrate(context.Background()))
	return storage
}

func testProfile(companyID, normalizedName string) *model.SupplierLearningProfile {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return &model.SupplierLearningProfile{
		CompanyID:          companyID,
		NormalizedName:     normalizedName,
		DisplayName:        "Telia Sverige AB",
		Category:           model.CategoryTelecom,
		DefaultAccount:     "6212",
		DefaultAccountName: "Telefon och internet",
		DefaultVatCode:     "25",
		Aliases:            []string{"telia ab"},
		AccountHistory: []model.AccountHistoryEntry{
			{Account: "6212", AccountName: "Telefon och internet", Count: 3, TotalAmount: 1350, LastUsed: now},
		},
		Patterns: model.SupplierPatterns{
			TypicalAmountMin: 450,
			TypicalAmountMax: 450,
			TypicalAmountAvg: 450,
		},
		LearningStats: model.LearningStats{
			TotalTransactions:  3,
			CorrectPredictions: 3,
			ConfidenceScore:    0.6,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	storage := setupTestStorage(t)
	require.NoError(t, storage.Migrate(context.Background()))
}

func TestSupplierProfileRoundTrip(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	profile := testProfile("company-1", "telia sverige ab")
	require.NoError(t, storage.SaveSupplierProfile(ctx, profile))

	got, err := storage.GetSupplierProfile(ctx, "company-1", "telia sverige ab")
	require.NoError(t, err)

	assert.Equal(t, profile.DisplayName, got.DisplayName)
	assert.Equal(t, profile.DefaultAccount, got.DefaultAccount)
	assert.Equal(t, profile.Aliases, got.Aliases)
	require.Len(t, got.AccountHistory, 1)
	assert.Equal(t, 3, got.AccountHistory[0].Count)
	assert.InDelta(t, 0.6, got.LearningStats.ConfidenceScore, 1e-9)
	assert.InDelta(t, 450.0, got.Patterns.TypicalAmountAvg, 1e-9)
}

func TestSupplierProfileUpsert(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	profile := testProfile("company-1", "telia sverige ab")
	require.NoError(t, storage.SaveSupplierProfile(ctx, profile))

	profile.DefaultAccount = "6210"
	profile.LearningStats.ConfidenceScore = 0.65
	require.NoError(t, storage.SaveSupplierProfile(ctx, profile))

	got, err := storage.GetSupplierProfile(ctx, "company-1", "telia sverige ab")
	require.NoError(t, err)
	assert.Equal(t, "6210", got.DefaultAccount)
	assert.InDelta(t, 0.65, got.LearningStats.ConfidenceScore, 1e-9)
}

func TestSupplierProfileNotFound(t *testing.T) {
	storage := setupTestStorage(t)

	_, err := storage.GetSupplierProfile(context.Background(), "company-1", "okänd")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSupplierProfilesScopedByCompany(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	require.NoError(t, storage.SaveSupplierProfile(ctx, testProfile("company-1", "telia sverige ab")))
	require.NoError(t, storage.SaveSupplierProfile(ctx, testProfile("company-2", "telia sverige ab")))

	profiles, err := storage.GetSupplierProfiles(ctx, "company-1")
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "company-1", profiles[0].CompanyID)
}

func TestAliasRoundTrip(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	require.NoError(t, storage.SaveAlias(ctx, "company-1", "telia ab", "telia sverige ab"))

	target, err := storage.GetAliasTarget(ctx, "company-1", "telia ab")
	require.NoError(t, err)
	assert.Equal(t, "telia sverige ab", target)

	_, err = storage.GetAliasTarget(ctx, "company-1", "okänt alias")
	assert.ErrorIs(t, err, common.ErrNotFound)

	// Re-pointing an alias is an update, not an error.
	require.NoError(t, storage.SaveAlias(ctx, "company-1", "telia ab", "telia company ab"))
	target, err = storage.GetAliasTarget(ctx, "company-1", "telia ab")
	require.NoError(t, err)
	assert.Equal(t, "telia company ab", target)
}

func TestPatternRoundTrip(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	pattern := &model.TransactionPattern{
		PatternID:   "pat-0000abcd",
		CompanyID:   "company-1",
		Pattern:     "telia sverige ab mobilabonnemang",
		Account:     "6212",
		AccountName: "Telefon och internet",
		UsageCount:  2,
		SuccessRate: 1.0,
		LastUsed:    now,
		CreatedAt:   now,
	}
	require.NoError(t, storage.SavePattern(ctx, pattern))

	got, err := storage.GetPattern(ctx, "company-1", "pat-0000abcd")
	require.NoError(t, err)
	assert.Equal(t, pattern.Pattern, got.Pattern)
	assert.Equal(t, 2, got.UsageCount)
	assert.InDelta(t, 1.0, got.SuccessRate, 1e-9)

	_, err = storage.GetPattern(ctx, "company-1", "pat-ffffffff")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestPatternsByMinSuccessRate(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	save := func(id string, rate float64, lastUsed time.Time) {
		require.NoError(t, storage.SavePattern(ctx, &model.TransactionPattern{
			PatternID:   id,
			CompanyID:   "company-1",
			Pattern:     "mönster " + id,
			Account:     "4010",
			UsageCount:  1,
			SuccessRate: rate,
			LastUsed:    lastUsed,
			CreatedAt:   now,
		}))
	}

	save("pat-00000001", 0.9, now.Add(-2*time.Hour))
	save("pat-00000002", 0.4, now.Add(-1*time.Hour))
	save("pat-00000003", 0.7, now)

	patterns, err := storage.GetPatternsByMinSuccessRate(ctx, "company-1", 0.6, 10)
	require.NoError(t, err)
	require.Len(t, patterns, 2)

	// Most recently used first.
	assert.Equal(t, "pat-00000003", patterns[0].PatternID)
	assert.Equal(t, "pat-00000001", patterns[1].PatternID)
}

func TestJobsRoundTrip(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	jobs := []model.Job{
		{
			ID:                "job-1",
			CompanyID:         "company-1",
			FileName:          "bunt_doc1_2p.pdf",
			PrimaryImageRef:   "ref-1",
			Status:            model.JobStatusReady,
			PageRefs:          []string{"ref-1", "ref-2"},
			PageNumbers:       []int{1, 2},
			DocumentIndex:     0,
			IsMultiPage:       true,
			SplitFromOriginal: true,
			CreatedAt:         now,
		},
		{
			ID:                "job-2",
			CompanyID:         "company-1",
			FileName:          "bunt_doc2.pdf",
			PrimaryImageRef:   "ref-3",
			Status:            model.JobStatusReady,
			PageRefs:          []string{"ref-3"},
			PageNumbers:       []int{3},
			DocumentIndex:     1,
			SplitFromOriginal: true,
			CreatedAt:         now,
		},
	}
	require.NoError(t, storage.SaveJobs(ctx, jobs))

	got, err := storage.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"ref-1", "ref-2"}, got.PageRefs)
	assert.Equal(t, []int{1, 2}, got.PageNumbers)
	assert.True(t, got.IsMultiPage)
	assert.True(t, got.SplitFromOriginal)

	all, err := storage.GetJobsByCompany(ctx, "company-1")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSaveJobsIsAtomic(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	ok := model.Job{
		ID:              "job-1",
		CompanyID:       "company-1",
		FileName:        "a.pdf",
		PrimaryImageRef: "ref-1",
		Status:          model.JobStatusReady,
		PageRefs:        []string{"ref-1"},
		PageNumbers:     []int{1},
		CreatedAt:       now,
	}
	require.NoError(t, storage.SaveJobs(ctx, []model.Job{ok}))

	// A duplicate id in the batch makes the whole batch fail.
	other := ok
	other.ID = "job-2"
	dup := ok
	err := storage.SaveJobs(ctx, []model.Job{other, dup})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)

	_, err = storage.GetJob(ctx, "job-2")
	assert.ErrorIs(t, err, common.ErrNotFound, "a failed batch persists none of its jobs")
}

func TestUpdateJobStatus(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	job := model.Job{
		ID:              "job-1",
		CompanyID:       "company-1",
		FileName:        "a.pdf",
		PrimaryImageRef: "ref-1",
		Status:          model.JobStatusProcessing,
		PageRefs:        []string{"ref-1"},
		PageNumbers:     []int{1},
		CreatedAt:       time.Now(),
	}
	require.NoError(t, storage.SaveJobs(ctx, []model.Job{job}))

	require.NoError(t, storage.UpdateJobStatus(ctx, "job-1", model.JobStatusFailed))
	got, err := storage.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, got.Status)

	err = storage.UpdateJobStatus(ctx, "saknas", model.JobStatusReady)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCorrectionsRoundTrip(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, account := range []string{"6210", "6212"} {
		require.NoError(t, storage.SaveCorrection(ctx, &model.CorrectionRecord{
			Timestamp:        base.Add(time.Duration(i) * time.Hour),
			CompanyID:        "company-1",
			NormalizedName:   "telia sverige ab",
			OriginalAccount:  "6211",
			CorrectedAccount: account,
		}))
	}

	records, err := storage.GetCorrections(ctx, "company-1", base)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "6210", records[0].CorrectedAccount, "oldest first")

	// The since filter excludes older records.
	records, err = storage.GetCorrections(ctx, "company-1", base.Add(30*time.Minute))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "6212", records[0].CorrectedAccount)
}

func TestValidationRejectsBadInput(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	_, err := storage.GetSupplierProfile(ctx, "", "telia")
	assert.ErrorIs(t, err, ErrEmptyString)

	err = storage.SaveSupplierProfile(ctx, nil)
	assert.ErrorIs(t, err, ErrNilParameter)

	err = storage.SaveJobs(ctx, []model.Job{})
	assert.ErrorIs(t, err, ErrEmptySlice)

	err = storage.SavePattern(ctx, &model.TransactionPattern{PatternID: "pat-1", CompanyID: "c1", SuccessRate: 1.5})
	assert.ErrorIs(t, err, ErrInvalidPattern)
}
