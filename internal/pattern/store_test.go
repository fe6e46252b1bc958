package pattern

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/konteragroup/kontera/internal/common"
	"github.com/konteragroup/kontera/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memPatternStorage is an in-memory PatternStorage for tests.
type memPatternStorage struct {
	patterns map[string]*model.TransactionPattern
	mu       sync.Mutex
}

func newMemPatternStorage() *memPatternStorage {
	return &memPatternStorage{patterns: make(map[string]*model.TransactionPattern)}
}

func (m *memPatternStorage) GetPattern(_ context.Context, companyID, patternID string) (*model.TransactionPattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patterns[companyID+"/"+patternID]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPatternStorage) GetPatternsByMinSuccessRate(_ context.Context, companyID string, minRate float64, limit int) ([]model.TransactionPattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.TransactionPattern
	for _, p := range m.patterns {
		if p.CompanyID == companyID && p.SuccessRate >= minRate {
			out = append(out, *p)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memPatternStorage) SavePattern(_ context.Context, pattern *model.TransactionPattern) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *pattern
	m.patterns[pattern.CompanyID+"/"+pattern.PatternID] = &cp
	return nil
}

func newTestStore() (*Store, *memPatternStorage) {
	storage := newMemPatternStorage()
	store := NewStore(storage, slog.Default())
	return store, storage
}

func txn(supplier, description string) model.Transaction {
	return model.Transaction{
		SupplierName: supplier,
		Description:  description,
		Amount:       100,
		Date:         time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestPatternIDDeterministic(t *testing.T) {
	a := PatternID("telia sverige ab mobilabonnemang")
	b := PatternID("telia sverige ab mobilabonnemang")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, PatternID("något helt annat"))

	// Bounded: fixed "pat-" prefix plus eight hex digits.
	assert.Len(t, a, 12)
	assert.Contains(t, a, "pat-")
}

func TestLearnCreatesPattern(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	p, err := store.Learn(ctx, "company-1", txn("Telia Sverige AB", "Mobilabonnemang"), "6212", "Telefon och internet", false)
	require.NoError(t, err)

	assert.Equal(t, 1, p.UsageCount)
	assert.InDelta(t, 1.0, p.SuccessRate, 1e-9)
	assert.Equal(t, "6212", p.Account)
	assert.Equal(t, "telia sverige ab mobilabonnemang", p.Pattern)
}

func TestLearnCreatesPatternFromCorrection(t *testing.T) {
	store, _ := newTestStore()

	p, err := store.Learn(context.Background(), "company-1", txn("Okänd AB", "Diverse"), "4010", "Inköp", true)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, p.SuccessRate, 1e-9)
	assert.Equal(t, 1, p.UsageCount)
}

func TestLearnRunningAverage(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()
	tx := txn("Telia Sverige AB", "Mobilabonnemang")

	// Two approvals then one correction: (1*2 + 0) / 3.
	_, err := store.Learn(ctx, "company-1", tx, "6212", "Telefon", false)
	require.NoError(t, err)
	_, err = store.Learn(ctx, "company-1", tx, "6212", "Telefon", false)
	require.NoError(t, err)
	p, err := store.Learn(ctx, "company-1", tx, "6210", "Telekommunikation", true)
	require.NoError(t, err)

	assert.Equal(t, 3, p.UsageCount)
	assert.InDelta(t, 2.0/3.0, p.SuccessRate, 1e-9)
	assert.Equal(t, "6210", p.Account, "pattern follows the latest approved account")
}

func TestLearnCollisionsMergeStatistics(t *testing.T) {
	store, storage := newTestStore()
	ctx := context.Background()

	p1, err := store.Learn(ctx, "company-1", txn("Telia", "Abonnemang"), "6212", "Telefon", false)
	require.NoError(t, err)

	// Force a second description onto the same pattern id by storing it
	// under the colliding key, then learning against it.
	collided := *p1
	collided.Pattern = "en annan beskrivning"
	require.NoError(t, storage.SavePattern(ctx, &collided))

	p2, err := store.Learn(ctx, "company-1", txn("Telia", "Abonnemang"), "6212", "Telefon", false)
	require.NoError(t, err)

	assert.Equal(t, p1.PatternID, p2.PatternID)
	assert.Equal(t, 2, p2.UsageCount, "colliding descriptions merge into one statistic")
}

func TestMatchSubstring(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	_, err := store.Learn(ctx, "company-1", txn("Telia Sverige AB", "Mobilabonnemang"), "6212", "Telefon", false)
	require.NoError(t, err)

	// The stored pattern text is contained in the longer query.
	got, err := store.Match(ctx, "company-1", "Telia Sverige AB", "Mobilabonnemang och surfpott extra")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "6212", got.Account)
}

func TestMatchSimilarity(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	_, err := store.Learn(ctx, "company-1", txn("Telia Sverige AB", "Mobilabonnemang mars"), "6212", "Telefon", false)
	require.NoError(t, err)

	// One month token differs; well above the 0.7 similarity threshold.
	got, err := store.Match(ctx, "company-1", "Telia Sverige AB", "Mobilabonnemang april")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "6212", got.Account)
}

func TestMatchRespectsSuccessRateFloor(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()
	tx := txn("Osäker Leverantör AB", "Blandade varor")

	// One approval followed by three corrections: rate drops to 0.25.
	_, err := store.Learn(ctx, "company-1", tx, "4010", "Inköp", false)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = store.Learn(ctx, "company-1", tx, "4010", "Inköp", true)
		require.NoError(t, err)
	}

	got, err := store.Match(ctx, "company-1", tx.SupplierName, tx.Description)
	require.NoError(t, err)
	assert.Nil(t, got, "patterns below the success-rate floor must not match")
}

func TestMatchNoPatterns(t *testing.T) {
	store, _ := newTestStore()

	got, err := store.Match(context.Background(), "company-1", "Ny Leverantör", "Första fakturan")
	require.NoError(t, err)
	assert.Nil(t, got)
}
