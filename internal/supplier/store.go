// Package supplier maintains per-company supplier learning profiles:
// which accounts a supplier's transactions have historically been coded
// to, alias resolution, and a confidence score that grows with confirmed
// predictions and decays on corrections.
package supplier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/konteragroup/kontera/internal/category"
	"github.com/konteragroup/kontera/internal/common"
	"github.com/konteragroup/kontera/internal/model"
	"github.com/konteragroup/kontera/internal/similarity"
)

// ProfileStorage is the slice of the persistence layer the supplier store
// needs. service.Storage satisfies it.
type ProfileStorage interface {
	GetSupplierProfile(ctx context.Context, companyID, normalizedName string) (*model.SupplierLearningProfile, error)
	GetSupplierProfiles(ctx context.Context, companyID string) ([]model.SupplierLearningProfile, error)
	SaveSupplierProfile(ctx context.Context, profile *model.SupplierLearningProfile) error
	GetAliasTarget(ctx context.Context, companyID, alias string) (string, error)
	SaveAlias(ctx context.Context, companyID, alias, primaryName string) error
}

const (
	// confidenceStep is the fixed nudge applied per confirmed prediction.
	confidenceStep = 0.05
	// confidenceCap bounds supplier confidence.
	confidenceCap = 0.95
	// initialConfidence is assigned when a profile is first created, before
	// the first transaction's own step is applied. A supplier's first
	// confirmed transaction therefore lands at 0.5.
	initialConfidence = 0.45
)

// Approval carries the account decision being recorded for a transaction.
type Approval struct {
	Account       string
	AccountName   string
	VatCode       string
	CostCenter    string
	WasCorrection bool
}

// Store provides read and learn access to supplier profiles. All writes
// for a given (company, supplier) key are serialized through a per-key
// mutex so concurrent corrections cannot lose updates in-process; writers
// arriving through an alias take the primary profile's lock.
type Store struct {
	storage ProfileStorage
	logger  *slog.Logger
	locks   *keyedMutex
	now     func() time.Time
}

// NewStore creates a supplier profile store.
func NewStore(storage ProfileStorage, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		storage: storage,
		logger:  logger,
		locks:   newKeyedMutex(),
		now:     time.Now,
	}
}

// Get looks up a profile by supplier name: first directly by normalized
// name, then through the alias index. Returns (nil, nil) when the supplier
// is unknown.
func (s *Store) Get(ctx context.Context, companyID, supplierName string) (*model.SupplierLearningProfile, error) {
	normalized := similarity.Normalize(supplierName)
	if normalized == "" {
		return nil, nil
	}
	return s.resolve(ctx, companyID, normalized)
}

func (s *Store) resolve(ctx context.Context, companyID, normalized string) (*model.SupplierLearningProfile, error) {
	profile, err := s.storage.GetSupplierProfile(ctx, companyID, normalized)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to get supplier profile: %w", err)
	}

	target, err := s.storage.GetAliasTarget(ctx, companyID, normalized)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve supplier alias: %w", err)
	}

	profile, err = s.storage.GetSupplierProfile(ctx, companyID, target)
	if errors.Is(err, common.ErrNotFound) {
		// Dangling alias entry; treat the supplier as unknown.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get aliased supplier profile: %w", err)
	}
	return profile, nil
}

// lockResolved acquires the write lock for whichever profile the
// normalized name resolves to. Alias-resolved writes land on the primary
// profile, so when resolution crosses an alias the lock is moved to the
// primary key and resolution is repeated under it; otherwise writers
// arriving through different names would serialize on different keys.
func (s *Store) lockResolved(ctx context.Context, companyID, normalized string) (*model.SupplierLearningProfile, func(), error) {
	unlock := s.locks.lock(companyID + "/" + normalized)

	profile, err := s.resolve(ctx, companyID, normalized)
	if err != nil {
		unlock()
		return nil, nil, err
	}
	if profile == nil || profile.NormalizedName == normalized {
		return profile, unlock, nil
	}

	primary := profile.NormalizedName
	unlock()
	unlock = s.locks.lock(companyID + "/" + primary)

	profile, err = s.resolve(ctx, companyID, normalized)
	if err != nil {
		unlock()
		return nil, nil, err
	}
	return profile, unlock, nil
}

// FindSimilar scans the company's profiles and returns the first whose
// normalized name shares at least two tokens with the query (or one token
// longer than five characters), or whose alias set has a substring match.
// First match wins; this is a deliberate latency trade-off, not best-match.
func (s *Store) FindSimilar(ctx context.Context, companyID, supplierName string) (*model.SupplierLearningProfile, error) {
	normalized := similarity.Normalize(supplierName)
	if normalized == "" {
		return nil, nil
	}
	queryTokens := similarity.Tokens(normalized)

	profiles, err := s.storage.GetSupplierProfiles(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list supplier profiles: %w", err)
	}

	for i := range profiles {
		p := &profiles[i]
		if p.NormalizedName == normalized {
			continue
		}

		count, longest := similarity.SharedTokens(queryTokens, similarity.Tokens(p.NormalizedName))
		if count >= 2 || (count == 1 && longest > 5) {
			return p, nil
		}

		for _, alias := range p.Aliases {
			if strings.Contains(alias, normalized) || strings.Contains(normalized, alias) {
				return p, nil
			}
		}
	}

	return nil, nil
}

// Record persists the account decision for one transaction: it creates the
// profile on first sight of the supplier, accumulates the account history,
// re-ranks it by count, and updates the learning statistics.
func (s *Store) Record(ctx context.Context, companyID string, txn model.Transaction, approval Approval) (*model.SupplierLearningProfile, error) {
	normalized := similarity.Normalize(txn.SupplierName)
	if normalized == "" {
		return nil, fmt.Errorf("cannot record transaction without a supplier name")
	}

	profile, unlock, err := s.lockResolved(ctx, companyID, normalized)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.now()

	if profile == nil {
		profile = &model.SupplierLearningProfile{
			CompanyID:      companyID,
			NormalizedName: normalized,
			DisplayName:    strings.TrimSpace(txn.SupplierName),
			Category:       category.Classify(txn.SupplierName, txn.Description),
			CreatedAt:      now,
			LearningStats: model.LearningStats{
				ConfidenceScore: initialConfidence,
			},
		}
	}

	s.applyToHistory(profile, txn, approval, now)

	profile.LearningStats.TotalTransactions++
	if approval.WasCorrection {
		profile.LearningStats.Corrections++
		profile.LearningStats.LastCorrectionAt = &now
	} else {
		profile.LearningStats.CorrectPredictions++
		profile.LearningStats.ConfidenceScore += confidenceStep
		if profile.LearningStats.ConfidenceScore > confidenceCap {
			profile.LearningStats.ConfidenceScore = confidenceCap
		}
	}

	recomputeTypicalAmounts(profile)
	profile.UpdatedAt = now

	if err := s.storage.SaveSupplierProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to save supplier profile: %w", err)
	}

	s.logger.Debug("supplier profile recorded",
		"company_id", companyID,
		"supplier", profile.NormalizedName,
		"account", approval.Account,
		"was_correction", approval.WasCorrection,
		"confidence", profile.LearningStats.ConfidenceScore)

	return profile, nil
}

// applyToHistory increments the matching history entry or appends a new
// one, then re-sorts by count descending and resets the profile defaults
// to the top entry.
func (s *Store) applyToHistory(profile *model.SupplierLearningProfile, txn model.Transaction, approval Approval, now time.Time) {
	found := false
	for i := range profile.AccountHistory {
		entry := &profile.AccountHistory[i]
		if entry.Account != approval.Account {
			continue
		}
		entry.Count++
		entry.TotalAmount += txn.Amount
		entry.LastUsed = now
		if approval.WasCorrection {
			entry.WasCorrection = true
		}
		if approval.VatCode != "" {
			entry.VatCode = approval.VatCode
		}
		if approval.CostCenter != "" {
			entry.CostCenter = approval.CostCenter
		}
		found = true
		break
	}

	if !found {
		profile.AccountHistory = append(profile.AccountHistory, model.AccountHistoryEntry{
			Account:       approval.Account,
			AccountName:   approval.AccountName,
			Count:         1,
			TotalAmount:   txn.Amount,
			LastUsed:      now,
			VatCode:       approval.VatCode,
			CostCenter:    approval.CostCenter,
			WasCorrection: approval.WasCorrection,
		})
	}

	sort.SliceStable(profile.AccountHistory, func(i, j int) bool {
		return profile.AccountHistory[i].Count > profile.AccountHistory[j].Count
	})

	top := profile.TopHistoryEntry()
	profile.DefaultAccount = top.Account
	profile.DefaultAccountName = top.AccountName
	if top.VatCode != "" {
		profile.DefaultVatCode = top.VatCode
	}
	if top.CostCenter != "" {
		profile.DefaultCostCenter = top.CostCenter
	}
}

// recomputeTypicalAmounts derives the typical amount range and average
// from the accumulated history.
func recomputeTypicalAmounts(profile *model.SupplierLearningProfile) {
	var totalAmount float64
	var totalCount int
	var minAvg, maxAvg float64
	first := true

	for _, entry := range profile.AccountHistory {
		if entry.Count == 0 {
			continue
		}
		avg := entry.TotalAmount / float64(entry.Count)
		if first || avg < minAvg {
			minAvg = avg
		}
		if first || avg > maxAvg {
			maxAvg = avg
		}
		first = false
		totalAmount += entry.TotalAmount
		totalCount += entry.Count
	}

	if totalCount == 0 {
		return
	}

	profile.Patterns.TypicalAmountMin = minAvg
	profile.Patterns.TypicalAmountMax = maxAvg
	profile.Patterns.TypicalAmountAvg = totalAmount / float64(totalCount)
}

// AddAlias registers an alternative name for an existing supplier and
// writes the alias index entry pointing back at the primary profile.
func (s *Store) AddAlias(ctx context.Context, companyID, primaryName, alias string) error {
	primary := similarity.Normalize(primaryName)
	normalizedAlias := similarity.Normalize(alias)
	if primary == "" || normalizedAlias == "" {
		return fmt.Errorf("alias and primary supplier name must be non-empty")
	}
	if primary == normalizedAlias {
		return nil
	}

	unlock := s.locks.lock(companyID + "/" + primary)
	defer unlock()

	profile, err := s.storage.GetSupplierProfile(ctx, companyID, primary)
	if err != nil {
		return fmt.Errorf("failed to get supplier profile for alias: %w", err)
	}

	for _, existing := range profile.Aliases {
		if existing == normalizedAlias {
			return nil
		}
	}

	profile.Aliases = append(profile.Aliases, normalizedAlias)
	profile.UpdatedAt = s.now()

	if err := s.storage.SaveSupplierProfile(ctx, profile); err != nil {
		return fmt.Errorf("failed to save supplier profile: %w", err)
	}
	if err := s.storage.SaveAlias(ctx, companyID, normalizedAlias, primary); err != nil {
		return fmt.Errorf("failed to save alias index entry: %w", err)
	}

	return nil
}

// DecayConfidence multiplies the supplier's confidence score by factor.
// Called by the learning loop when a correction is recorded.
func (s *Store) DecayConfidence(ctx context.Context, companyID, supplierName string, factor float64) error {
	normalized := similarity.Normalize(supplierName)
	if normalized == "" {
		return fmt.Errorf("cannot decay confidence without a supplier name")
	}

	profile, unlock, err := s.lockResolved(ctx, companyID, normalized)
	if err != nil {
		return err
	}
	defer unlock()

	if profile == nil {
		return common.ErrNotFound
	}

	profile.LearningStats.ConfidenceScore *= factor
	profile.UpdatedAt = s.now()

	return s.storage.SaveSupplierProfile(ctx, profile)
}
