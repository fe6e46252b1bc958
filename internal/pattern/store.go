// Package pattern learns associations between normalized transaction
// descriptions and GL accounts, independent of supplier identity.
package pattern

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/konteragroup/kontera/internal/common"
	"github.com/konteragroup/kontera/internal/model"
	"github.com/konteragroup/kontera/internal/similarity"
)

const (
	// minMatchSuccessRate filters out patterns that corrections have
	// discredited.
	minMatchSuccessRate = 0.6
	// matchSimilarityThreshold is the edit-distance similarity needed when
	// neither text contains the other.
	matchSimilarityThreshold = 0.7
	// matchCandidateLimit bounds how many stored patterns one match scans.
	matchCandidateLimit = 50
)

// PatternStorage is the slice of the persistence layer the pattern store
// needs. service.Storage satisfies it.
type PatternStorage interface {
	GetPattern(ctx context.Context, companyID, patternID string) (*model.TransactionPattern, error)
	GetPatternsByMinSuccessRate(ctx context.Context, companyID string, minRate float64, limit int) ([]model.TransactionPattern, error)
	SavePattern(ctx context.Context, pattern *model.TransactionPattern) error
}

// Store provides pattern matching and learning.
type Store struct {
	storage PatternStorage
	logger  *slog.Logger
	now     func() time.Time
	mu      sync.Mutex
}

// NewStore creates a pattern store.
func NewStore(storage PatternStorage, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		storage: storage,
		logger:  logger,
		now:     time.Now,
	}
}

// PatternID computes the deterministic id for a normalized text. The hash
// is non-cryptographic and bounded; distinct texts can collide, in which
// case their statistics merge. That trade-off is accepted: a collision
// biases usage counts, it never corrupts an invariant.
func PatternID(normalized string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalized))
	return fmt.Sprintf("pat-%08x", h.Sum32())
}

// normalizedKey builds the canonical text a pattern is keyed by.
func normalizedKey(supplierName, description string) string {
	return similarity.Normalize(strings.TrimSpace(supplierName + " " + description))
}

// Match returns the first stored pattern (success rate >= 0.6) whose text
// is a substring of the input's normalized text or vice versa, or whose
// similarity is >= 0.7. First match wins, not best match.
func (s *Store) Match(ctx context.Context, companyID, supplierName, description string) (*model.TransactionPattern, error) {
	normalized := normalizedKey(supplierName, description)
	if normalized == "" {
		return nil, nil
	}

	candidates, err := s.storage.GetPatternsByMinSuccessRate(ctx, companyID, minMatchSuccessRate, matchCandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to query patterns: %w", err)
	}

	for i := range candidates {
		p := &candidates[i]
		if strings.Contains(normalized, p.Pattern) || strings.Contains(p.Pattern, normalized) {
			return p, nil
		}
		if similarity.Score(normalized, p.Pattern) >= matchSimilarityThreshold {
			return p, nil
		}
	}

	return nil, nil
}

// Learn records the outcome of one transaction against its pattern. An
// existing pattern's success rate becomes the running weighted average
// (old*n + hit)/(n+1) where hit is 0 for a correction and 1 otherwise; a
// new pattern starts at 1.0 (approval) or 0.5 (correction).
func (s *Store) Learn(ctx context.Context, companyID string, txn model.Transaction, account, accountName string, wasCorrection bool) (*model.TransactionPattern, error) {
	normalized := normalizedKey(txn.SupplierName, txn.Description)
	if normalized == "" {
		return nil, fmt.Errorf("cannot learn a pattern from an empty description")
	}

	// Pattern ids collide across descriptions; a single writer lock keeps
	// the read-modify-write cycle consistent within this process.
	s.mu.Lock()
	defer s.mu.Unlock()

	id := PatternID(normalized)
	now := s.now()

	hit := 1.0
	if wasCorrection {
		hit = 0.0
	}

	existing, err := s.storage.GetPattern(ctx, companyID, id)
	switch {
	case err == nil:
		n := float64(existing.UsageCount)
		existing.SuccessRate = (existing.SuccessRate*n + hit) / (n + 1)
		existing.UsageCount++
		existing.Account = account
		existing.AccountName = accountName
		existing.LastUsed = now

		if err := s.storage.SavePattern(ctx, existing); err != nil {
			return nil, fmt.Errorf("failed to save pattern: %w", err)
		}
		return existing, nil

	case errors.Is(err, common.ErrNotFound):
		rate := 1.0
		if wasCorrection {
			rate = 0.5
		}
		created := &model.TransactionPattern{
			PatternID:   id,
			CompanyID:   companyID,
			Pattern:     normalized,
			Account:     account,
			AccountName: accountName,
			UsageCount:  1,
			SuccessRate: rate,
			LastUsed:    now,
			CreatedAt:   now,
		}

		if err := s.storage.SavePattern(ctx, created); err != nil {
			return nil, fmt.Errorf("failed to save pattern: %w", err)
		}

		s.logger.Debug("pattern created",
			"company_id", companyID,
			"pattern_id", id,
			"account", account,
			"success_rate", rate)

		return created, nil

	default:
		return nil, fmt.Errorf("failed to get pattern: %w", err)
	}
}
