package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/konteragroup/kontera/internal/common"
	"github.com/konteragroup/kontera/internal/model"
)

// GetPattern retrieves one pattern by id.
func (s *SQLiteStorage) GetPattern(ctx context.Context, companyID, patternID string) (*model.TransactionPattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(companyID, "companyID"); err != nil {
		return nil, err
	}
	if err := validateString(patternID, "patternID"); err != nil {
		return nil, err
	}

	var p model.TransactionPattern
	var accountName sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT company_id, pattern_id, pattern, account, account_name,
			usage_count, success_rate, last_used, created_at
		FROM transaction_patterns
		WHERE company_id = ? AND pattern_id = ?
	`, companyID, patternID).Scan(
		&p.CompanyID,
		&p.PatternID,
		&p.Pattern,
		&p.Account,
		&accountName,
		&p.UsageCount,
		&p.SuccessRate,
		&p.LastUsed,
		&p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pattern: %w", err)
	}

	p.AccountName = accountName.String
	return &p, nil
}

// GetPatternsByMinSuccessRate retrieves up to limit patterns at or above
// the given success rate, most recently used first.
func (s *SQLiteStorage) GetPatternsByMinSuccessRate(ctx context.Context, companyID string, minRate float64, limit int) ([]model.TransactionPattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(companyID, "companyID"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT company_id, pattern_id, pattern, account, account_name,
			usage_count, success_rate, last_used, created_at
		FROM transaction_patterns
		WHERE company_id = ? AND success_rate >= ?
		ORDER BY last_used DESC
		LIMIT ?
	`, companyID, minRate, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var patterns []model.TransactionPattern
	for rows.Next() {
		var p model.TransactionPattern
		var accountName sql.NullString
		if scanErr := rows.Scan(
			&p.CompanyID,
			&p.PatternID,
			&p.Pattern,
			&p.Account,
			&accountName,
			&p.UsageCount,
			&p.SuccessRate,
			&p.LastUsed,
			&p.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan pattern: %w", scanErr)
		}
		p.AccountName = accountName.String
		patterns = append(patterns, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate patterns: %w", err)
	}

	return patterns, nil
}

// SavePattern inserts or replaces one pattern.
func (s *SQLiteStorage) SavePattern(ctx context.Context, pattern *model.TransactionPattern) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePattern(pattern); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transaction_patterns (company_id, pattern_id, pattern, account,
			account_name, usage_count, success_rate, last_used, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(company_id, pattern_id) DO UPDATE SET
			pattern = excluded.pattern,
			account = excluded.account,
			account_name = excluded.account_name,
			usage_count = excluded.usage_count,
			success_rate = excluded.success_rate,
			last_used = excluded.last_used
	`,
		pattern.CompanyID, pattern.PatternID, pattern.Pattern, pattern.Account,
		pattern.AccountName, pattern.UsageCount, pattern.SuccessRate, pattern.LastUsed, pattern.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save pattern: %w", err)
	}
	return nil
}
