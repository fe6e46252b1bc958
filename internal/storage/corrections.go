package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/konteragroup/kontera/internal/model"
)

// SaveCorrection appends one correction audit record.
func (s *SQLiteStorage) SaveCorrection(ctx context.Context, record *model.CorrectionRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCorrection(record); err != nil {
		return err
	}

	timestamp := record.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO corrections (company_id, normalized_name, original_account,
			corrected_account, corrected_account_name, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		record.CompanyID, record.NormalizedName, record.OriginalAccount,
		record.CorrectedAccount, record.CorrectedAccountName, timestamp)
	if err != nil {
		return fmt.Errorf("failed to save correction: %w", err)
	}
	return nil
}

// GetCorrections retrieves a company's corrections recorded at or after
// since, oldest first.
func (s *SQLiteStorage) GetCorrections(ctx context.Context, companyID string, since time.Time) ([]model.CorrectionRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(companyID, "companyID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT company_id, normalized_name, original_account,
			corrected_account, corrected_account_name, timestamp
		FROM corrections
		WHERE company_id = ? AND timestamp >= ?
		ORDER BY timestamp ASC
	`, companyID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query corrections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.CorrectionRecord
	for rows.Next() {
		var r model.CorrectionRecord
		var originalAccount, correctedAccountName sql.NullString
		if scanErr := rows.Scan(
			&r.CompanyID,
			&r.NormalizedName,
			&originalAccount,
			&r.CorrectedAccount,
			&correctedAccountName,
			&r.Timestamp,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan correction: %w", scanErr)
		}
		r.OriginalAccount = originalAccount.String
		r.CorrectedAccountName = correctedAccountName.String
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate corrections: %w", err)
	}

	return records, nil
}
