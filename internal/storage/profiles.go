package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/konteragroup/kontera/internal/common"
	"github.com/konteragroup/kontera/internal/model"
)

const supplierProfileColumns = `company_id, normalized_name, display_name, category,
	default_account, default_account_name, default_vat_code, default_cost_center,
	aliases, account_history, patterns, learning_stats, created_at, updated_at`

// GetSupplierProfile retrieves one profile by normalized name.
func (s *SQLiteStorage) GetSupplierProfile(ctx context.Context, companyID, normalizedName string) (*model.SupplierLearningProfile, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(companyID, "companyID"); err != nil {
		return nil, err
	}
	if err := validateString(normalizedName, "normalizedName"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+supplierProfileColumns+`
		FROM supplier_profiles
		WHERE company_id = ? AND normalized_name = ?
	`, companyID, normalizedName)

	profile, err := scanSupplierProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get supplier profile: %w", err)
	}
	return profile, nil
}

// GetSupplierProfiles retrieves all profiles for one company, most
// recently updated first.
func (s *SQLiteStorage) GetSupplierProfiles(ctx context.Context, companyID string) ([]model.SupplierLearningProfile, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(companyID, "companyID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+supplierProfileColumns+`
		FROM supplier_profiles
		WHERE company_id = ?
		ORDER BY updated_at DESC
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query supplier profiles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var profiles []model.SupplierLearningProfile
	for rows.Next() {
		profile, scanErr := scanSupplierProfile(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan supplier profile: %w", scanErr)
		}
		profiles = append(profiles, *profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate supplier profiles: %w", err)
	}

	return profiles, nil
}

// SaveSupplierProfile inserts or replaces one profile. Writes are
// last-writer-wins on the whole record.
func (s *SQLiteStorage) SaveSupplierProfile(ctx context.Context, profile *model.SupplierLearningProfile) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateProfile(profile); err != nil {
		return err
	}

	aliases, err := marshalJSON(profile.Aliases, "aliases")
	if err != nil {
		return err
	}
	history, err := marshalJSON(profile.AccountHistory, "account history")
	if err != nil {
		return err
	}
	patterns, err := marshalJSON(profile.Patterns, "patterns")
	if err != nil {
		return err
	}
	stats, err := marshalJSON(profile.LearningStats, "learning stats")
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO supplier_profiles (`+supplierProfileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(company_id, normalized_name) DO UPDATE SET
			display_name = excluded.display_name,
			category = excluded.category,
			default_account = excluded.default_account,
			default_account_name = excluded.default_account_name,
			default_vat_code = excluded.default_vat_code,
			default_cost_center = excluded.default_cost_center,
			aliases = excluded.aliases,
			account_history = excluded.account_history,
			patterns = excluded.patterns,
			learning_stats = excluded.learning_stats,
			updated_at = excluded.updated_at
	`,
		profile.CompanyID, profile.NormalizedName, profile.DisplayName, string(profile.Category),
		profile.DefaultAccount, profile.DefaultAccountName, profile.DefaultVatCode, profile.DefaultCostCenter,
		aliases, history, patterns, stats, profile.CreatedAt, profile.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save supplier profile: %w", err)
	}

	return nil
}

// GetAliasTarget resolves an alias to the primary normalized name it
// points at.
func (s *SQLiteStorage) GetAliasTarget(ctx context.Context, companyID, alias string) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateString(companyID, "companyID"); err != nil {
		return "", err
	}
	if err := validateString(alias, "alias"); err != nil {
		return "", err
	}

	var target string
	err := s.db.QueryRowContext(ctx, `
		SELECT primary_name FROM supplier_aliases
		WHERE company_id = ? AND alias = ?
	`, companyID, alias).Scan(&target)
	if errors.Is(err, sql.ErrNoRows) {
		return "", common.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get alias target: %w", err)
	}
	return target, nil
}

// SaveAlias inserts or updates one alias index entry.
func (s *SQLiteStorage) SaveAlias(ctx context.Context, companyID, alias, primaryName string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(companyID, "companyID"); err != nil {
		return err
	}
	if err := validateString(alias, "alias"); err != nil {
		return err
	}
	if err := validateString(primaryName, "primaryName"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO supplier_aliases (company_id, alias, primary_name)
		VALUES (?, ?, ?)
		ON CONFLICT(company_id, alias) DO UPDATE SET
			primary_name = excluded.primary_name
	`, companyID, alias, primaryName)
	if err != nil {
		return fmt.Errorf("failed to save alias: %w", err)
	}
	return nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSupplierProfile(row rowScanner) (*model.SupplierLearningProfile, error) {
	var profile model.SupplierLearningProfile
	var category, aliases, history, patterns, stats string
	var defaultAccount, defaultAccountName, defaultVatCode, defaultCostCenter sql.NullString

	err := row.Scan(
		&profile.CompanyID,
		&profile.NormalizedName,
		&profile.DisplayName,
		&category,
		&defaultAccount,
		&defaultAccountName,
		&defaultVatCode,
		&defaultCostCenter,
		&aliases,
		&history,
		&patterns,
		&stats,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	profile.Category = model.SupplierCategory(category)
	profile.DefaultAccount = defaultAccount.String
	profile.DefaultAccountName = defaultAccountName.String
	profile.DefaultVatCode = defaultVatCode.String
	profile.DefaultCostCenter = defaultCostCenter.String

	if err := unmarshalJSON(aliases, &profile.Aliases, "aliases"); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(history, &profile.AccountHistory, "account history"); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(patterns, &profile.Patterns, "patterns"); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(stats, &profile.LearningStats, "learning stats"); err != nil {
		return nil, err
	}

	return &profile, nil
}
