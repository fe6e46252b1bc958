package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/konteragroup/kontera/internal/common"
	"github.com/konteragroup/kontera/internal/model"
	"github.com/mattn/go-sqlite3"
)

const jobColumns = `id, company_id, file_name, primary_image_ref, status,
	page_refs, page_numbers, document_index, is_multi_page, split_from_original, created_at`

// SaveJobs persists a batch of jobs atomically: either every job from one
// upload is saved or none is.
func (s *SQLiteStorage) SaveJobs(ctx context.Context, jobs []model.Job) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateJobs(jobs); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range jobs {
		if err := s.saveJobTx(ctx, tx, &jobs[i]); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStorage) saveJobTx(ctx context.Context, q queryable, job *model.Job) error {
	pageRefs, err := marshalJSON(job.PageRefs, "page refs")
	if err != nil {
		return err
	}
	pageNumbers, err := marshalJSON(job.PageNumbers, "page numbers")
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		job.ID, job.CompanyID, job.FileName, job.PrimaryImageRef, string(job.Status),
		pageRefs, pageNumbers, job.DocumentIndex, job.IsMultiPage, job.SplitFromOriginal, job.CreatedAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("%w: job %s", common.ErrDuplicateEntry, job.ID)
		}
		return fmt.Errorf("failed to save job %s: %w", job.ID, err)
	}
	return nil
}

// GetJob retrieves one job by id.
func (s *SQLiteStorage) GetJob(ctx context.Context, id string) (*model.Job, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+` FROM jobs WHERE id = ?
	`, id)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// GetJobsByCompany retrieves a company's jobs, newest first.
func (s *SQLiteStorage) GetJobsByCompany(ctx context.Context, companyID string) ([]model.Job, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(companyID, "companyID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE company_id = ?
		ORDER BY created_at DESC, document_index ASC
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []model.Job
	for rows.Next() {
		job, scanErr := scanJob(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan job: %w", scanErr)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate jobs: %w", err)
	}

	return jobs, nil
}

// UpdateJobStatus moves one job to a new status.
func (s *SQLiteStorage) UpdateJobStatus(ctx context.Context, id string, status model.JobStatus) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = ? WHERE id = ?
	`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check job update: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

func scanJob(row rowScanner) (*model.Job, error) {
	var job model.Job
	var status, pageRefs, pageNumbers string

	err := row.Scan(
		&job.ID,
		&job.CompanyID,
		&job.FileName,
		&job.PrimaryImageRef,
		&status,
		&pageRefs,
		&pageNumbers,
		&job.DocumentIndex,
		&job.IsMultiPage,
		&job.SplitFromOriginal,
		&job.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Status = model.JobStatus(status)
	if err := unmarshalJSON(pageRefs, &job.PageRefs, "page refs"); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(pageNumbers, &job.PageNumbers, "page numbers"); err != nil {
		return nil, err
	}

	return &job, nil
}
