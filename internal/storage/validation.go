package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/konteragroup/kontera/internal/model"
)

// Validation errors.
var (
	ErrNilContext        = errors.New("context cannot be nil")
	ErrEmptyString       = errors.New("string parameter cannot be empty")
	ErrNilParameter      = errors.New("parameter cannot be nil")
	ErrEmptySlice        = errors.New("slice cannot be empty")
	ErrInvalidProfile    = errors.New("invalid supplier profile")
	ErrInvalidPattern    = errors.New("invalid transaction pattern")
	ErrInvalidJob        = errors.New("invalid job")
	ErrInvalidCorrection = errors.New("invalid correction record")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateProfile validates a supplier learning profile.
func validateProfile(profile *model.SupplierLearningProfile) error {
	if profile == nil {
		return fmt.Errorf("%w: profile", ErrNilParameter)
	}
	if strings.TrimSpace(profile.CompanyID) == "" {
		return fmt.Errorf("%w: missing company ID", ErrInvalidProfile)
	}
	if strings.TrimSpace(profile.NormalizedName) == "" {
		return fmt.Errorf("%w: missing normalized name", ErrInvalidProfile)
	}
	if profile.LearningStats.ConfidenceScore < 0 || profile.LearningStats.ConfidenceScore > 1 {
		return fmt.Errorf("%w: confidence must be between 0 and 1", ErrInvalidProfile)
	}
	return nil
}

// validatePattern validates a transaction pattern.
func validatePattern(pattern *model.TransactionPattern) error {
	if pattern == nil {
		return fmt.Errorf("%w: pattern", ErrNilParameter)
	}
	if strings.TrimSpace(pattern.PatternID) == "" {
		return fmt.Errorf("%w: missing pattern ID", ErrInvalidPattern)
	}
	if strings.TrimSpace(pattern.CompanyID) == "" {
		return fmt.Errorf("%w: missing company ID", ErrInvalidPattern)
	}
	if pattern.SuccessRate < 0 || pattern.SuccessRate > 1 {
		return fmt.Errorf("%w: success rate must be between 0 and 1", ErrInvalidPattern)
	}
	return nil
}

// validateJobs validates a slice of jobs.
func validateJobs(jobs []model.Job) error {
	if jobs == nil {
		return fmt.Errorf("%w: jobs", ErrNilParameter)
	}
	if len(jobs) == 0 {
		return fmt.Errorf("%w: jobs", ErrEmptySlice)
	}
	for i := range jobs {
		if err := validateJob(&jobs[i]); err != nil {
			return fmt.Errorf("job at index %d: %w", i, err)
		}
	}
	return nil
}

// validateJob validates a single job.
func validateJob(job *model.Job) error {
	if job.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidJob)
	}
	if job.CompanyID == "" {
		return fmt.Errorf("%w: missing company ID", ErrInvalidJob)
	}
	if len(job.PageRefs) == 0 {
		return fmt.Errorf("%w: missing page refs", ErrInvalidJob)
	}
	return nil
}

// validateCorrection validates a correction record.
func validateCorrection(record *model.CorrectionRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record", ErrNilParameter)
	}
	if strings.TrimSpace(record.CompanyID) == "" {
		return fmt.Errorf("%w: missing company ID", ErrInvalidCorrection)
	}
	if strings.TrimSpace(record.CorrectedAccount) == "" {
		return fmt.Errorf("%w: missing corrected account", ErrInvalidCorrection)
	}
	return nil
}
