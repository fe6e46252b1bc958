// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/konteragroup/kontera/internal/model"
)

// Storage defines the contract for our persistence layer.
//
// Supplier profiles and patterns are keyed by (companyID, normalized key).
// Writes are last-writer-wins on the whole record; callers that need
// read-modify-write safety for a single key serialize at a higher level.
type Storage interface {
	// Supplier profile operations
	GetSupplierProfile(ctx context.Context, companyID, normalizedName string) (*model.SupplierLearningProfile, error)
	GetSupplierProfiles(ctx context.Context, companyID string) ([]model.SupplierLearningProfile, error)
	SaveSupplierProfile(ctx context.Context, profile *model.SupplierLearningProfile) error
	GetAliasTarget(ctx context.Context, companyID, alias string) (string, error)
	SaveAlias(ctx context.Context, companyID, alias, primaryName string) error

	// Pattern operations
	GetPattern(ctx context.Context, companyID, patternID string) (*model.TransactionPattern, error)
	GetPatternsByMinSuccessRate(ctx context.Context, companyID string, minRate float64, limit int) ([]model.TransactionPattern, error)
	SavePattern(ctx context.Context, pattern *model.TransactionPattern) error

	// Job operations
	SaveJobs(ctx context.Context, jobs []model.Job) error
	GetJob(ctx context.Context, id string) (*model.Job, error)
	GetJobsByCompany(ctx context.Context, companyID string) ([]model.Job, error)
	UpdateJobStatus(ctx context.Context, id string, status model.JobStatus) error

	// Correction audit operations
	SaveCorrection(ctx context.Context, record *model.CorrectionRecord) error
	GetCorrections(ctx context.Context, companyID string, since time.Time) ([]model.CorrectionRecord, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
