package model

import "time"

// JobStatus tracks where a job is in downstream processing.
type JobStatus string

// Job status constants.
const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusReady      JobStatus = "ready"
	JobStatusFailed     JobStatus = "failed"
)

// Job is one unit of accounting work derived from one or more pages that
// are believed to represent a single source document. Identity fields are
// immutable once created; only Status is owned by downstream processing.
type Job struct {
	CreatedAt         time.Time
	ID                string
	CompanyID         string
	FileName          string
	PrimaryImageRef   string
	Status            JobStatus
	PageRefs          []string
	PageNumbers       []int
	DocumentIndex     int
	IsMultiPage       bool
	SplitFromOriginal bool
}
