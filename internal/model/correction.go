package model

import "time"

// CorrectionRecord is an append-only audit entry written whenever a human
// overrides a suggested account, kept for later accuracy analysis.
type CorrectionRecord struct {
	Timestamp            time.Time
	CompanyID            string
	NormalizedName       string
	OriginalAccount      string
	CorrectedAccount     string
	CorrectedAccountName string
}
