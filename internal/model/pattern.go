package model

import "time"

// TransactionPattern is a learned association between a normalized
// supplier+description text and a GL account, independent of supplier
// identity. Keyed by a deterministic non-cryptographic hash of the
// normalized text; hash collisions simply merge two descriptions'
// statistics, which is an accepted trade-off.
type TransactionPattern struct {
	LastUsed    time.Time
	CreatedAt   time.Time
	PatternID   string
	CompanyID   string
	Pattern     string
	Account     string
	AccountName string
	UsageCount  int
	SuccessRate float64
}
