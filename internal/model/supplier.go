package model

import "time"

// SupplierCategory is a coarse business category for a supplier, used to
// pick a default account when nothing has been learned yet.
type SupplierCategory string

// Supplier category constants.
const (
	CategoryTelecom        SupplierCategory = "TELECOM"
	CategorySoftware       SupplierCategory = "SOFTWARE"
	CategoryTravel         SupplierCategory = "TRAVEL"
	CategoryFuel           SupplierCategory = "FUEL"
	CategoryOfficeSupplies SupplierCategory = "OFFICE_SUPPLIES"
	CategoryFood           SupplierCategory = "FOOD"
	CategoryUtilities      SupplierCategory = "UTILITIES"
	CategoryInsurance      SupplierCategory = "INSURANCE"
	CategoryMarketing      SupplierCategory = "MARKETING"
	CategoryConsulting     SupplierCategory = "CONSULTING"
	CategoryEquipment      SupplierCategory = "EQUIPMENT"
	CategoryOther          SupplierCategory = "OTHER"
)

// AccountHistoryEntry accumulates usage of one account for one supplier.
// Count and TotalAmount only ever grow.
type AccountHistoryEntry struct {
	LastUsed      time.Time
	Account       string
	AccountName   string
	VatCode       string
	CostCenter    string
	Count         int
	TotalAmount   float64
	WasCorrection bool
}

// SupplierPatterns holds the learned shape of a supplier's transactions.
type SupplierPatterns struct {
	PaymentTerms     string
	Frequency        string
	TypicalAmountMin float64
	TypicalAmountMax float64
	TypicalAmountAvg float64
}

// LearningStats tracks prediction quality for one supplier.
// ConfidenceScore stays within [0, 0.95].
type LearningStats struct {
	LastCorrectionAt   *time.Time
	TotalTransactions  int
	CorrectPredictions int
	Corrections        int
	ConfidenceScore    float64
}

// SupplierLearningProfile is the persistent learning record for one
// (company, normalized supplier name) pair. Profiles are created on first
// sight of a supplier and never deleted; history is append-only.
//
// Invariant: DefaultAccount always equals the account of the
// AccountHistory entry with the highest Count.
type SupplierLearningProfile struct {
	CreatedAt          time.Time
	UpdatedAt          time.Time
	CompanyID          string
	NormalizedName     string
	DisplayName        string
	DefaultAccount     string
	DefaultAccountName string
	DefaultVatCode     string
	DefaultCostCenter  string
	Category           SupplierCategory
	Aliases            []string
	AccountHistory     []AccountHistoryEntry
	Patterns           SupplierPatterns
	LearningStats      LearningStats
}

// TopHistoryEntry returns the history entry with the highest count, or nil
// for an empty history. History is kept sorted by count descending, so
// this is the first entry.
func (p *SupplierLearningProfile) TopHistoryEntry() *AccountHistoryEntry {
	if len(p.AccountHistory) == 0 {
		return nil
	}
	return &p.AccountHistory[0]
}
