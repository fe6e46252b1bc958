package model

import "time"

// Transaction is the accounting view of a single document: who was paid,
// for what, and how much. It is the input to account prediction and the
// unit the learning loop receives feedback about.
type Transaction struct {
	Date         time.Time
	ID           string
	JobID        string
	SupplierName string
	Description  string
	Amount       float64
}
