package models

import "time"

// Expense review status constants.
const (
	ExpenseStatusPending  = "PENDING"
	ExpenseStatusApproved = "APPROVED"
	ExpenseStatusRejected = "REJECTED"
)

// ExpenseLine is a manually entered or imported non-membership charge tied to
// a store and invoice month. Once an invoice consumes it, InvoiceID is set and
// the line stops appearing in new invoices.
type ExpenseLine struct {
	ID           int64      `json:"id"`
	StoreCode    string     `json:"store_code"`
	InvoiceMonth string     `json:"invoice_month"` // YYYY-MM
	EntryDate    *time.Time `json:"entry_date,omitempty"`
	Description  string     `json:"description"`
	Amount       int64      `json:"amount"`
	ReviewStatus string     `json:"review_status"`
	InvoiceID    *int64     `json:"invoice_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
