package models

import "time"

// Invoice types. A branch invoice bills the standard channel; an agency
// invoice bills the bank-transfer (direct debit) channel.
const (
	InvoiceTypeBranch = "BRANCH"
	InvoiceTypeAgency = "AGENCY"
)

// Invoice status constants.
const (
	InvoiceStatusDraft       = "DRAFT"
	InvoiceStatusSent        = "SENT"
	InvoiceStatusPaid        = "PAID"
	InvoiceStatusPartialPaid = "PARTIAL_PAID"
	InvoiceStatusOverdue     = "OVERDUE"
	InvoiceStatusSuperseded  = "SUPERSEDED"
)

// Invoice is a frozen snapshot of one department's bill for one month. All
// amounts are integer yen. Regeneration supersedes the previous snapshot; an
// invoice row is never edited after generation.
type Invoice struct {
	ID                   int64     `json:"id"`
	DepartmentID         int64     `json:"department_id"`
	BillingMonth         string    `json:"billing_month"`
	InvoiceType          string    `json:"invoice_type"`
	PreviousBalance      int64     `json:"previous_balance"`
	MembershipAmount     int64     `json:"membership_amount"`
	MaterialAmount       int64     `json:"material_amount"`
	OtherExpensesAmount  int64     `json:"other_expenses_amount"`
	AdjustmentAmount     int64     `json:"adjustment_amount"`
	NonTaxableAmount     int64     `json:"non_taxable_amount"`
	MaterialReturnAmount int64     `json:"material_return_amount"`
	Subtotal             int64     `json:"subtotal"`
	TaxAmount            int64     `json:"tax_amount"`
	TotalAmount          int64     `json:"total_amount"`
	InvoiceNumber        string    `json:"invoice_number"`
	IsCurrent            bool      `json:"is_current"`
	Status               string    `json:"status"`
	PaidAmount           int64     `json:"paid_amount"`
	GeneratedAt          time.Time `json:"generated_at"`
}

// Outstanding returns the unpaid remainder carried into later invoices.
func (i *Invoice) Outstanding() int64 {
	return i.TotalAmount - i.PaidAmount
}

// Department is the invoice recipient, joining the store code used by expense
// lines and orders to the branch code used by membership records.
type Department struct {
	ID         int64     `json:"id"`
	StoreCode  string    `json:"store_code"`
	BranchCode string    `json:"branch_code"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
}

// Order is the aggregate the assembler consumes for material sales. The
// catalog and cart that produce it live outside this service.
type Order struct {
	ID           int64     `json:"id"`
	DepartmentID int64     `json:"department_id"`
	OrderDate    time.Time `json:"order_date"`
	TotalAmount  int64     `json:"total_amount"`
	Status       string    `json:"status"`
}
