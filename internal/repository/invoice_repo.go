package repository

import (
	"database/sql"
	"fmt"

	"github.com/tonywei17/classroom-billing/internal/models"
	"go.uber.org/zap"
)

// InvoiceRepository handles invoice database operations. Invoices are
// append-only snapshots; the only updates ever issued are the supersede
// transition and renumbering.
type InvoiceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *sql.DB, logger *zap.Logger) *InvoiceRepository {
	return &InvoiceRepository{
		db:     db,
		logger: logger,
	}
}

// Supersede retires the current invoice for a department and month. Runs
// inside the same transaction as the replacing Insert so the partial unique
// index never sees two current rows.
func (r *InvoiceRepository) Supersede(tx *sql.Tx, departmentID int64, billingMonth string) error {
	query := `
		UPDATE invoices
		SET is_current = 0, status = ?
		WHERE department_id = ? AND billing_month = ? AND is_current = 1
	`

	var err error
	if tx != nil {
		_, err = tx.Exec(query, models.InvoiceStatusSuperseded, departmentID, billingMonth)
	} else {
		_, err = r.db.Exec(query, models.InvoiceStatusSuperseded, departmentID, billingMonth)
	}
	if err != nil {
		r.logger.Error("Failed to supersede invoice",
			zap.Int64("department_id", departmentID),
			zap.String("billing_month", billingMonth),
			zap.Error(err))
		return fmt.Errorf("failed to supersede invoice: %w", err)
	}
	return nil
}

// Insert writes a new current invoice snapshot
func (r *InvoiceRepository) Insert(tx *sql.Tx, invoice *models.Invoice) error {
	query := `
		INSERT INTO invoices (
			department_id, billing_month, invoice_type, previous_balance,
			membership_amount, material_amount, other_expenses_amount,
			adjustment_amount, non_taxable_amount, material_return_amount,
			subtotal, tax_amount, total_amount, invoice_number, is_current,
			status, paid_amount
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
	`

	status := invoice.Status
	if status == "" {
		status = models.InvoiceStatusDraft
	}

	args := []interface{}{
		invoice.DepartmentID,
		invoice.BillingMonth,
		invoice.InvoiceType,
		invoice.PreviousBalance,
		invoice.MembershipAmount,
		invoice.MaterialAmount,
		invoice.OtherExpensesAmount,
		invoice.AdjustmentAmount,
		invoice.NonTaxableAmount,
		invoice.MaterialReturnAmount,
		invoice.Subtotal,
		invoice.TaxAmount,
		invoice.TotalAmount,
		invoice.InvoiceNumber,
		status,
		invoice.PaidAmount,
	}

	var result sql.Result
	var err error
	if tx != nil {
		result, err = tx.Exec(query, args...)
	} else {
		result, err = r.db.Exec(query, args...)
	}
	if err != nil {
		r.logger.Error("Failed to insert invoice",
			zap.Int64("department_id", invoice.DepartmentID),
			zap.String("billing_month", invoice.BillingMonth),
			zap.Error(err))
		return fmt.Errorf("failed to insert invoice: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	invoice.ID = id
	invoice.IsCurrent = true
	invoice.Status = status
	return nil
}

// GetByID retrieves an invoice, nil when absent
func (r *InvoiceRepository) GetByID(id int64) (*models.Invoice, error) {
	query := invoiceSelect + ` WHERE id = ?`

	row := r.db.QueryRow(query, id)
	invoice, err := scanInvoiceRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get invoice", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return invoice, nil
}

// PreviousBalance sums the unpaid remainder of the department's earlier
// invoices that went out and were not settled in full.
func (r *InvoiceRepository) PreviousBalance(departmentID int64, billingMonth string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(total_amount - paid_amount), 0)
		FROM invoices
		WHERE department_id = ? AND billing_month < ? AND status IN (?, ?, ?)
	`

	var balance int64
	err := r.db.QueryRow(query, departmentID, billingMonth,
		models.InvoiceStatusSent,
		models.InvoiceStatusOverdue,
		models.InvoiceStatusPartialPaid,
	).Scan(&balance)
	if err != nil {
		r.logger.Error("Failed to compute previous balance",
			zap.Int64("department_id", departmentID),
			zap.String("billing_month", billingMonth),
			zap.Error(err))
		return 0, fmt.Errorf("failed to compute previous balance: %w", err)
	}
	return balance, nil
}

// ListCurrentByMonth returns the current invoices of a billing month
func (r *InvoiceRepository) ListCurrentByMonth(billingMonth string) ([]*models.Invoice, error) {
	query := invoiceSelect + ` WHERE billing_month = ? AND is_current = 1 ORDER BY id`

	rows, err := r.db.Query(query, billingMonth)
	if err != nil {
		r.logger.Error("Failed to list invoices",
			zap.String("billing_month", billingMonth),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		invoice, err := scanInvoiceRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, invoice)
	}
	return invoices, rows.Err()
}

// InvoiceStore pairs a current invoice with its department's store code for
// the numbering allocator.
type InvoiceStore struct {
	InvoiceID int64
	StoreCode string
}

// StoreCodesForMonth returns the store codes holding a current invoice in the
// month, the input set of the numbering allocator.
func (r *InvoiceRepository) StoreCodesForMonth(billingMonth string) ([]InvoiceStore, error) {
	query := `
		SELECT i.id, d.store_code
		FROM invoices i
		JOIN departments d ON d.id = i.department_id
		WHERE i.billing_month = ? AND i.is_current = 1
	`

	rows, err := r.db.Query(query, billingMonth)
	if err != nil {
		r.logger.Error("Failed to list invoice store codes",
			zap.String("billing_month", billingMonth),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list invoice store codes: %w", err)
	}
	defer rows.Close()

	var pairs []InvoiceStore
	for rows.Next() {
		var p InvoiceStore
		if err := rows.Scan(&p.InvoiceID, &p.StoreCode); err != nil {
			return nil, fmt.Errorf("failed to scan invoice store code: %w", err)
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

// UpdateNumber assigns an invoice its sequential number
func (r *InvoiceRepository) UpdateNumber(tx *sql.Tx, invoiceID int64, number string) error {
	query := `UPDATE invoices SET invoice_number = ? WHERE id = ?`

	var err error
	if tx != nil {
		_, err = tx.Exec(query, number, invoiceID)
	} else {
		_, err = r.db.Exec(query, number, invoiceID)
	}
	if err != nil {
		r.logger.Error("Failed to update invoice number", zap.Int64("invoice_id", invoiceID), zap.Error(err))
		return fmt.Errorf("failed to update invoice number: %w", err)
	}
	return nil
}

const invoiceSelect = `
	SELECT id, department_id, billing_month, invoice_type, previous_balance,
		membership_amount, material_amount, other_expenses_amount,
		adjustment_amount, non_taxable_amount, material_return_amount,
		subtotal, tax_amount, total_amount, invoice_number, is_current,
		status, paid_amount, generated_at
	FROM invoices`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInvoiceRow(row rowScanner) (*models.Invoice, error) {
	var inv models.Invoice
	err := row.Scan(
		&inv.ID,
		&inv.DepartmentID,
		&inv.BillingMonth,
		&inv.InvoiceType,
		&inv.PreviousBalance,
		&inv.MembershipAmount,
		&inv.MaterialAmount,
		&inv.OtherExpensesAmount,
		&inv.AdjustmentAmount,
		&inv.NonTaxableAmount,
		&inv.MaterialReturnAmount,
		&inv.Subtotal,
		&inv.TaxAmount,
		&inv.TotalAmount,
		&inv.InvoiceNumber,
		&inv.IsCurrent,
		&inv.Status,
		&inv.PaidAmount,
		&inv.GeneratedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}
