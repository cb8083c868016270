package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/tonywei17/classroom-billing/internal/models"
	"go.uber.org/zap"
)

// ExpenseRepository handles expense line database operations
type ExpenseRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *sql.DB, logger *zap.Logger) *ExpenseRepository {
	return &ExpenseRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a manually entered expense line
func (r *ExpenseRepository) Create(line *models.ExpenseLine) error {
	query := `
		INSERT INTO expense_lines (store_code, invoice_month, entry_date, description, amount, review_status)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	status := line.ReviewStatus
	if status == "" {
		status = models.ExpenseStatusPending
	}

	result, err := r.db.Exec(query,
		line.StoreCode,
		line.InvoiceMonth,
		line.EntryDate,
		line.Description,
		line.Amount,
		status,
	)
	if err != nil {
		r.logger.Error("Failed to create expense line",
			zap.String("store_code", line.StoreCode),
			zap.Error(err))
		return fmt.Errorf("failed to create expense line: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	line.ID = id
	line.ReviewStatus = status
	return nil
}

// ListApproved returns a store's approved lines for a month, consumed or not.
// The duplicate reconciler scans these.
func (r *ExpenseRepository) ListApproved(storeCode, invoiceMonth string) ([]*models.ExpenseLine, error) {
	query := `
		SELECT id, store_code, invoice_month, entry_date, description, amount,
			review_status, invoice_id, created_at
		FROM expense_lines
		WHERE store_code = ? AND invoice_month = ? AND review_status = ?
		ORDER BY id
	`

	rows, err := r.db.Query(query, storeCode, invoiceMonth, models.ExpenseStatusApproved)
	if err != nil {
		r.logger.Error("Failed to list approved expenses",
			zap.String("store_code", storeCode),
			zap.String("invoice_month", invoiceMonth),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list approved expenses: %w", err)
	}
	defer rows.Close()

	return scanExpenseRows(rows)
}

// SumApprovedUninvoiced totals the approved lines no invoice has consumed yet.
func (r *ExpenseRepository) SumApprovedUninvoiced(tx *sql.Tx, storeCode, invoiceMonth string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM expense_lines
		WHERE store_code = ? AND invoice_month = ? AND review_status = ? AND invoice_id IS NULL
	`

	var row *sql.Row
	if tx != nil {
		row = tx.QueryRow(query, storeCode, invoiceMonth, models.ExpenseStatusApproved)
	} else {
		row = r.db.QueryRow(query, storeCode, invoiceMonth, models.ExpenseStatusApproved)
	}

	var total int64
	if err := row.Scan(&total); err != nil {
		r.logger.Error("Failed to sum approved expenses",
			zap.String("store_code", storeCode),
			zap.String("invoice_month", invoiceMonth),
			zap.Error(err))
		return 0, fmt.Errorf("failed to sum approved expenses: %w", err)
	}
	return total, nil
}

// Release detaches a store's lines from the invoice that consumed them.
// Regeneration releases before recomputing, so the replacement snapshot picks
// the lines up again instead of billing them as zero.
func (r *ExpenseRepository) Release(tx *sql.Tx, storeCode, invoiceMonth string) error {
	query := `
		UPDATE expense_lines
		SET invoice_id = NULL
		WHERE store_code = ? AND invoice_month = ? AND invoice_id IS NOT NULL
	`

	var err error
	if tx != nil {
		_, err = tx.Exec(query, storeCode, invoiceMonth)
	} else {
		_, err = r.db.Exec(query, storeCode, invoiceMonth)
	}
	if err != nil {
		r.logger.Error("Failed to release invoiced expenses",
			zap.String("store_code", storeCode),
			zap.String("invoice_month", invoiceMonth),
			zap.Error(err))
		return fmt.Errorf("failed to release invoiced expenses: %w", err)
	}
	return nil
}

// MarkInvoiced stamps lines with the invoice that consumed them.
func (r *ExpenseRepository) MarkInvoiced(tx *sql.Tx, storeCode, invoiceMonth string, invoiceID int64) error {
	query := `
		UPDATE expense_lines
		SET invoice_id = ?
		WHERE store_code = ? AND invoice_month = ? AND review_status = ? AND invoice_id IS NULL
	`

	var err error
	if tx != nil {
		_, err = tx.Exec(query, invoiceID, storeCode, invoiceMonth, models.ExpenseStatusApproved)
	} else {
		_, err = r.db.Exec(query, invoiceID, storeCode, invoiceMonth, models.ExpenseStatusApproved)
	}
	if err != nil {
		r.logger.Error("Failed to mark expenses invoiced",
			zap.Int64("invoice_id", invoiceID),
			zap.Error(err))
		return fmt.Errorf("failed to mark expenses invoiced: %w", err)
	}
	return nil
}

// DeleteByIDs removes expense lines by id and returns how many went away.
// Ids with no matching row simply do not count.
func (r *ExpenseRepository) DeleteByIDs(ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	query := fmt.Sprintf("DELETE FROM expense_lines WHERE id IN (%s)", placeholders)

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	result, err := r.db.Exec(query, args...)
	if err != nil {
		r.logger.Error("Failed to delete expense lines", zap.Error(err))
		return 0, fmt.Errorf("failed to delete expense lines: %w", err)
	}

	return result.RowsAffected()
}

func scanExpenseRows(rows *sql.Rows) ([]*models.ExpenseLine, error) {
	var lines []*models.ExpenseLine
	for rows.Next() {
		var line models.ExpenseLine
		var entryDate sql.NullTime
		var invoiceID sql.NullInt64

		err := rows.Scan(
			&line.ID,
			&line.StoreCode,
			&line.InvoiceMonth,
			&entryDate,
			&line.Description,
			&line.Amount,
			&line.ReviewStatus,
			&invoiceID,
			&line.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense line: %w", err)
		}

		if entryDate.Valid {
			line.EntryDate = &entryDate.Time
		}
		if invoiceID.Valid {
			line.InvoiceID = &invoiceID.Int64
		}

		lines = append(lines, &line)
	}
	return lines, rows.Err()
}
