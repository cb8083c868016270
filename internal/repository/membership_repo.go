package repository

import (
	"database/sql"
	"fmt"

	"github.com/tonywei17/classroom-billing/internal/models"
	"go.uber.org/zap"
)

// MembershipRepository handles membership ledger database operations
type MembershipRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db *sql.DB, logger *zap.Logger) *MembershipRepository {
	return &MembershipRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert writes one record keyed on (billing_month, classroom_code). A
// re-import of the same month overwrites the previous values, last write wins.
func (r *MembershipRepository) Upsert(tx *sql.Tx, record *models.MembershipRecord) error {
	query := `
		INSERT INTO membership_records (
			billing_month, classroom_code, classroom_name, branch_code,
			count_age2, count_age3, count_age4, count_age5, total_count,
			unit_price, amount, is_aigran, is_bank_transfer, is_excluded, import_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(billing_month, classroom_code) DO UPDATE SET
			classroom_name = excluded.classroom_name,
			branch_code = excluded.branch_code,
			count_age2 = excluded.count_age2,
			count_age3 = excluded.count_age3,
			count_age4 = excluded.count_age4,
			count_age5 = excluded.count_age5,
			total_count = excluded.total_count,
			unit_price = excluded.unit_price,
			amount = excluded.amount,
			is_aigran = excluded.is_aigran,
			is_bank_transfer = excluded.is_bank_transfer,
			is_excluded = excluded.is_excluded,
			import_id = excluded.import_id,
			updated_at = CURRENT_TIMESTAMP
	`

	args := []interface{}{
		record.BillingMonth,
		record.ClassroomCode,
		record.ClassroomName,
		record.BranchCode,
		record.CountAge2,
		record.CountAge3,
		record.CountAge4,
		record.CountAge5,
		record.TotalCount,
		record.UnitPrice,
		record.Amount,
		record.IsAigran,
		record.IsBankTransfer,
		record.IsExcluded,
		record.ImportID,
	}

	var err error
	if tx != nil {
		_, err = tx.Exec(query, args...)
	} else {
		_, err = r.db.Exec(query, args...)
	}

	if err != nil {
		r.logger.Error("Failed to upsert membership record",
			zap.String("classroom_code", record.ClassroomCode),
			zap.Error(err))
		return fmt.Errorf("failed to upsert membership record: %w", err)
	}
	return nil
}

// MarkBankTransfer flags an existing record as paid through the direct-debit
// agency channel and excludes it from the standard branch invoice. Returns the
// number of records updated (zero when the classroom has no record yet).
func (r *MembershipRepository) MarkBankTransfer(tx *sql.Tx, billingMonth, classroomCode string) (int64, error) {
	query := `
		UPDATE membership_records
		SET is_bank_transfer = 1, is_excluded = 1, updated_at = CURRENT_TIMESTAMP
		WHERE billing_month = ? AND classroom_code = ?
	`

	var result sql.Result
	var err error
	if tx != nil {
		result, err = tx.Exec(query, billingMonth, classroomCode)
	} else {
		result, err = r.db.Exec(query, billingMonth, classroomCode)
	}

	if err != nil {
		r.logger.Error("Failed to mark bank transfer",
			zap.String("classroom_code", classroomCode),
			zap.Error(err))
		return 0, fmt.Errorf("failed to mark bank transfer: %w", err)
	}

	return result.RowsAffected()
}

// ListByMonth returns every record for a billing month, excluded rows
// included. The branch aggregator applies its own filters on read.
func (r *MembershipRepository) ListByMonth(billingMonth string) ([]*models.MembershipRecord, error) {
	query := `
		SELECT id, billing_month, classroom_code, classroom_name, branch_code,
			count_age2, count_age3, count_age4, count_age5, total_count,
			unit_price, amount, is_aigran, is_bank_transfer, is_excluded,
			import_id, created_at, updated_at
		FROM membership_records
		WHERE billing_month = ?
		ORDER BY classroom_code
	`

	rows, err := r.db.Query(query, billingMonth)
	if err != nil {
		r.logger.Error("Failed to list membership records",
			zap.String("billing_month", billingMonth),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list membership records: %w", err)
	}
	defer rows.Close()

	return scanMembershipRows(rows)
}

// ListByMonthBranch returns a branch's records for a billing month.
func (r *MembershipRepository) ListByMonthBranch(billingMonth, branchCode string) ([]*models.MembershipRecord, error) {
	query := `
		SELECT id, billing_month, classroom_code, classroom_name, branch_code,
			count_age2, count_age3, count_age4, count_age5, total_count,
			unit_price, amount, is_aigran, is_bank_transfer, is_excluded,
			import_id, created_at, updated_at
		FROM membership_records
		WHERE billing_month = ? AND branch_code = ?
		ORDER BY classroom_code
	`

	rows, err := r.db.Query(query, billingMonth, branchCode)
	if err != nil {
		r.logger.Error("Failed to list branch membership records",
			zap.String("billing_month", billingMonth),
			zap.String("branch_code", branchCode),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list branch membership records: %w", err)
	}
	defer rows.Close()

	return scanMembershipRows(rows)
}

// ListBankTransfer returns a branch's direct-debit records with members,
// the input of the duplicate reconciler and the agency invoice.
func (r *MembershipRepository) ListBankTransfer(billingMonth, branchCode string) ([]*models.MembershipRecord, error) {
	query := `
		SELECT id, billing_month, classroom_code, classroom_name, branch_code,
			count_age2, count_age3, count_age4, count_age5, total_count,
			unit_price, amount, is_aigran, is_bank_transfer, is_excluded,
			import_id, created_at, updated_at
		FROM membership_records
		WHERE billing_month = ? AND branch_code = ? AND is_bank_transfer = 1 AND total_count > 0
		ORDER BY classroom_code
	`

	rows, err := r.db.Query(query, billingMonth, branchCode)
	if err != nil {
		r.logger.Error("Failed to list bank transfer records",
			zap.String("billing_month", billingMonth),
			zap.String("branch_code", branchCode),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list bank transfer records: %w", err)
	}
	defer rows.Close()

	return scanMembershipRows(rows)
}

func scanMembershipRows(rows *sql.Rows) ([]*models.MembershipRecord, error) {
	var records []*models.MembershipRecord
	for rows.Next() {
		var rec models.MembershipRecord
		err := rows.Scan(
			&rec.ID,
			&rec.BillingMonth,
			&rec.ClassroomCode,
			&rec.ClassroomName,
			&rec.BranchCode,
			&rec.CountAge2,
			&rec.CountAge3,
			&rec.CountAge4,
			&rec.CountAge5,
			&rec.TotalCount,
			&rec.UnitPrice,
			&rec.Amount,
			&rec.IsAigran,
			&rec.IsBankTransfer,
			&rec.IsExcluded,
			&rec.ImportID,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership record: %w", err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
