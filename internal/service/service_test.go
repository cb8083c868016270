package service

import (
	"database/sql"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tonywei17/classroom-billing/internal/models"
	"github.com/tonywei17/classroom-billing/internal/repository"
	"github.com/tonywei17/classroom-billing/pkg/database"
	"go.uber.org/zap"
)

// testEnv wires the repositories against an in-memory database with the real
// schema applied, so service tests exercise the same SQL as production.
type testEnv struct {
	db          *database.DB
	batches     *repository.ImportBatchRepository
	memberships *repository.MembershipRepository
	expenses    *repository.ExpenseRepository
	departments *repository.DepartmentRepository
	orders      *repository.OrderRepository
	invoices    *repository.InvoiceRepository
	logger      *zap.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := zap.NewNop()
	db, err := database.New(database.Config{
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	schema, err := os.ReadFile(filepath.Join("..", "..", "migrations", "001_initial_schema.sql"))
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	return &testEnv{
		db:          db,
		batches:     repository.NewImportBatchRepository(db.DB, logger),
		memberships: repository.NewMembershipRepository(db.DB, logger),
		expenses:    repository.NewExpenseRepository(db.DB, logger),
		departments: repository.NewDepartmentRepository(db.DB, logger),
		orders:      repository.NewOrderRepository(db.DB, logger),
		invoices:    repository.NewInvoiceRepository(db.DB, logger),
		logger:      logger,
	}
}

func (e *testEnv) seedDepartment(t *testing.T, storeCode, branchCode, name string) *models.Department {
	t.Helper()
	dept := &models.Department{StoreCode: storeCode, BranchCode: branchCode, Name: name}
	require.NoError(t, e.departments.Create(dept))
	return dept
}

func (e *testEnv) upsertMembership(t *testing.T, rec *models.MembershipRecord) {
	t.Helper()
	err := e.db.WithTransaction(func(tx *sql.Tx) error {
		return e.memberships.Upsert(tx, rec)
	})
	require.NoError(t, err)
}

func (e *testEnv) markBankTransfer(t *testing.T, billingMonth, classroomCode string) {
	t.Helper()
	err := e.db.WithTransaction(func(tx *sql.Tx) error {
		_, err := e.memberships.MarkBankTransfer(tx, billingMonth, classroomCode)
		return err
	})
	require.NoError(t, err)
}

func (e *testEnv) addExpense(t *testing.T, storeCode, invoiceMonth, description string, amount int64, status string) *models.ExpenseLine {
	t.Helper()
	line := &models.ExpenseLine{
		StoreCode:    storeCode,
		InvoiceMonth: invoiceMonth,
		Description:  description,
		Amount:       amount,
		ReviewStatus: status,
	}
	require.NoError(t, e.expenses.Create(line))
	return line
}

func (e *testEnv) setInvoiceStatus(t *testing.T, invoiceID int64, status string, paidAmount int64) {
	t.Helper()
	_, err := e.db.Exec(`UPDATE invoices SET status = ?, paid_amount = ? WHERE id = ?`, status, paidAmount, invoiceID)
	require.NoError(t, err)
}

func mustParseID(t *testing.T, raw string) int64 {
	t.Helper()
	id, err := strconv.ParseInt(raw, 10, 64)
	require.NoError(t, err)
	return id
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// record builds a standard membership row the way the headcount parser would.
func record(billingMonth, classroomCode string, totalCount int, unitPrice int64) *models.MembershipRecord {
	rec := &models.MembershipRecord{
		BillingMonth:  billingMonth,
		ClassroomCode: classroomCode,
		BranchCode:    models.BranchCodeOf(classroomCode),
		TotalCount:    totalCount,
		UnitPrice:     unitPrice,
		Amount:        int64(totalCount) * unitPrice,
	}
	if models.IsBranchSubtotalCode(classroomCode) {
		rec.IsExcluded = true
	}
	if models.IsAigranCode(classroomCode) {
		rec.IsAigran = true
	}
	return rec
}
