package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tonywei17/classroom-billing/internal/models"
)

func TestGenerate_RejectsBadRequests(t *testing.T) {
	env := newTestEnv(t)
	svc := newInvoiceServiceForTest(env)
	ctx := context.Background()

	dept := env.seedDepartment(t, "0013", "13", "川崎支部")

	_, err := svc.Generate(ctx, GenerateRequest{
		DepartmentID: dept.ID, BillingMonth: "2025/11", InvoiceType: models.InvoiceTypeBranch,
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Generate(ctx, GenerateRequest{
		DepartmentID: dept.ID, BillingMonth: "2025-11", InvoiceType: "RETAIL",
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Generate(ctx, GenerateRequest{
		DepartmentID: 999, BillingMonth: "2025-11", InvoiceType: models.InvoiceTypeBranch,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGenerate_AssemblesComponents(t *testing.T) {
	env := newTestEnv(t)
	svc := newInvoiceServiceForTest(env)
	ctx := context.Background()

	dept := env.seedDepartment(t, "0013", "13", "川崎支部")

	// Ledger: two billable classrooms, one subtotal row, one bank-transfer
	// classroom. Only the billable ones feed the branch invoice.
	env.upsertMembership(t, record("2025-11", "13001", 3, models.StandardUnitPrice))
	env.upsertMembership(t, record("2025-11", "13800", 4, models.AigranUnitPrice))
	env.upsertMembership(t, record("2025-11", "13000", 25, models.StandardUnitPrice))
	env.upsertMembership(t, record("2025-11", "13007", 5, models.AigranUnitPrice))
	env.markBankTransfer(t, "2025-11", "13007")

	orderDate, _ := time.Parse("2006-01-02", "2025-11-10")
	require.NoError(t, env.orders.Create(&models.Order{
		DepartmentID: dept.ID, OrderDate: orderDate, TotalAmount: 8000,
	}))
	env.addExpense(t, "0013", "2025-11", "教材送料", 1200, models.ExpenseStatusApproved)
	env.addExpense(t, "0013", "2025-11", "未承認経費", 9999, models.ExpenseStatusPending)

	invoice, err := svc.Generate(ctx, GenerateRequest{
		DepartmentID:     dept.ID,
		BillingMonth:     "2025-11",
		InvoiceType:      models.InvoiceTypeBranch,
		AdjustmentAmount: -500,
	})
	require.NoError(t, err)

	membership := int64(3*480 + 4*600)
	assert.Equal(t, membership, invoice.MembershipAmount)
	assert.Equal(t, int64(8000), invoice.MaterialAmount)
	assert.Equal(t, int64(1200), invoice.OtherExpensesAmount)
	assert.Equal(t, int64(-500), invoice.AdjustmentAmount)
	assert.Equal(t, int64(0), invoice.PreviousBalance)

	subtotal := membership + 8000 + 1200 - 500
	assert.Equal(t, subtotal, invoice.Subtotal)
	assert.Equal(t, subtotal*10/100, invoice.TaxAmount)
	assert.Equal(t, subtotal+subtotal*10/100, invoice.TotalAmount)

	assert.True(t, invoice.IsCurrent)
	assert.Equal(t, models.InvoiceStatusDraft, invoice.Status)
	assert.Equal(t, "202511-0001", invoice.InvoiceNumber)

	// The generation consumed the approved expense line.
	remaining, err := env.expenses.SumApprovedUninvoiced(nil, "0013", "2025-11")
	require.NoError(t, err)
	assert.Equal(t, int64(0), remaining)
}

func TestGenerate_AgencyBillsOnlyBankTransfer(t *testing.T) {
	env := newTestEnv(t)
	svc := newInvoiceServiceForTest(env)
	ctx := context.Background()

	dept := env.seedDepartment(t, "0013", "13", "川崎支部")
	env.upsertMembership(t, record("2025-11", "13001", 3, models.StandardUnitPrice))
	env.upsertMembership(t, record("2025-11", "13007", 5, models.AigranUnitPrice))
	env.markBankTransfer(t, "2025-11", "13007")

	invoice, err := svc.Generate(ctx, GenerateRequest{
		DepartmentID: dept.ID,
		BillingMonth: "2025-11",
		InvoiceType:  models.InvoiceTypeAgency,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5*600), invoice.MembershipAmount)
}

func TestGenerate_RegenerationKeepsOneCurrent(t *testing.T) {
	env := newTestEnv(t)
	svc := newInvoiceServiceForTest(env)
	ctx := context.Background()

	dept := env.seedDepartment(t, "0013", "13", "川崎支部")
	env.upsertMembership(t, record("2025-11", "13001", 3, models.StandardUnitPrice))

	first, err := svc.Generate(ctx, GenerateRequest{
		DepartmentID: dept.ID, BillingMonth: "2025-11", InvoiceType: models.InvoiceTypeBranch,
	})
	require.NoError(t, err)

	env.upsertMembership(t, record("2025-11", "13002", 2, models.StandardUnitPrice))

	second, err := svc.Generate(ctx, GenerateRequest{
		DepartmentID: dept.ID, BillingMonth: "2025-11", InvoiceType: models.InvoiceTypeBranch,
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, int64(5*480), second.MembershipAmount)

	superseded, err := svc.GetInvoice(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, superseded.IsCurrent)
	assert.Equal(t, models.InvoiceStatusSuperseded, superseded.Status)

	current, err := env.invoices.ListCurrentByMonth("2025-11")
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, second.ID, current[0].ID)

	// The regenerated invoice inherits the month slot, so its number stays.
	assert.Equal(t, first.InvoiceNumber, current[0].InvoiceNumber)
}

func TestGenerate_RegenerationKeepsConsumedExpenses(t *testing.T) {
	env := newTestEnv(t)
	svc := newInvoiceServiceForTest(env)
	ctx := context.Background()

	dept := env.seedDepartment(t, "0013", "13", "川崎支部")
	env.upsertMembership(t, record("2025-11", "13001", 3, models.StandardUnitPrice))
	env.addExpense(t, "0013", "2025-11", "教材送料", 1200, models.ExpenseStatusApproved)

	first, err := svc.Generate(ctx, GenerateRequest{
		DepartmentID: dept.ID, BillingMonth: "2025-11", InvoiceType: models.InvoiceTypeBranch,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1200), first.OtherExpensesAmount)

	// Regenerating with unchanged source data must reproduce the same
	// amounts: the line the superseded invoice consumed is billed again,
	// not dropped.
	second, err := svc.Generate(ctx, GenerateRequest{
		DepartmentID: dept.ID, BillingMonth: "2025-11", InvoiceType: models.InvoiceTypeBranch,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1200), second.OtherExpensesAmount)
	assert.Equal(t, first.Subtotal, second.Subtotal)
	assert.Equal(t, first.TotalAmount, second.TotalAmount)

	// The line now belongs to the replacement snapshot.
	lines, err := env.expenses.ListApproved("0013", "2025-11")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.NotNil(t, lines[0].InvoiceID)
	assert.Equal(t, second.ID, *lines[0].InvoiceID)
}

func TestGenerate_RegenerationAfterDuplicateDeletion(t *testing.T) {
	env := newTestEnv(t)
	svc := newInvoiceServiceForTest(env)
	ctx := context.Background()

	dept := env.seedDepartment(t, "0013", "13", "川崎支部")
	env.upsertMembership(t, record("2025-11", "13001", 3, models.StandardUnitPrice))
	keep := env.addExpense(t, "0013", "2025-11", "教材送料", 1200, models.ExpenseStatusApproved)
	drop := env.addExpense(t, "0013", "2025-11",
		"11月分口座振替会費(007) 5名×600円", -3000, models.ExpenseStatusApproved)

	_, err := svc.Generate(ctx, GenerateRequest{
		DepartmentID: dept.ID, BillingMonth: "2025-11", InvoiceType: models.InvoiceTypeBranch,
	})
	require.NoError(t, err)

	// Deleting a duplicate line and regenerating leaves exactly the
	// surviving line on the replacement snapshot.
	reconcile := newReconcileService(env)
	deleted, err := reconcile.DeleteItems(ctx, []string{formatID(drop.ID)})
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	second, err := svc.Generate(ctx, GenerateRequest{
		DepartmentID: dept.ID, BillingMonth: "2025-11", InvoiceType: models.InvoiceTypeBranch,
	})
	require.NoError(t, err)
	assert.Equal(t, keep.Amount, second.OtherExpensesAmount)
}

func TestGenerate_CarriesPreviousBalance(t *testing.T) {
	env := newTestEnv(t)
	svc := newInvoiceServiceForTest(env)
	ctx := context.Background()

	dept := env.seedDepartment(t, "0013", "13", "川崎支部")
	env.upsertMembership(t, record("2025-10", "13001", 3, models.StandardUnitPrice))

	october, err := svc.Generate(ctx, GenerateRequest{
		DepartmentID: dept.ID, BillingMonth: "2025-10", InvoiceType: models.InvoiceTypeBranch,
	})
	require.NoError(t, err)
	env.setInvoiceStatus(t, october.ID, models.InvoiceStatusPartialPaid, 200)

	env.upsertMembership(t, record("2025-11", "13001", 3, models.StandardUnitPrice))
	november, err := svc.Generate(ctx, GenerateRequest{
		DepartmentID: dept.ID, BillingMonth: "2025-11", InvoiceType: models.InvoiceTypeBranch,
	})
	require.NoError(t, err)
	assert.Equal(t, october.TotalAmount-200, november.PreviousBalance)
}

func TestGenerate_DraftBalanceDoesNotCarry(t *testing.T) {
	env := newTestEnv(t)
	svc := newInvoiceServiceForTest(env)
	ctx := context.Background()

	dept := env.seedDepartment(t, "0013", "13", "川崎支部")
	env.upsertMembership(t, record("2025-10", "13001", 3, models.StandardUnitPrice))

	_, err := svc.Generate(ctx, GenerateRequest{
		DepartmentID: dept.ID, BillingMonth: "2025-10", InvoiceType: models.InvoiceTypeBranch,
	})
	require.NoError(t, err)

	november, err := svc.Generate(ctx, GenerateRequest{
		DepartmentID: dept.ID, BillingMonth: "2025-11", InvoiceType: models.InvoiceTypeBranch,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), november.PreviousBalance)
}

func TestGenerate_RenumbersWholeMonth(t *testing.T) {
	env := newTestEnv(t)
	svc := newInvoiceServiceForTest(env)
	ctx := context.Background()

	// Generated out of store-code order on purpose: numbering follows the
	// sorted store codes of the month, not insertion order.
	later := env.seedDepartment(t, "0012", "12", "横浜支部")
	earlier := env.seedDepartment(t, "0007", "07", "品川支部")

	first, err := svc.Generate(ctx, GenerateRequest{
		DepartmentID: later.ID, BillingMonth: "2025-11", InvoiceType: models.InvoiceTypeBranch,
	})
	require.NoError(t, err)
	assert.Equal(t, "202511-0001", first.InvoiceNumber)

	second, err := svc.Generate(ctx, GenerateRequest{
		DepartmentID: earlier.ID, BillingMonth: "2025-11", InvoiceType: models.InvoiceTypeBranch,
	})
	require.NoError(t, err)
	assert.Equal(t, "202511-0001", second.InvoiceNumber)

	renumbered, err := svc.GetInvoice(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "202511-0002", renumbered.InvoiceNumber)
}

func TestGenerateMonth(t *testing.T) {
	env := newTestEnv(t)
	svc := newInvoiceServiceForTest(env)
	ctx := context.Background()

	env.seedDepartment(t, "0007", "07", "品川支部")
	env.seedDepartment(t, "0013", "13", "川崎支部")
	env.upsertMembership(t, record("2025-11", "13001", 3, models.StandardUnitPrice))

	result, err := svc.GenerateMonth(ctx, "2025-11", models.InvoiceTypeBranch)
	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 0, result.ErrorCount)
	require.Len(t, result.InvoiceIDs, 2)

	current, err := env.invoices.ListCurrentByMonth("2025-11")
	require.NoError(t, err)
	assert.Len(t, current, 2)
}

func TestGetInvoice_NotFound(t *testing.T) {
	env := newTestEnv(t)
	svc := newInvoiceServiceForTest(env)

	_, err := svc.GetInvoice(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}
