package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tonywei17/classroom-billing/internal/billing"
	"github.com/tonywei17/classroom-billing/internal/models"
)

func newReconcileService(env *testEnv) *ReconcileService {
	return NewReconcileService(env.invoices, env.departments, env.memberships, env.expenses, env.logger)
}

func newInvoiceServiceForTest(env *testEnv) *InvoiceService {
	return NewInvoiceService(env.db, env.invoices, env.departments, env.memberships,
		env.expenses, env.orders, 10, billing.RoundPolicyFloor, env.logger)
}

func TestFindDuplicates_MatchesBySuffixToken(t *testing.T) {
	env := newTestEnv(t)
	svc := newReconcileService(env)
	ctx := context.Background()

	dept := env.seedDepartment(t, "0007", "13", "川崎支部")
	env.upsertMembership(t, record("2025-11", "13007", 5, models.AigranUnitPrice))
	env.markBankTransfer(t, "2025-11", "13007")

	// One manual line carries the suffix token, one does not, and one with
	// the token is still pending review.
	matched := env.addExpense(t, "0007", "2025-11",
		"11月分口座振替会費(007) 5名×600円", -3000, models.ExpenseStatusApproved)
	env.addExpense(t, "0007", "2025-11",
		"教材送料", 1200, models.ExpenseStatusApproved)
	env.addExpense(t, "0007", "2025-11",
		"11月分口座振替会費(007) 再計上", -3000, models.ExpenseStatusPending)

	invoice, err := newInvoiceServiceForTest(env).Generate(ctx, GenerateRequest{
		DepartmentID: dept.ID,
		BillingMonth: "2025-11",
		InvoiceType:  models.InvoiceTypeAgency,
	})
	require.NoError(t, err)

	groups, err := svc.FindDuplicates(ctx, invoice.ID)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	group := groups[0]
	assert.Equal(t, "007", group.ClassroomSuffix)
	require.Len(t, group.Items, 2)

	system := group.Items[0]
	assert.Equal(t, models.DuplicateSourceSystem, system.Source)
	assert.Equal(t, "11月分口座振替会費(007) 5名×600円", system.Description)
	assert.Equal(t, int64(-3000), system.Amount)
	assert.False(t, system.RecommendedDelete)
	assert.Contains(t, system.ItemID, models.SyntheticItemPrefix)

	manualItem := group.Items[1]
	assert.Equal(t, models.DuplicateSourceManual, manualItem.Source)
	assert.True(t, manualItem.RecommendedDelete)
	assert.Equal(t, matched.ID, mustParseID(t, manualItem.ItemID))
}

func TestFindDuplicates_NoGroupWithoutManualMatch(t *testing.T) {
	env := newTestEnv(t)
	svc := newReconcileService(env)
	ctx := context.Background()

	dept := env.seedDepartment(t, "0007", "13", "川崎支部")
	env.upsertMembership(t, record("2025-11", "13007", 5, models.AigranUnitPrice))
	env.markBankTransfer(t, "2025-11", "13007")

	invoice, err := newInvoiceServiceForTest(env).Generate(ctx, GenerateRequest{
		DepartmentID: dept.ID,
		BillingMonth: "2025-11",
		InvoiceType:  models.InvoiceTypeAgency,
	})
	require.NoError(t, err)

	groups, err := svc.FindDuplicates(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestFindDuplicates_UnknownInvoice(t *testing.T) {
	env := newTestEnv(t)
	svc := newReconcileService(env)

	_, err := svc.FindDuplicates(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteItems_RemovesOnlyManualLines(t *testing.T) {
	env := newTestEnv(t)
	svc := newReconcileService(env)

	keep := env.addExpense(t, "0007", "2025-11", "教材送料", 1200, models.ExpenseStatusApproved)
	drop := env.addExpense(t, "0007", "2025-11",
		"11月分口座振替会費(007) 5名×600円", -3000, models.ExpenseStatusApproved)

	// Synthetic ids and garbage are skipped without touching the store.
	deleted, err := svc.DeleteItems(context.Background(), []string{
		models.SyntheticItemPrefix + "42",
		"not-a-number",
		formatID(drop.ID),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	remaining, err := env.expenses.ListApproved("0007", "2025-11")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, keep.ID, remaining[0].ID)
}

func TestDeleteItems_OnlySyntheticIDs(t *testing.T) {
	env := newTestEnv(t)
	svc := newReconcileService(env)

	deleted, err := svc.DeleteItems(context.Background(), []string{
		models.SyntheticItemPrefix + "1",
		models.SyntheticItemPrefix + "2",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
}
