package service

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tonywei17/classroom-billing/internal/document"
	"github.com/tonywei17/classroom-billing/internal/models"
)

func newDocumentService(env *testEnv, outputDir string) *DocumentService {
	renderer := document.NewRenderer("アイグラン本部", "広島県広島市", env.logger)
	return NewDocumentService(env.invoices, env.departments, renderer, outputDir, env.logger)
}

func TestRenderInvoice(t *testing.T) {
	env := newTestEnv(t)
	svc := newDocumentService(env, "")
	ctx := context.Background()

	dept := env.seedDepartment(t, "0013", "13", "川崎支部")
	env.upsertMembership(t, record("2025-11", "13001", 3, models.StandardUnitPrice))

	invoice, err := newInvoiceServiceForTest(env).Generate(ctx, GenerateRequest{
		DepartmentID: dept.ID, BillingMonth: "2025-11", InvoiceType: models.InvoiceTypeBranch,
	})
	require.NoError(t, err)

	name, data, err := svc.RenderInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, "invoice_202511-0001_0013.xlsx", name)
	assert.NotEmpty(t, data)

	_, _, err = svc.RenderInvoice(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRenderArchive_FailOpen(t *testing.T) {
	env := newTestEnv(t)
	outputDir := t.TempDir()
	svc := newDocumentService(env, outputDir)
	ctx := context.Background()

	dept := env.seedDepartment(t, "0013", "13", "川崎支部")
	invoice, err := newInvoiceServiceForTest(env).Generate(ctx, GenerateRequest{
		DepartmentID: dept.ID, BillingMonth: "2025-11", InvoiceType: models.InvoiceTypeBranch,
	})
	require.NoError(t, err)

	// One good invoice, one unknown id: the unknown becomes a tally error
	// and the archive still ships.
	name, data, tally, err := svc.RenderArchive(ctx, []int64{invoice.ID, 999})
	require.NoError(t, err)
	assert.Equal(t, 1, tally.SuccessCount)
	assert.Equal(t, 1, tally.ErrorCount)
	require.Len(t, tally.Documents, 2)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	// One rendered document plus the summary manifest.
	assert.Len(t, zr.File, 2)

	// A copy lands in the output directory under the same name.
	_, err = os.Stat(filepath.Join(outputDir, name))
	assert.NoError(t, err)
}

func TestRenderArchive_PersistFailureIsBestEffort(t *testing.T) {
	env := newTestEnv(t)
	// A plain file where the output dir should be makes MkdirAll fail.
	blocked := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(blocked, []byte("x"), 0644))
	svc := newDocumentService(env, blocked)
	ctx := context.Background()

	dept := env.seedDepartment(t, "0013", "13", "川崎支部")
	invoice, err := newInvoiceServiceForTest(env).Generate(ctx, GenerateRequest{
		DepartmentID: dept.ID, BillingMonth: "2025-11", InvoiceType: models.InvoiceTypeBranch,
	})
	require.NoError(t, err)

	_, data, tally, err := svc.RenderArchive(ctx, []int64{invoice.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, tally.SuccessCount)
	assert.NotEmpty(t, data)
}

func TestRenderMonthArchive(t *testing.T) {
	env := newTestEnv(t)
	svc := newDocumentService(env, "")
	ctx := context.Background()

	_, _, _, err := svc.RenderMonthArchive(ctx, "202511")
	assert.ErrorIs(t, err, ErrValidation)

	dept := env.seedDepartment(t, "0013", "13", "川崎支部")
	_, err2 := newInvoiceServiceForTest(env).Generate(ctx, GenerateRequest{
		DepartmentID: dept.ID, BillingMonth: "2025-11", InvoiceType: models.InvoiceTypeBranch,
	})
	require.NoError(t, err2)

	_, data, tally, err := svc.RenderMonthArchive(ctx, "2025-11")
	require.NoError(t, err)
	assert.Equal(t, "2025-11", tally.BillingMonth)
	assert.Equal(t, 1, tally.SuccessCount)
	assert.NotEmpty(t, data)
}
