package document

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tonywei17/classroom-billing/internal/models"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func testInvoice() *models.Invoice {
	return &models.Invoice{
		ID:               7,
		BillingMonth:     "2025-11",
		InvoiceNumber:    "202511-0007",
		PreviousBalance:  1000,
		MembershipAmount: 3360,
		MaterialAmount:   8000,
		Subtotal:         12360,
		TaxAmount:        1236,
		TotalAmount:      13596,
	}
}

func testDepartment() *models.Department {
	return &models.Department{ID: 1, StoreCode: "0013", BranchCode: "13", Name: "川崎支部"}
}

func TestRender_CarriesSnapshotAmounts(t *testing.T) {
	r := NewRenderer("アイグラン本部", "広島県広島市", zap.NewNop())

	data, err := r.Render(testInvoice(), testDepartment())
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	sheet := f.GetSheetName(0)

	title, err := f.GetCellValue(sheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "請求書", title)

	issuer, err := f.GetCellValue(sheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "アイグラン本部", issuer)

	number, err := f.GetCellValue(sheet, "B5")
	require.NoError(t, err)
	assert.Equal(t, "202511-0007", number)

	recipient, err := f.GetCellValue(sheet, "B7")
	require.NoError(t, err)
	assert.Equal(t, "川崎支部 (0013)", recipient)

	total, err := f.GetCellValue(sheet, "B19")
	require.NoError(t, err)
	assert.Equal(t, "13596", total)
}

func TestFileName(t *testing.T) {
	inv := testInvoice()
	dept := testDepartment()
	assert.Equal(t, "invoice_202511-0007_0013.xlsx", FileName(inv, dept))

	inv.InvoiceNumber = ""
	assert.Equal(t, "invoice_7_0013.xlsx", FileName(inv, dept))
}
