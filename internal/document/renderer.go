// Package document turns assembled invoices into paginated workbook
// documents and bundles batch runs into archives.
package document

import (
	"bytes"
	"fmt"

	"github.com/tonywei17/classroom-billing/internal/models"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Renderer renders one invoice snapshot into an xlsx document.
type Renderer struct {
	issuerName    string
	issuerAddress string
	logger        *zap.Logger
}

// NewRenderer creates a new invoice renderer
func NewRenderer(issuerName, issuerAddress string, logger *zap.Logger) *Renderer {
	return &Renderer{
		issuerName:    issuerName,
		issuerAddress: issuerAddress,
		logger:        logger,
	}
}

// Render produces the workbook bytes for an invoice. The document carries the
// frozen snapshot amounts only; it never recomputes from source data.
func (r *Renderer) Render(invoice *models.Invoice, dept *models.Department) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	r.setCell(f, sheet, "A1", "請求書")
	r.setCell(f, sheet, "A2", r.issuerName)
	r.setCell(f, sheet, "A3", r.issuerAddress)

	r.setCell(f, sheet, "A5", "請求番号")
	r.setCell(f, sheet, "B5", invoice.InvoiceNumber)
	r.setCell(f, sheet, "A6", "請求月")
	r.setCell(f, sheet, "B6", invoice.BillingMonth)
	r.setCell(f, sheet, "A7", "宛先")
	r.setCell(f, sheet, "B7", fmt.Sprintf("%s (%s)", dept.Name, dept.StoreCode))

	lines := []struct {
		label  string
		amount int64
	}{
		{"前月繰越", invoice.PreviousBalance},
		{"会費", invoice.MembershipAmount},
		{"教材費", invoice.MaterialAmount},
		{"その他経費", invoice.OtherExpensesAmount},
		{"調整額", invoice.AdjustmentAmount},
		{"非課税額", -invoice.NonTaxableAmount},
		{"教材返品", -invoice.MaterialReturnAmount},
	}

	row := 9
	for _, line := range lines {
		r.setCell(f, sheet, fmt.Sprintf("A%d", row), line.label)
		r.setCell(f, sheet, fmt.Sprintf("B%d", row), line.amount)
		row++
	}

	row++
	r.setCell(f, sheet, fmt.Sprintf("A%d", row), "小計")
	r.setCell(f, sheet, fmt.Sprintf("B%d", row), invoice.Subtotal)
	row++
	r.setCell(f, sheet, fmt.Sprintf("A%d", row), "消費税")
	r.setCell(f, sheet, fmt.Sprintf("B%d", row), invoice.TaxAmount)
	row++
	r.setCell(f, sheet, fmt.Sprintf("A%d", row), "合計")
	r.setCell(f, sheet, fmt.Sprintf("B%d", row), invoice.TotalAmount)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	r.logger.Debug("Invoice document rendered",
		zap.Int64("invoice_id", invoice.ID),
		zap.Int("bytes", buf.Len()))

	return buf.Bytes(), nil
}

// FileName is the document name for an invoice.
func FileName(invoice *models.Invoice, dept *models.Department) string {
	if invoice.InvoiceNumber != "" {
		return fmt.Sprintf("invoice_%s_%s.xlsx", invoice.InvoiceNumber, dept.StoreCode)
	}
	return fmt.Sprintf("invoice_%d_%s.xlsx", invoice.ID, dept.StoreCode)
}

func (r *Renderer) setCell(f *excelize.File, sheet, cell string, value interface{}) {
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		r.logger.Warn("Failed to set cell value",
			zap.String("sheet", sheet),
			zap.String("cell", cell),
			zap.Error(err))
	}
}
