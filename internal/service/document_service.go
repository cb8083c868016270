package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/tonywei17/classroom-billing/internal/document"
	"github.com/tonywei17/classroom-billing/internal/repository"
	"go.uber.org/zap"
)

// DocumentTally reports a batch document run per invoice.
type DocumentTally struct {
	BillingMonth string              `json:"billing_month,omitempty"`
	SuccessCount int                 `json:"success_count"`
	ErrorCount   int                 `json:"error_count"`
	Documents    []DocumentTallyItem `json:"documents"`
}

// DocumentTallyItem is one invoice's outcome inside a batch run.
type DocumentTallyItem struct {
	InvoiceID int64  `json:"invoice_id"`
	FileName  string `json:"file_name,omitempty"`
	Status    string `json:"status"` // ok or error
	Error     string `json:"error,omitempty"`
}

// DocumentService renders invoice documents and bundles batch runs. A single
// invoice that fails to render fails the request; inside a batch it becomes
// an error entry in the tally and its siblings continue.
type DocumentService struct {
	invoices    *repository.InvoiceRepository
	departments *repository.DepartmentRepository
	renderer    *document.Renderer
	outputDir   string
	logger      *zap.Logger
}

// NewDocumentService creates a new document service
func NewDocumentService(
	invoices *repository.InvoiceRepository,
	departments *repository.DepartmentRepository,
	renderer *document.Renderer,
	outputDir string,
	logger *zap.Logger,
) *DocumentService {
	return &DocumentService{
		invoices:    invoices,
		departments: departments,
		renderer:    renderer,
		outputDir:   outputDir,
		logger:      logger,
	}
}

// RenderInvoice renders one invoice document.
func (s *DocumentService) RenderInvoice(ctx context.Context, invoiceID int64) (string, []byte, error) {
	return s.renderOne(invoiceID)
}

// RenderMonthArchive renders every current invoice of a month into one zip.
func (s *DocumentService) RenderMonthArchive(ctx context.Context, billingMonth string) (string, []byte, *DocumentTally, error) {
	if !billingMonthPattern.MatchString(billingMonth) {
		return "", nil, nil, fmt.Errorf("%w: billing_month must be YYYY-MM", ErrValidation)
	}

	invoices, err := s.invoices.ListCurrentByMonth(billingMonth)
	if err != nil {
		return "", nil, nil, err
	}

	ids := make([]int64, 0, len(invoices))
	for _, inv := range invoices {
		ids = append(ids, inv.ID)
	}

	name, data, tally, err := s.RenderArchive(ctx, ids)
	if err != nil {
		return "", nil, nil, err
	}
	tally.BillingMonth = billingMonth
	return name, data, tally, nil
}

// RenderArchive renders an explicit invoice id list into one zip. Failed
// invoices are marked in the tally; the archive still ships the rest.
func (s *DocumentService) RenderArchive(ctx context.Context, invoiceIDs []int64) (string, []byte, *DocumentTally, error) {
	tally := &DocumentTally{}
	var entries []document.ArchiveEntry

	for _, id := range invoiceIDs {
		fileName, data, err := s.renderOne(id)
		item := DocumentTallyItem{InvoiceID: id, FileName: fileName}
		if err != nil {
			item.Status = "error"
			item.Error = err.Error()
			tally.ErrorCount++
			tally.Documents = append(tally.Documents, item)
			s.logger.Warn("Invoice document failed in batch",
				zap.Int64("invoice_id", id),
				zap.Error(err))
			continue
		}
		item.Status = "ok"
		tally.SuccessCount++
		tally.Documents = append(tally.Documents, item)
		entries = append(entries, document.ArchiveEntry{Name: fileName, Content: data})
	}

	data, err := document.BuildArchive(entries, tally)
	if err != nil {
		return "", nil, nil, err
	}

	name := fmt.Sprintf("invoices_%s.zip", uuid.NewString())
	if s.outputDir != "" {
		if err := os.MkdirAll(s.outputDir, 0755); err != nil {
			s.logger.Warn("Failed to create archive output dir", zap.String("dir", s.outputDir), zap.Error(err))
		} else if err := os.WriteFile(filepath.Join(s.outputDir, name), data, 0644); err != nil {
			s.logger.Warn("Failed to persist archive copy", zap.String("name", name), zap.Error(err))
		}
	}

	return name, data, tally, nil
}

func (s *DocumentService) renderOne(invoiceID int64) (string, []byte, error) {
	invoice, err := s.invoices.GetByID(invoiceID)
	if err != nil {
		return "", nil, err
	}
	if invoice == nil {
		return "", nil, fmt.Errorf("%w: invoice %d", ErrNotFound, invoiceID)
	}

	dept, err := s.departments.GetByID(invoice.DepartmentID)
	if err != nil {
		return "", nil, err
	}
	if dept == nil {
		return "", nil, fmt.Errorf("%w: department %d", ErrNotFound, invoice.DepartmentID)
	}

	data, err := s.renderer.Render(invoice, dept)
	if err != nil {
		return "", nil, err
	}
	return document.FileName(invoice, dept), data, nil
}
