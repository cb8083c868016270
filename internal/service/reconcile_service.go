package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tonywei17/classroom-billing/internal/billing"
	"github.com/tonywei17/classroom-billing/internal/models"
	"github.com/tonywei17/classroom-billing/internal/repository"
	"go.uber.org/zap"
)

// ReconcileService detects double-billed bank-transfer charges: the same
// deduction can exist once as a system-derived line computed from the ledger
// and once as a manually imported expense line describing it in free text.
// Correlation is by the parenthesized classroom-suffix substring the canonical
// description embeds. That coupling is brittle on purpose; the imported ledger
// carries no stable key to match on.
type ReconcileService struct {
	invoices    *repository.InvoiceRepository
	departments *repository.DepartmentRepository
	memberships *repository.MembershipRepository
	expenses    *repository.ExpenseRepository
	logger      *zap.Logger
}

// NewReconcileService creates a new reconcile service
func NewReconcileService(
	invoices *repository.InvoiceRepository,
	departments *repository.DepartmentRepository,
	memberships *repository.MembershipRepository,
	expenses *repository.ExpenseRepository,
	logger *zap.Logger,
) *ReconcileService {
	return &ReconcileService{
		invoices:    invoices,
		departments: departments,
		memberships: memberships,
		expenses:    expenses,
		logger:      logger,
	}
}

// FindDuplicates pairs every bank-transfer deduction of the invoice's branch
// and month with the approved manual lines whose description contains the
// same classroom-suffix token. The synthetic line is authoritative and never
// recommended for deletion; every matched manual line is.
func (s *ReconcileService) FindDuplicates(ctx context.Context, invoiceID int64) ([]models.DuplicateGroup, error) {
	invoice, err := s.invoices.GetByID(invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, fmt.Errorf("%w: invoice %d", ErrNotFound, invoiceID)
	}

	dept, err := s.departments.GetByID(invoice.DepartmentID)
	if err != nil {
		return nil, err
	}
	if dept == nil {
		return nil, fmt.Errorf("%w: department %d", ErrNotFound, invoice.DepartmentID)
	}

	records, err := s.memberships.ListBankTransfer(invoice.BillingMonth, dept.BranchCode)
	if err != nil {
		return nil, err
	}

	expenses, err := s.expenses.ListApproved(dept.StoreCode, invoice.BillingMonth)
	if err != nil {
		return nil, err
	}

	var groups []models.DuplicateGroup
	for _, rec := range records {
		suffix := models.ClassroomSuffix(rec.ClassroomCode)
		if suffix == "" {
			continue
		}
		token := billing.DuplicateMatchToken(suffix)

		var manual []models.DuplicateItem
		for _, line := range expenses {
			if !strings.Contains(line.Description, token) {
				continue
			}
			manual = append(manual, models.DuplicateItem{
				ItemID:            strconv.FormatInt(line.ID, 10),
				Description:       line.Description,
				Amount:            line.Amount,
				Source:            models.DuplicateSourceManual,
				RecommendedDelete: true,
			})
		}
		if len(manual) == 0 {
			continue
		}

		group := models.DuplicateGroup{
			ClassroomSuffix: suffix,
			Items: append([]models.DuplicateItem{{
				ItemID:            fmt.Sprintf("%s%d", models.SyntheticItemPrefix, rec.ID),
				Description:       billing.DeductionDescription(invoice.BillingMonth, suffix, rec.TotalCount, rec.UnitPrice),
				Amount:            billing.DeductionAmount(rec.TotalCount, rec.UnitPrice),
				Source:            models.DuplicateSourceSystem,
				RecommendedDelete: false,
			}}, manual...),
		}
		groups = append(groups, group)
	}

	s.logger.Info("Duplicate check completed",
		zap.Int64("invoice_id", invoiceID),
		zap.Int("group_count", len(groups)))

	return groups, nil
}

// DeleteItems removes the given expense lines. Synthetic ids and ids that
// match no row are ignored; the return value counts only real deletions.
func (s *ReconcileService) DeleteItems(ctx context.Context, itemIDs []string) (int64, error) {
	var ids []int64
	for _, raw := range itemIDs {
		if strings.HasPrefix(raw, models.SyntheticItemPrefix) {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	deleted, err := s.expenses.DeleteByIDs(ids)
	if err != nil {
		return 0, err
	}

	s.logger.Info("Duplicate expense lines deleted", zap.Int64("deleted", deleted))
	return deleted, nil
}
