package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tonywei17/classroom-billing/internal/billing"
	"github.com/tonywei17/classroom-billing/internal/models"
	"github.com/tonywei17/classroom-billing/internal/repository"
	"github.com/tonywei17/classroom-billing/pkg/database"
	"go.uber.org/zap"
)

// GenerateRequest carries the inputs of one invoice generation. The manual
// adjustment fields default to zero when the caller leaves them out.
type GenerateRequest struct {
	DepartmentID         int64
	BillingMonth         string
	InvoiceType          string
	AdjustmentAmount     int64
	NonTaxableAmount     int64
	MaterialReturnAmount int64
}

// BatchGenerateResult tallies a whole-month run. Per-department failures are
// recorded here and do not stop the run.
type BatchGenerateResult struct {
	BillingMonth string   `json:"billing_month"`
	SuccessCount int      `json:"success_count"`
	ErrorCount   int      `json:"error_count"`
	Errors       []string `json:"errors,omitempty"`
	InvoiceIDs   []int64  `json:"invoice_ids"`
}

// InvoiceService assembles invoices from the ledger, orders and expenses,
// freezes them as snapshots and keeps the month's numbering consistent.
type InvoiceService struct {
	db          *database.DB
	invoices    *repository.InvoiceRepository
	departments *repository.DepartmentRepository
	memberships *repository.MembershipRepository
	expenses    *repository.ExpenseRepository
	orders      *repository.OrderRepository
	taxRate     int
	roundPolicy billing.RoundPolicy
	logger      *zap.Logger
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(
	db *database.DB,
	invoices *repository.InvoiceRepository,
	departments *repository.DepartmentRepository,
	memberships *repository.MembershipRepository,
	expenses *repository.ExpenseRepository,
	orders *repository.OrderRepository,
	taxRate int,
	roundPolicy billing.RoundPolicy,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		db:          db,
		invoices:    invoices,
		departments: departments,
		memberships: memberships,
		expenses:    expenses,
		orders:      orders,
		taxRate:     taxRate,
		roundPolicy: roundPolicy,
		logger:      logger,
	}
}

// Generate assembles and freezes one invoice. A previous current invoice for
// the same department and month is superseded inside the same transaction, so
// exactly one stays current. Absent source data yields zero components, not
// an error; only a missing department or malformed month rejects the call.
func (s *InvoiceService) Generate(ctx context.Context, req GenerateRequest) (*models.Invoice, error) {
	if !billingMonthPattern.MatchString(req.BillingMonth) {
		return nil, fmt.Errorf("%w: billing_month must be YYYY-MM", ErrValidation)
	}
	if req.InvoiceType != models.InvoiceTypeBranch && req.InvoiceType != models.InvoiceTypeAgency {
		return nil, fmt.Errorf("%w: invoice_type must be %s or %s", ErrValidation, models.InvoiceTypeBranch, models.InvoiceTypeAgency)
	}

	dept, err := s.departments.GetByID(req.DepartmentID)
	if err != nil {
		return nil, err
	}
	if dept == nil {
		return nil, fmt.Errorf("%w: department %d", ErrNotFound, req.DepartmentID)
	}

	previousBalance, err := s.invoices.PreviousBalance(dept.ID, req.BillingMonth)
	if err != nil {
		return nil, err
	}

	membershipAmount, err := s.membershipAmount(dept.BranchCode, req.BillingMonth, req.InvoiceType)
	if err != nil {
		return nil, err
	}

	materialAmount, err := s.orders.SumForMonth(dept.ID, req.BillingMonth)
	if err != nil {
		return nil, err
	}

	// The expense sum, the supersede and the re-consume run in one
	// transaction: lines held by the superseded invoice are released first,
	// so a regenerated snapshot bills them again instead of dropping them.
	var invoice *models.Invoice
	err = s.db.WithTransaction(func(tx *sql.Tx) error {
		if err := s.expenses.Release(tx, dept.StoreCode, req.BillingMonth); err != nil {
			return err
		}

		otherExpenses, err := s.expenses.SumApprovedUninvoiced(tx, dept.StoreCode, req.BillingMonth)
		if err != nil {
			return err
		}

		totals := billing.ComputeTotals(billing.Components{
			PreviousBalance:      previousBalance,
			MembershipAmount:     membershipAmount,
			MaterialAmount:       materialAmount,
			OtherExpensesAmount:  otherExpenses,
			AdjustmentAmount:     req.AdjustmentAmount,
			NonTaxableAmount:     req.NonTaxableAmount,
			MaterialReturnAmount: req.MaterialReturnAmount,
		}, s.taxRate, s.roundPolicy)

		invoice = &models.Invoice{
			DepartmentID:         dept.ID,
			BillingMonth:         req.BillingMonth,
			InvoiceType:          req.InvoiceType,
			PreviousBalance:      previousBalance,
			MembershipAmount:     membershipAmount,
			MaterialAmount:       materialAmount,
			OtherExpensesAmount:  otherExpenses,
			AdjustmentAmount:     req.AdjustmentAmount,
			NonTaxableAmount:     req.NonTaxableAmount,
			MaterialReturnAmount: req.MaterialReturnAmount,
			Subtotal:             totals.Subtotal,
			TaxAmount:            totals.TaxAmount,
			TotalAmount:          totals.TotalAmount,
		}

		if err := s.invoices.Supersede(tx, dept.ID, req.BillingMonth); err != nil {
			return err
		}
		if err := s.invoices.Insert(tx, invoice); err != nil {
			return err
		}
		return s.expenses.MarkInvoiced(tx, dept.StoreCode, req.BillingMonth, invoice.ID)
	})
	if err != nil {
		return nil, err
	}

	if err := s.renumberMonth(req.BillingMonth); err != nil {
		return nil, err
	}

	// Reload for the number assigned during renumbering.
	refreshed, err := s.invoices.GetByID(invoice.ID)
	if err != nil {
		return nil, err
	}
	if refreshed != nil {
		invoice = refreshed
	}

	s.logger.Info("Invoice generated",
		zap.Int64("invoice_id", invoice.ID),
		zap.Int64("department_id", dept.ID),
		zap.String("billing_month", req.BillingMonth),
		zap.String("invoice_type", req.InvoiceType),
		zap.Int64("total_amount", invoice.TotalAmount))

	return invoice, nil
}

// GenerateMonth assembles invoices for every department, continuing past
// single-department failures and reporting the tally.
func (s *InvoiceService) GenerateMonth(ctx context.Context, billingMonth, invoiceType string) (*BatchGenerateResult, error) {
	if !billingMonthPattern.MatchString(billingMonth) {
		return nil, fmt.Errorf("%w: billing_month must be YYYY-MM", ErrValidation)
	}

	depts, err := s.departments.List()
	if err != nil {
		return nil, err
	}

	result := &BatchGenerateResult{BillingMonth: billingMonth}
	for _, dept := range depts {
		invoice, err := s.Generate(ctx, GenerateRequest{
			DepartmentID: dept.ID,
			BillingMonth: billingMonth,
			InvoiceType:  invoiceType,
		})
		if err != nil {
			result.ErrorCount++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", dept.StoreCode, err))
			s.logger.Warn("Invoice generation failed for department",
				zap.Int64("department_id", dept.ID),
				zap.Error(err))
			continue
		}
		result.SuccessCount++
		result.InvoiceIDs = append(result.InvoiceIDs, invoice.ID)
	}

	return result, nil
}

// GetInvoice returns an invoice by id.
func (s *InvoiceService) GetInvoice(ctx context.Context, id int64) (*models.Invoice, error) {
	invoice, err := s.invoices.GetByID(id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, fmt.Errorf("%w: invoice %d", ErrNotFound, id)
	}
	return invoice, nil
}

func (s *InvoiceService) membershipAmount(branchCode, billingMonth, invoiceType string) (int64, error) {
	records, err := s.memberships.ListByMonthBranch(billingMonth, branchCode)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, rec := range records {
		if invoiceType == models.InvoiceTypeAgency {
			// The agency invoice bills only the direct-debit channel.
			if rec.IsBankTransfer {
				total += rec.Amount
			}
			continue
		}
		if rec.IsExcluded || rec.IsBankTransfer {
			continue
		}
		total += rec.Amount
	}
	return total, nil
}

// renumberMonth recomputes every number in the month from the full store-code
// set, so one regenerated invoice gets the same number it would get in a
// whole-month run. The updates commit together; a failure leaves the previous
// numbering intact.
func (s *InvoiceService) renumberMonth(billingMonth string) error {
	pairs, err := s.invoices.StoreCodesForMonth(billingMonth)
	if err != nil {
		return err
	}

	codes := make([]string, 0, len(pairs))
	for _, p := range pairs {
		codes = append(codes, p.StoreCode)
	}
	numbers := billing.AssignNumbers(billingMonth, codes)

	return s.db.WithTransaction(func(tx *sql.Tx) error {
		for _, p := range pairs {
			if err := s.invoices.UpdateNumber(tx, p.InvoiceID, numbers[p.StoreCode]); err != nil {
				return err
			}
		}
		return nil
	})
}
