package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/tonywei17/classroom-billing/internal/models"
	"github.com/tonywei17/classroom-billing/internal/repository"
	"go.uber.org/zap"
)

// SummaryService is the branch aggregator: a pure read-time roll-up of the
// month's ledger, recomputed on every call. Nothing here is persisted.
type SummaryService struct {
	memberships *repository.MembershipRepository
	departments *repository.DepartmentRepository
	logger      *zap.Logger
}

// NewSummaryService creates a new summary service
func NewSummaryService(
	memberships *repository.MembershipRepository,
	departments *repository.DepartmentRepository,
	logger *zap.Logger,
) *SummaryService {
	return &SummaryService{
		memberships: memberships,
		departments: departments,
		logger:      logger,
	}
}

// MonthlySummary aggregates the month's non-excluded records per branch.
// Bank-transfer classrooms are excluded from the totals but reported in their
// own columns, queried independently of the exclusion filter.
func (s *SummaryService) MonthlySummary(ctx context.Context, billingMonth string) (*models.MonthlySummary, error) {
	if !billingMonthPattern.MatchString(billingMonth) {
		return nil, fmt.Errorf("%w: billing_month must be YYYY-MM", ErrValidation)
	}

	records, err := s.memberships.ListByMonth(billingMonth)
	if err != nil {
		return nil, err
	}

	storedNames, err := s.branchNames()
	if err != nil {
		return nil, err
	}

	byBranch := make(map[string]*models.BranchSummary)
	branchFor := func(code string) *models.BranchSummary {
		b, ok := byBranch[code]
		if !ok {
			b = &models.BranchSummary{BranchCode: code, BranchName: storedNames[code]}
			byBranch[code] = b
		}
		return b
	}

	for _, rec := range records {
		b := branchFor(rec.BranchCode)

		if models.IsBranchSubtotalCode(rec.ClassroomCode) {
			// Subtotal rows contribute the display name, nothing else.
			if rec.ClassroomName != "" {
				b.BranchName = rec.ClassroomName
			}
			continue
		}

		if rec.IsBankTransfer {
			b.BankTransferClassrooms++
			b.BankTransferAmount += rec.Amount
		}
		if rec.IsExcluded {
			continue
		}

		b.ClassroomCount++
		b.MemberCount += rec.TotalCount
		b.TotalAmount += rec.Amount
		if rec.IsAigran {
			b.AigranMemberCount += rec.TotalCount
		} else {
			b.RegularMemberCount += rec.TotalCount
		}
	}

	summary := &models.MonthlySummary{BillingMonth: billingMonth}
	for _, b := range byBranch {
		summary.ClassroomCount += b.ClassroomCount
		summary.MemberCount += b.MemberCount
		summary.TotalAmount += b.TotalAmount
		summary.Branches = append(summary.Branches, *b)
	}
	sort.Slice(summary.Branches, func(i, j int) bool {
		return summary.Branches[i].BranchCode < summary.Branches[j].BranchCode
	})

	return summary, nil
}

func (s *SummaryService) branchNames() (map[string]string, error) {
	depts, err := s.departments.List()
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(depts))
	for _, d := range depts {
		names[d.BranchCode] = d.Name
	}
	return names, nil
}
