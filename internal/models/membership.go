package models

import (
	"strings"
	"time"
)

// ClassroomSuffixLen is the length of the numeric suffix that follows the
// branch code inside a classroom code.
const ClassroomSuffixLen = 3

// Reserved classroom suffixes.
const (
	BranchSubtotalSuffix = "000" // branch subtotal row, display name only
	AigranSuffix         = "800" // externally operated (aigran) classroom
)

// Unit prices in yen per member.
const (
	StandardUnitPrice = 480
	AigranUnitPrice   = 600
)

// MembershipRecord is the canonical per-classroom-per-month billing record.
// It is unique on (billing_month, classroom_code) and re-imports upsert into
// the same row.
type MembershipRecord struct {
	ID             int64     `json:"id"`
	BillingMonth   string    `json:"billing_month"` // YYYY-MM
	ClassroomCode  string    `json:"classroom_code"`
	ClassroomName  string    `json:"classroom_name"`
	BranchCode     string    `json:"branch_code"`
	CountAge2      int       `json:"count_age2"` // two and under
	CountAge3      int       `json:"count_age3"`
	CountAge4      int       `json:"count_age4"`
	CountAge5      int       `json:"count_age5"`
	TotalCount     int       `json:"total_count"`
	UnitPrice      int64     `json:"unit_price"`
	Amount         int64     `json:"amount"` // total_count * unit_price
	IsAigran       bool      `json:"is_aigran"`
	IsBankTransfer bool      `json:"is_bank_transfer"`
	IsExcluded     bool      `json:"is_excluded"`
	ImportID       int64     `json:"import_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ClassroomSuffix returns the numeric suffix of a classroom code, or "" when
// the code is too short to carry one.
func ClassroomSuffix(classroomCode string) string {
	if len(classroomCode) < ClassroomSuffixLen {
		return ""
	}
	return classroomCode[len(classroomCode)-ClassroomSuffixLen:]
}

// BranchCodeOf returns the branch part of a classroom code.
func BranchCodeOf(classroomCode string) string {
	if len(classroomCode) <= ClassroomSuffixLen {
		return classroomCode
	}
	return classroomCode[:len(classroomCode)-ClassroomSuffixLen]
}

// IsBranchSubtotalCode reports whether the code marks a branch subtotal row.
func IsBranchSubtotalCode(classroomCode string) bool {
	return strings.HasSuffix(classroomCode, BranchSubtotalSuffix)
}

// IsAigranCode reports whether the code marks an externally operated classroom.
func IsAigranCode(classroomCode string) bool {
	return strings.HasSuffix(classroomCode, AigranSuffix)
}

// BranchSummary is the read-time aggregation of one branch's records. It is
// never persisted.
type BranchSummary struct {
	BranchCode             string `json:"branch_code"`
	BranchName             string `json:"branch_name"`
	ClassroomCount         int    `json:"classroom_count"`
	MemberCount            int    `json:"member_count"`
	AigranMemberCount      int    `json:"aigran_member_count"`
	RegularMemberCount     int    `json:"regular_member_count"`
	BankTransferClassrooms int    `json:"bank_transfer_classrooms"`
	BankTransferAmount     int64  `json:"bank_transfer_amount"`
	TotalAmount            int64  `json:"total_amount"`
}

// MonthlySummary is the month-wide roll-up returned by the summary query.
type MonthlySummary struct {
	BillingMonth   string          `json:"billing_month"`
	ClassroomCount int             `json:"classroom_count"`
	MemberCount    int             `json:"member_count"`
	TotalAmount    int64           `json:"total_amount"`
	Branches       []BranchSummary `json:"branches"`
}
