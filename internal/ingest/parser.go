package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tonywei17/classroom-billing/internal/models"
)

// Action tells the importer what to do with a parsed row.
type Action int

// Row actions.
const (
	ActionSkip Action = iota
	ActionUpsert
	ActionMarkBankTransfer
)

// RowResult is the outcome of parsing one data row. Rows with a blank or
// placeholder classroom code come back as ActionSkip with no error; rows that
// fail to parse carry Err and are counted against the batch.
type RowResult struct {
	RowIndex      int // zero-based index among data rows
	Action        Action
	Record        *models.MembershipRecord // set for ActionUpsert
	ClassroomCode string                   // set for ActionMarkBankTransfer
	Err           error
}

// ParseRows normalizes a sheet's data rows under the given format. The result
// has one entry per data row so the importer can tally successes and errors
// without ever aborting.
func ParseRows(f Format, billingMonth string, rows [][]string) []RowResult {
	data := f.DataRows(rows)
	results := make([]RowResult, 0, len(data))
	for i, row := range data {
		results = append(results, parseRow(f, billingMonth, i, row))
	}
	return results
}

func parseRow(f Format, billingMonth string, index int, row []string) RowResult {
	res := RowResult{RowIndex: index, Action: ActionSkip}

	if isBlankRow(row) {
		return res
	}
	if len(row) < f.MinColumns {
		res.Err = fmt.Errorf("row %d: expected at least %d columns, got %d", index+1, f.MinColumns, len(row))
		return res
	}

	switch f.FileType {
	case models.FileTypeHeadcount:
		return parseHeadcountRow(f, billingMonth, index, row)
	case models.FileTypeOperator:
		return parseOperatorRow(f, billingMonth, index, row)
	case models.FileTypeBankTransfer:
		return parseBankTransferRow(f, index, row)
	}

	res.Err = fmt.Errorf("row %d: unknown file type %q", index+1, f.FileType)
	return res
}

func parseHeadcountRow(f Format, billingMonth string, index int, row []string) RowResult {
	res := RowResult{RowIndex: index, Action: ActionSkip}

	code := cell(row, f.Columns.ClassroomCode)
	if code == "" || code == "-" {
		// Placeholder rows are expected in hand-maintained sheets.
		return res
	}

	age2, err := parseCount(cell(row, f.Columns.CountAge2))
	if err != nil {
		res.Err = fmt.Errorf("row %d: age2 count: %w", index+1, err)
		return res
	}
	age3, err := parseCount(cell(row, f.Columns.CountAge3))
	if err != nil {
		res.Err = fmt.Errorf("row %d: age3 count: %w", index+1, err)
		return res
	}
	age4, err := parseCount(cell(row, f.Columns.CountAge4))
	if err != nil {
		res.Err = fmt.Errorf("row %d: age4 count: %w", index+1, err)
		return res
	}
	age5, err := parseCount(cell(row, f.Columns.CountAge5))
	if err != nil {
		res.Err = fmt.Errorf("row %d: age5 count: %w", index+1, err)
		return res
	}
	total, err := parseCount(cell(row, f.Columns.TotalCount))
	if err != nil {
		res.Err = fmt.Errorf("row %d: total count: %w", index+1, err)
		return res
	}

	rec := &models.MembershipRecord{
		BillingMonth:  billingMonth,
		ClassroomCode: code,
		ClassroomName: cell(row, f.Columns.ClassroomName),
		BranchCode:    models.BranchCodeOf(code),
		CountAge2:     age2,
		CountAge3:     age3,
		CountAge4:     age4,
		CountAge5:     age5,
		TotalCount:    total,
		UnitPrice:     models.StandardUnitPrice,
	}

	switch {
	case models.IsBranchSubtotalCode(code):
		// Summary row: keeps the branch display name, never bills.
		rec.IsExcluded = true
	case models.IsAigranCode(code):
		rec.IsAigran = true
		rec.UnitPrice = models.AigranUnitPrice
	}
	rec.Amount = int64(rec.TotalCount) * rec.UnitPrice

	res.Action = ActionUpsert
	res.Record = rec
	return res
}

func parseOperatorRow(f Format, billingMonth string, index int, row []string) RowResult {
	res := RowResult{RowIndex: index, Action: ActionSkip}

	branch := cell(row, f.Columns.BranchCode)
	if branch == "" || branch == "-" {
		return res
	}

	total, err := parseCount(cell(row, f.Columns.TotalCount))
	if err != nil {
		res.Err = fmt.Errorf("row %d: total count: %w", index+1, err)
		return res
	}

	rec := &models.MembershipRecord{
		BillingMonth:  billingMonth,
		ClassroomCode: branch + models.AigranSuffix,
		ClassroomName: cell(row, f.Columns.ClassroomName),
		BranchCode:    branch,
		TotalCount:    total,
		UnitPrice:     models.AigranUnitPrice,
		IsAigran:      true,
	}
	rec.Amount = int64(rec.TotalCount) * rec.UnitPrice

	res.Action = ActionUpsert
	res.Record = rec
	return res
}

func parseBankTransferRow(f Format, index int, row []string) RowResult {
	res := RowResult{RowIndex: index, Action: ActionSkip}

	branch := cell(row, f.Columns.BranchCode)
	suffix := cell(row, f.Columns.BranchSuffix)
	if branch == "" || suffix == "" {
		return res
	}
	if len(suffix) > models.ClassroomSuffixLen {
		res.Err = fmt.Errorf("row %d: classroom suffix %q longer than %d digits", index+1, suffix, models.ClassroomSuffixLen)
		return res
	}

	res.Action = ActionMarkBankTransfer
	res.ClassroomCode = branch + zeroPad(suffix, models.ClassroomSuffixLen)
	return res
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

func parseCount(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid count %q", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative count %d", n)
	}
	return n, nil
}

func zeroPad(s string, width int) string {
	for len(s) < width {
		s = "0" + s
	}
	return s
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
