// Package ingest normalizes the three spreadsheet formats the billing office
// uploads into membership ledger writes. Parsing is declarative per format
// and fail-open per row: a bad row becomes an error string in the batch
// result, never an aborted import.
package ingest

import (
	"fmt"

	"github.com/tonywei17/classroom-billing/internal/models"
)

// Columns maps the fields of one format to zero-based column positions. A
// position of -1 means the format does not carry the field.
type Columns struct {
	ClassroomCode int
	ClassroomName int
	BranchCode    int
	BranchSuffix  int
	CountAge2     int
	CountAge3     int
	CountAge4     int
	CountAge5     int
	TotalCount    int
}

// Format describes one spreadsheet layout: which rows are headers, where the
// fields live and how many columns a data row must have.
type Format struct {
	FileType   string
	HeaderRows int
	MinColumns int
	Columns    Columns
}

// The three accepted layouts.
var (
	// HeadcountFormat: one row per classroom, counts by age band.
	// code | name | age2 | age3 | age4 | age5 | total
	HeadcountFormat = Format{
		FileType:   models.FileTypeHeadcount,
		HeaderRows: 1,
		MinColumns: 7,
		Columns: Columns{
			ClassroomCode: 0,
			ClassroomName: 1,
			BranchCode:    -1,
			BranchSuffix:  -1,
			CountAge2:     2,
			CountAge3:     3,
			CountAge4:     4,
			CountAge5:     5,
			TotalCount:    6,
		},
	}

	// OperatorFormat: externally operated classrooms, one row per branch.
	// branch | name | total
	OperatorFormat = Format{
		FileType:   models.FileTypeOperator,
		HeaderRows: 2,
		MinColumns: 3,
		Columns: Columns{
			ClassroomCode: -1,
			ClassroomName: 1,
			BranchCode:    0,
			BranchSuffix:  -1,
			CountAge2:     -1,
			CountAge3:     -1,
			CountAge4:     -1,
			CountAge5:     -1,
			TotalCount:    2,
		},
	}

	// BankTransferFormat: direct-debit roster, matches existing records.
	// branch | suffix
	BankTransferFormat = Format{
		FileType:   models.FileTypeBankTransfer,
		HeaderRows: 1,
		MinColumns: 2,
		Columns: Columns{
			ClassroomCode: -1,
			ClassroomName: -1,
			BranchCode:    0,
			BranchSuffix:  1,
			CountAge2:     -1,
			CountAge3:     -1,
			CountAge4:     -1,
			CountAge5:     -1,
			TotalCount:    -1,
		},
	}
)

// FormatFor returns the layout for a file type tag.
func FormatFor(fileType string) (Format, error) {
	switch fileType {
	case models.FileTypeHeadcount:
		return HeadcountFormat, nil
	case models.FileTypeOperator:
		return OperatorFormat, nil
	case models.FileTypeBankTransfer:
		return BankTransferFormat, nil
	}
	return Format{}, fmt.Errorf("unknown file type %q", fileType)
}

// Validate rejects a sheet that cannot possibly match the layout before any
// row is committed.
func (f Format) Validate(rows [][]string) error {
	if len(rows) <= f.HeaderRows {
		return fmt.Errorf("%s sheet has no data rows", f.FileType)
	}
	return nil
}

// DataRows strips the header rows.
func (f Format) DataRows(rows [][]string) [][]string {
	return rows[f.HeaderRows:]
}
