package models

import "time"

// Spreadsheet format tags accepted by the import endpoint.
const (
	FileTypeHeadcount    = "HEADCOUNT"     // per-classroom member counts
	FileTypeOperator     = "OPERATOR"      // externally operated classrooms
	FileTypeBankTransfer = "BANK_TRANSFER" // direct-debit roster
)

// Import batch status constants.
const (
	ImportStatusProcessing = "PROCESSING"
	ImportStatusCompleted  = "COMPLETED"
)

// MaxImportErrors bounds the number of row error messages kept per batch.
const MaxImportErrors = 10

// ImportChunkSize is the number of rows written per transaction. Chunking
// respects store write-size limits; chunks are written sequentially.
const ImportChunkSize = 500

// ImportBatch records one spreadsheet upload and its outcome. It is created
// with status PROCESSING, finalized exactly once, and never edited afterwards.
type ImportBatch struct {
	ID           int64      `json:"id"`
	BillingMonth string     `json:"billing_month"`
	FileName     string     `json:"file_name"`
	FileType     string     `json:"file_type"`
	RowCount     int        `json:"row_count"`
	SuccessCount int        `json:"success_count"`
	ErrorCount   int        `json:"error_count"`
	Status       string     `json:"status"`
	ErrorLog     []string   `json:"error_log,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// ImportResult is the user-visible outcome of an upload. Row-level failures
// are expected and reported here, never as a failed request.
type ImportResult struct {
	ImportID     int64    `json:"import_id"`
	RowCount     int      `json:"row_count"`
	SuccessCount int      `json:"success_count"`
	ErrorCount   int      `json:"error_count"`
	Errors       []string `json:"errors,omitempty"`
}

// ValidFileType reports whether t is one of the three accepted format tags.
func ValidFileType(t string) bool {
	switch t {
	case FileTypeHeadcount, FileTypeOperator, FileTypeBankTransfer:
		return true
	}
	return false
}
