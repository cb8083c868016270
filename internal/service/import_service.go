package service

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sync"

	"github.com/tonywei17/classroom-billing/internal/ingest"
	"github.com/tonywei17/classroom-billing/internal/models"
	"github.com/tonywei17/classroom-billing/internal/repository"
	"github.com/tonywei17/classroom-billing/pkg/database"
	"go.uber.org/zap"
)

var billingMonthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ImportRequest carries one decoded upload.
type ImportRequest struct {
	BillingMonth string
	FileName     string
	FileType     string
	Rows         [][]string
}

// ImportService runs the import pipeline: batch record, per-month advisory
// lock, chunked upserts, bounded error collection, batch finalize.
type ImportService struct {
	db          *database.DB
	batches     *repository.ImportBatchRepository
	memberships *repository.MembershipRepository
	logger      *zap.Logger

	mu         sync.Mutex
	monthLocks map[string]*sync.Mutex
}

// NewImportService creates a new import service
func NewImportService(
	db *database.DB,
	batches *repository.ImportBatchRepository,
	memberships *repository.MembershipRepository,
	logger *zap.Logger,
) *ImportService {
	return &ImportService{
		db:          db,
		batches:     batches,
		memberships: memberships,
		logger:      logger,
		monthLocks:  make(map[string]*sync.Mutex),
	}
}

// Import ingests one spreadsheet. Validation failures reject the whole upload
// before any write; once the batch record exists, row failures only reduce
// success_count. The returned result is the user-visible outcome even when
// every row failed.
func (s *ImportService) Import(ctx context.Context, req ImportRequest) (*models.ImportResult, error) {
	if req.BillingMonth == "" || !billingMonthPattern.MatchString(req.BillingMonth) {
		return nil, fmt.Errorf("%w: billing_month must be YYYY-MM", ErrValidation)
	}
	if !models.ValidFileType(req.FileType) {
		return nil, fmt.Errorf("%w: unknown file_type %q", ErrValidation, req.FileType)
	}
	if len(req.Rows) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrValidation)
	}

	format, err := ingest.FormatFor(req.FileType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := format.Validate(req.Rows); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	// Serialize overlapping uploads for the same month; the upsert is
	// last-write-wins, so without this two concurrent imports interleave.
	unlock := s.lockMonth(req.BillingMonth)
	defer unlock()

	batch := &models.ImportBatch{
		BillingMonth: req.BillingMonth,
		FileName:     req.FileName,
		FileType:     req.FileType,
		RowCount:     len(req.Rows) - format.HeaderRows,
	}
	if err := s.batches.Create(batch); err != nil {
		// No batch record means no place to report row outcomes: fatal.
		return nil, err
	}

	s.logger.Info("Import started",
		zap.Int64("import_id", batch.ID),
		zap.String("billing_month", req.BillingMonth),
		zap.String("file_type", req.FileType),
		zap.Int("row_count", batch.RowCount))

	parsed := ingest.ParseRows(format, req.BillingMonth, req.Rows)

	var actionable []ingest.RowResult
	var errLog []string
	errorCount := 0
	for _, row := range parsed {
		if row.Err != nil {
			errorCount++
			if len(errLog) < models.MaxImportErrors {
				errLog = append(errLog, row.Err.Error())
			}
			continue
		}
		if row.Action == ingest.ActionSkip {
			continue
		}
		if row.Record != nil {
			row.Record.ImportID = batch.ID
		}
		actionable = append(actionable, row)
	}

	successCount := 0
	for start := 0; start < len(actionable); start += models.ImportChunkSize {
		end := start + models.ImportChunkSize
		if end > len(actionable) {
			end = len(actionable)
		}
		chunk := actionable[start:end]

		err := s.db.WithTransaction(func(tx *sql.Tx) error {
			for _, row := range chunk {
				switch row.Action {
				case ingest.ActionUpsert:
					if err := s.memberships.Upsert(tx, row.Record); err != nil {
						return err
					}
				case ingest.ActionMarkBankTransfer:
					if _, err := s.memberships.MarkBankTransfer(tx, req.BillingMonth, row.ClassroomCode); err != nil {
						return err
					}
				}
			}
			return nil
		})
		if err != nil {
			// Chunk rolls back as one; later chunks still run.
			errorCount += len(chunk)
			if len(errLog) < models.MaxImportErrors {
				errLog = append(errLog, fmt.Sprintf("chunk starting at row %d: %v", chunk[0].RowIndex+1, err))
			}
			s.logger.Warn("Import chunk failed",
				zap.Int64("import_id", batch.ID),
				zap.Int("chunk_start", start),
				zap.Error(err))
			continue
		}
		successCount += len(chunk)
	}

	if err := s.batches.Finalize(batch.ID, successCount, errorCount, errLog); err != nil {
		return nil, err
	}

	s.logger.Info("Import completed",
		zap.Int64("import_id", batch.ID),
		zap.Int("success_count", successCount),
		zap.Int("error_count", errorCount))

	return &models.ImportResult{
		ImportID:     batch.ID,
		RowCount:     batch.RowCount,
		SuccessCount: successCount,
		ErrorCount:   errorCount,
		Errors:       errLog,
	}, nil
}

// GetBatch returns a recorded import batch.
func (s *ImportService) GetBatch(ctx context.Context, id int64) (*models.ImportBatch, error) {
	batch, err := s.batches.GetByID(id)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, fmt.Errorf("%w: import batch %d", ErrNotFound, id)
	}
	return batch, nil
}

func (s *ImportService) lockMonth(billingMonth string) func() {
	s.mu.Lock()
	lock, ok := s.monthLocks[billingMonth]
	if !ok {
		lock = &sync.Mutex{}
		s.monthLocks[billingMonth] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
