package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/tonywei17/classroom-billing/internal/models"
	"go.uber.org/zap"
)

// ImportBatchRepository handles import batch database operations
type ImportBatchRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewImportBatchRepository creates a new import batch repository
func NewImportBatchRepository(db *sql.DB, logger *zap.Logger) *ImportBatchRepository {
	return &ImportBatchRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a batch with status PROCESSING. A failure here aborts the
// whole import; once the row exists, later row failures are only recorded.
func (r *ImportBatchRepository) Create(batch *models.ImportBatch) error {
	query := `
		INSERT INTO import_batches (billing_month, file_name, file_type, row_count, status)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		batch.BillingMonth,
		batch.FileName,
		batch.FileType,
		batch.RowCount,
		models.ImportStatusProcessing,
	)
	if err != nil {
		r.logger.Error("Failed to create import batch",
			zap.String("billing_month", batch.BillingMonth),
			zap.Error(err))
		return fmt.Errorf("failed to create import batch: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	batch.ID = id
	batch.Status = models.ImportStatusProcessing
	return nil
}

// Finalize records the outcome once, bounding the stored error log.
func (r *ImportBatchRepository) Finalize(id int64, successCount, errorCount int, errLog []string) error {
	if len(errLog) > models.MaxImportErrors {
		errLog = errLog[:models.MaxImportErrors]
	}
	logJSON, err := json.Marshal(errLog)
	if err != nil {
		return fmt.Errorf("failed to encode error log: %w", err)
	}

	query := `
		UPDATE import_batches
		SET success_count = ?, error_count = ?, error_log = ?, status = ?,
			completed_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
	`

	_, err = r.db.Exec(query,
		successCount,
		errorCount,
		string(logJSON),
		models.ImportStatusCompleted,
		id,
		models.ImportStatusProcessing,
	)
	if err != nil {
		r.logger.Error("Failed to finalize import batch", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to finalize import batch: %w", err)
	}
	return nil
}

// GetByID retrieves an import batch
func (r *ImportBatchRepository) GetByID(id int64) (*models.ImportBatch, error) {
	query := `
		SELECT id, billing_month, file_name, file_type, row_count,
			success_count, error_count, status, error_log, created_at, completed_at
		FROM import_batches
		WHERE id = ?
	`

	var batch models.ImportBatch
	var errLog string
	var completedAt sql.NullTime

	err := r.db.QueryRow(query, id).Scan(
		&batch.ID,
		&batch.BillingMonth,
		&batch.FileName,
		&batch.FileType,
		&batch.RowCount,
		&batch.SuccessCount,
		&batch.ErrorCount,
		&batch.Status,
		&errLog,
		&batch.CreatedAt,
		&completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get import batch", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get import batch: %w", err)
	}

	if completedAt.Valid {
		batch.CompletedAt = &completedAt.Time
	}
	if err := json.Unmarshal([]byte(errLog), &batch.ErrorLog); err != nil {
		batch.ErrorLog = nil
	}

	return &batch, nil
}
