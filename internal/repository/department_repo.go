package repository

import (
	"database/sql"
	"fmt"

	"github.com/tonywei17/classroom-billing/internal/models"
	"go.uber.org/zap"
)

// DepartmentRepository handles department database operations
type DepartmentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDepartmentRepository creates a new department repository
func NewDepartmentRepository(db *sql.DB, logger *zap.Logger) *DepartmentRepository {
	return &DepartmentRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a department
func (r *DepartmentRepository) Create(dept *models.Department) error {
	query := `INSERT INTO departments (store_code, branch_code, name) VALUES (?, ?, ?)`

	result, err := r.db.Exec(query, dept.StoreCode, dept.BranchCode, dept.Name)
	if err != nil {
		r.logger.Error("Failed to create department",
			zap.String("store_code", dept.StoreCode),
			zap.Error(err))
		return fmt.Errorf("failed to create department: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	dept.ID = id
	return nil
}

// GetByID retrieves a department, nil when absent
func (r *DepartmentRepository) GetByID(id int64) (*models.Department, error) {
	query := `
		SELECT id, store_code, branch_code, name, created_at
		FROM departments
		WHERE id = ?
	`

	var dept models.Department
	err := r.db.QueryRow(query, id).Scan(
		&dept.ID,
		&dept.StoreCode,
		&dept.BranchCode,
		&dept.Name,
		&dept.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get department", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get department: %w", err)
	}

	return &dept, nil
}

// List returns all departments ordered by store code
func (r *DepartmentRepository) List() ([]*models.Department, error) {
	query := `
		SELECT id, store_code, branch_code, name, created_at
		FROM departments
		ORDER BY store_code
	`

	rows, err := r.db.Query(query)
	if err != nil {
		r.logger.Error("Failed to list departments", zap.Error(err))
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	defer rows.Close()

	var depts []*models.Department
	for rows.Next() {
		var dept models.Department
		err := rows.Scan(&dept.ID, &dept.StoreCode, &dept.BranchCode, &dept.Name, &dept.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}
		depts = append(depts, &dept)
	}

	return depts, rows.Err()
}
