package repository

import (
	"database/sql"
	"fmt"

	"github.com/tonywei17/classroom-billing/internal/models"
	"go.uber.org/zap"
)

// OrderRepository exposes the order aggregates the invoice assembler consumes.
// Order entry itself belongs to the catalog service.
type OrderRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *sql.DB, logger *zap.Logger) *OrderRepository {
	return &OrderRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an order row
func (r *OrderRepository) Create(order *models.Order) error {
	query := `INSERT INTO orders (department_id, order_date, total_amount, status) VALUES (?, ?, ?, ?)`

	status := order.Status
	if status == "" {
		status = "CONFIRMED"
	}

	result, err := r.db.Exec(query, order.DepartmentID, order.OrderDate, order.TotalAmount, status)
	if err != nil {
		r.logger.Error("Failed to create order", zap.Int64("department_id", order.DepartmentID), zap.Error(err))
		return fmt.Errorf("failed to create order: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	order.ID = id
	order.Status = status
	return nil
}

// SumForMonth totals a department's orders dated inside the calendar month.
func (r *OrderRepository) SumForMonth(departmentID int64, billingMonth string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(total_amount), 0)
		FROM orders
		WHERE department_id = ? AND strftime('%Y-%m', order_date) = ?
	`

	var total int64
	err := r.db.QueryRow(query, departmentID, billingMonth).Scan(&total)
	if err != nil {
		r.logger.Error("Failed to sum orders",
			zap.Int64("department_id", departmentID),
			zap.String("billing_month", billingMonth),
			zap.Error(err))
		return 0, fmt.Errorf("failed to sum orders: %w", err)
	}
	return total, nil
}
