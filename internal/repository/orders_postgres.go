package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Pourna2598/ecommerce-microservices/internal/apperrors"
	"github.com/Pourna2598/ecommerce-microservices/internal/models"
)

// PostgresOrderRepository implements OrderRepository using PostgreSQL.
// Items, address, and payment result live in JSONB columns.
type PostgresOrderRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresOrderRepository creates a new PostgreSQL order repository.
func NewPostgresOrderRepository(db *sql.DB, logger *zap.Logger) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db, logger: logger}
}

const orderColumns = `
	id, user_id, order_items, shipping_address, payment_method, payment_result,
	items_price, tax_price, shipping_price, total_price,
	is_paid, paid_at, is_delivered, delivered_at,
	status, cancellation_reason, version, created_at, updated_at
`

// Create inserts a new order document.
func (r *PostgresOrderRepository) Create(ctx context.Context, order *models.Order) error {
	itemsJSON, err := json.Marshal(order.OrderItems)
	if err != nil {
		return err
	}
	addressJSON, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO orders (
			id, user_id, order_items, shipping_address, payment_method,
			items_price, tax_price, shipping_price, total_price,
			is_paid, is_delivered, status, version, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)
	`

	_, err = r.db.ExecContext(ctx, query,
		order.ID,
		order.UserID,
		itemsJSON,
		addressJSON,
		order.PaymentMethod,
		order.ItemsPrice,
		order.TaxPrice,
		order.ShippingPrice,
		order.TotalPrice,
		order.IsPaid,
		order.IsDelivered,
		order.Status,
		order.Version,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to insert order",
			zap.String("order_id", order.ID),
			zap.Error(err))
		return err
	}

	return nil
}

// GetByID retrieves an order by its unique identifier.
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	order, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("order")
	}
	if err != nil {
		r.logger.Error("failed to fetch order", zap.String("order_id", id), zap.Error(err))
		return nil, err
	}
	return order, nil
}

// Update writes the order back with an optimistic version check. The write
// only lands if no other writer bumped the version since this copy was read.
func (r *PostgresOrderRepository) Update(ctx context.Context, order *models.Order) error {
	itemsJSON, err := json.Marshal(order.OrderItems)
	if err != nil {
		return err
	}
	var resultJSON []byte
	if order.PaymentResult != nil {
		resultJSON, err = json.Marshal(order.PaymentResult)
		if err != nil {
			return err
		}
	}

	query := `
		UPDATE orders
		SET order_items = $3, payment_method = $4, payment_result = $5,
		    is_paid = $6, paid_at = $7, is_delivered = $8, delivered_at = $9,
		    status = $10, cancellation_reason = $11,
		    version = version + 1, updated_at = $12
		WHERE id = $1 AND version = $2
	`

	result, err := r.db.ExecContext(ctx, query,
		order.ID,
		order.Version,
		itemsJSON,
		order.PaymentMethod,
		resultJSON,
		order.IsPaid,
		order.PaidAt,
		order.IsDelivered,
		order.DeliveredAt,
		order.Status,
		nullString(order.CancellationReason),
		time.Now(),
	)
	if err != nil {
		r.logger.Error("failed to update order", zap.String("order_id", order.ID), zap.Error(err))
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, order.ID,
		).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return apperrors.NewNotFoundError("order")
		}
		return apperrors.NewConflictError("order was modified concurrently")
	}

	order.Version++
	return nil
}

// List retrieves one page of orders matching the filter, newest first.
func (r *PostgresOrderRepository) List(ctx context.Context, filter models.OrderFilter) ([]*models.Order, int, error) {
	where := " WHERE 1=1"
	args := make([]interface{}, 0, 4)

	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	args = append(args, PageSize, PageSize*(page-1))
	query := "SELECT " + orderColumns + " FROM orders" + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	orders := make([]*models.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, order)
	}
	return orders, total, rows.Err()
}

// Recent returns the most recently created orders.
func (r *PostgresOrderRepository) Recent(ctx context.Context, limit int) ([]*models.Order, error) {
	query := "SELECT " + orderColumns + " FROM orders ORDER BY created_at DESC LIMIT $1"
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]*models.Order, 0, limit)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// Stats aggregates order totals and per-status counts.
func (r *PostgresOrderRepository) Stats(ctx context.Context) (*models.OrderStats, error) {
	stats := &models.OrderStats{}

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_price), 0), COALESCE(AVG(total_price), 0)
		FROM orders
	`).Scan(&stats.TotalOrders, &stats.TotalRevenue, &stats.AverageOrderValue)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM orders GROUP BY status
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var sc models.StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, err
		}
		stats.StatusStats = append(stats.StatusStats, sc)
	}
	return stats, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var order models.Order
	var itemsJSON, addressJSON []byte
	var resultJSON []byte
	var paidAt, deliveredAt sql.NullTime
	var cancellationReason sql.NullString

	err := row.Scan(
		&order.ID,
		&order.UserID,
		&itemsJSON,
		&addressJSON,
		&order.PaymentMethod,
		&resultJSON,
		&order.ItemsPrice,
		&order.TaxPrice,
		&order.ShippingPrice,
		&order.TotalPrice,
		&order.IsPaid,
		&paidAt,
		&order.IsDelivered,
		&deliveredAt,
		&order.Status,
		&cancellationReason,
		&order.Version,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(itemsJSON, &order.OrderItems); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(addressJSON, &order.ShippingAddress); err != nil {
		return nil, err
	}
	if len(resultJSON) > 0 {
		order.PaymentResult = &models.PaymentResult{}
		if err := json.Unmarshal(resultJSON, order.PaymentResult); err != nil {
			return nil, err
		}
	}
	if paidAt.Valid {
		order.PaidAt = &paidAt.Time
	}
	if deliveredAt.Valid {
		order.DeliveredAt = &deliveredAt.Time
	}
	if cancellationReason.Valid {
		order.CancellationReason = cancellationReason.String
	}
	return &order, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
