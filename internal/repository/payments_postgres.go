package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/Pourna2598/ecommerce-microservices/internal/apperrors"
	"github.com/Pourna2598/ecommerce-microservices/internal/models"
)

// PostgresPaymentRepository implements PaymentRepository using PostgreSQL.
type PostgresPaymentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresPaymentRepository creates a new PostgreSQL payment repository.
func NewPostgresPaymentRepository(db *sql.DB, logger *zap.Logger) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{db: db, logger: logger}
}

const paymentColumns = `
	id, order_id, user_id, amount, payment_method, status, transaction_id,
	card_details, refund_id, refunded_at, error_message, version,
	created_at, updated_at
`

// uniqueViolation is the postgres error code for a unique constraint breach.
const uniqueViolation = "23505"

// Create inserts a new payment. The UNIQUE constraint on order_id closes
// the check-then-insert race between concurrent payment attempts; a
// violation surfaces as ConflictError.
func (r *PostgresPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	var cardJSON []byte
	var err error
	if payment.CardDetails != nil {
		cardJSON, err = json.Marshal(payment.CardDetails)
		if err != nil {
			return err
		}
	}

	query := `
		INSERT INTO payments (
			id, order_id, user_id, amount, payment_method, status,
			transaction_id, card_details, version, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	_, err = r.db.ExecContext(ctx, query,
		payment.ID,
		payment.OrderID,
		payment.UserID,
		payment.Amount,
		payment.PaymentMethod,
		payment.Status,
		nullString(payment.TransactionID),
		cardJSON,
		payment.Version,
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return apperrors.NewConflictError("Payment already exists for this order")
		}
		r.logger.Error("failed to insert payment",
			zap.String("payment_id", payment.ID),
			zap.String("order_id", payment.OrderID),
			zap.Error(err))
		return err
	}
	return nil
}

// GetByID retrieves a payment by its unique identifier.
func (r *PostgresPaymentRepository) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	payment, err := scanPayment(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("payment")
	}
	return payment, err
}

// GetByOrderID retrieves the payment for an order, if any.
func (r *PostgresPaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1`
	payment, err := scanPayment(r.db.QueryRowContext(ctx, query, orderID))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("payment")
	}
	return payment, err
}

// Update writes the payment back with an optimistic version check.
func (r *PostgresPaymentRepository) Update(ctx context.Context, payment *models.Payment) error {
	query := `
		UPDATE payments
		SET status = $3, refund_id = $4, refunded_at = $5, error_message = $6,
		    version = version + 1, updated_at = $7
		WHERE id = $1 AND version = $2
	`

	result, err := r.db.ExecContext(ctx, query,
		payment.ID,
		payment.Version,
		payment.Status,
		nullString(payment.RefundID),
		payment.RefundedAt,
		nullString(payment.ErrorMessage),
		time.Now(),
	)
	if err != nil {
		r.logger.Error("failed to update payment", zap.String("payment_id", payment.ID), zap.Error(err))
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM payments WHERE id = $1)`, payment.ID,
		).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return apperrors.NewNotFoundError("payment")
		}
		return apperrors.NewConflictError("payment was modified concurrently")
	}

	payment.Version++
	return nil
}

// List retrieves one page of payments matching the filter, newest first.
func (r *PostgresPaymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, int, error) {
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
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM payments"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	args = append(args, PageSize, PageSize*(page-1))
	query := "SELECT " + paymentColumns + " FROM payments" + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	payments := make([]*models.Payment, 0)
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		payments = append(payments, payment)
	}
	return payments, total, rows.Err()
}

// Stats aggregates payment totals and per-status counts.
func (r *PostgresPaymentRepository) Stats(ctx context.Context) (*models.PaymentStats, error) {
	stats := &models.PaymentStats{}

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(amount), 0), COALESCE(AVG(amount), 0)
		FROM payments
	`).Scan(&stats.TotalPayments, &stats.TotalAmount, &stats.AverageAmount)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM payments GROUP BY status
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

func scanPayment(row rowScanner) (*models.Payment, error) {
	var payment models.Payment
	var cardJSON []byte
	var transactionID, refundID, errorMessage sql.NullString
	var refundedAt sql.NullTime

	err := row.Scan(
		&payment.ID,
		&payment.OrderID,
		&payment.UserID,
		&payment.Amount,
		&payment.PaymentMethod,
		&payment.Status,
		&transactionID,
		&cardJSON,
		&refundID,
		&refundedAt,
		&errorMessage,
		&payment.Version,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(cardJSON) > 0 {
		payment.CardDetails = &models.CardDetails{}
		if err := json.Unmarshal(cardJSON, payment.CardDetails); err != nil {
			return nil, err
		}
	}
	if transactionID.Valid {
		payment.TransactionID = transactionID.String
	}
	if refundID.Valid {
		payment.RefundID = refundID.String
	}
	if refundedAt.Valid {
		payment.RefundedAt = &refundedAt.Time
	}
	if errorMessage.Valid {
		payment.ErrorMessage = errorMessage.String
	}
	return &payment, nil
}
