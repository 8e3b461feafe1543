// Package repository implements persistence for the two independently-owned
// document stores: orders and payments. Each service talks only to its own
// store; cross-boundary access goes through the inter-service client.
package repository

import (
	"context"

	"github.com/Pourna2598/ecommerce-microservices/internal/models"
)

// PageSize is the fixed page size for all listings.
const PageSize = 10

// OrderRepository persists order documents.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	// Update writes the order back, guarded by its version counter; a
	// concurrent writer having won the race surfaces as ConflictError.
	Update(ctx context.Context, order *models.Order) error
	List(ctx context.Context, filter models.OrderFilter) ([]*models.Order, int, error)
	Stats(ctx context.Context) (*models.OrderStats, error)
	Recent(ctx context.Context, limit int) ([]*models.Order, error)
}

// PaymentRepository persists payment documents. Create enforces the
// one-payment-per-order invariant at the store level.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id string) (*models.Payment, error)
	GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error)
	Update(ctx context.Context, payment *models.Payment) error
	List(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, int, error)
	Stats(ctx context.Context) (*models.PaymentStats, error)
}

// OrderCache is the cache-aside layer in front of order reads.
type OrderCache interface {
	Get(ctx context.Context, id string) (*models.Order, error)
	Set(ctx context.Context, order *models.Order) error
	Delete(ctx context.Context, id string) error
}
