package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Pourna2598/ecommerce-microservices/internal/apperrors"
	"github.com/Pourna2598/ecommerce-microservices/internal/models"
)

// MemoryOrderRepository is an in-memory OrderRepository used in tests and
// local development without Postgres.
type MemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*models.Order
}

// NewMemoryOrderRepository creates an empty in-memory order repository.
func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{orders: make(map[string]*models.Order)}
}

func (r *MemoryOrderRepository) Create(ctx context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

func (r *MemoryOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("order")
	}
	cp := *order
	return &cp, nil
}

func (r *MemoryOrderRepository) Update(ctx context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.orders[order.ID]
	if !ok {
		return apperrors.NewNotFoundError("order")
	}
	if current.Version != order.Version {
		return apperrors.NewConflictError("order was modified concurrently")
	}

	cp := *order
	cp.Version++
	cp.UpdatedAt = time.Now()
	r.orders[order.ID] = &cp
	order.Version = cp.Version
	return nil
}

func (r *MemoryOrderRepository) List(ctx context.Context, filter models.OrderFilter) ([]*models.Order, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*models.Order
	for _, order := range r.orders {
		if filter.UserID != "" && order.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		cp := *order
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	page := filter.Page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * PageSize
	if start >= total {
		return nil, total, nil
	}
	end := start + PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *MemoryOrderRepository) Stats(ctx context.Context) (*models.OrderStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &models.OrderStats{}
	counts := make(map[string]int)
	for _, order := range r.orders {
		stats.TotalOrders++
		stats.TotalRevenue += order.TotalPrice
		counts[string(order.Status)]++
	}
	if stats.TotalOrders > 0 {
		stats.AverageOrderValue = stats.TotalRevenue / float64(stats.TotalOrders)
	}
	for status, count := range counts {
		stats.StatusStats = append(stats.StatusStats, models.StatusCount{Status: status, Count: count})
	}
	sort.Slice(stats.StatusStats, func(i, j int) bool {
		return stats.StatusStats[i].Status < stats.StatusStats[j].Status
	})
	return stats, nil
}

func (r *MemoryOrderRepository) Recent(ctx context.Context, limit int) ([]*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []*models.Order
	for _, order := range r.orders {
		cp := *order
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// MemoryPaymentRepository is an in-memory PaymentRepository. Like the
// Postgres implementation it rejects a second payment for the same order.
type MemoryPaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*models.Payment
	byOrder  map[string]string
}

// NewMemoryPaymentRepository creates an empty in-memory payment repository.
func NewMemoryPaymentRepository() *MemoryPaymentRepository {
	return &MemoryPaymentRepository{
		payments: make(map[string]*models.Payment),
		byOrder:  make(map[string]string),
	}
}

func (r *MemoryPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byOrder[payment.OrderID]; exists {
		return apperrors.NewConflictError("Payment already exists for this order")
	}

	cp := *payment
	r.payments[payment.ID] = &cp
	r.byOrder[payment.OrderID] = payment.ID
	return nil
}

func (r *MemoryPaymentRepository) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	payment, ok := r.payments[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("payment")
	}
	cp := *payment
	return &cp, nil
}

func (r *MemoryPaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byOrder[orderID]
	if !ok {
		return nil, apperrors.NewNotFoundError("payment")
	}
	cp := *r.payments[id]
	return &cp, nil
}

func (r *MemoryPaymentRepository) Update(ctx context.Context, payment *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.payments[payment.ID]
	if !ok {
		return apperrors.NewNotFoundError("payment")
	}
	if current.Version != payment.Version {
		return apperrors.NewConflictError("payment was modified concurrently")
	}

	cp := *payment
	cp.Version++
	cp.UpdatedAt = time.Now()
	r.payments[payment.ID] = &cp
	payment.Version = cp.Version
	return nil
}

func (r *MemoryPaymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*models.Payment
	for _, payment := range r.payments {
		if filter.UserID != "" && payment.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && payment.Status != filter.Status {
			continue
		}
		cp := *payment
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	page := filter.Page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * PageSize
	if start >= total {
		return nil, total, nil
	}
	end := start + PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *MemoryPaymentRepository) Stats(ctx context.Context) (*models.PaymentStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &models.PaymentStats{}
	counts := make(map[string]int)
	for _, payment := range r.payments {
		stats.TotalPayments++
		stats.TotalAmount += payment.Amount
		counts[string(payment.Status)]++
	}
	if stats.TotalPayments > 0 {
		stats.AverageAmount = stats.TotalAmount / float64(stats.TotalPayments)
	}
	for status, count := range counts {
		stats.StatusStats = append(stats.StatusStats, models.StatusCount{Status: status, Count: count})
	}
	sort.Slice(stats.StatusStats, func(i, j int) bool {
		return stats.StatusStats[i].Status < stats.StatusStats[j].Status
	})
	return stats, nil
}
