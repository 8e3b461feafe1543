// Package service implements the business logic of the order and payment
// services. Handlers stay thin; every rule lives here.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Pourna2598/ecommerce-microservices/internal/apperrors"
	"github.com/Pourna2598/ecommerce-microservices/internal/auth"
	"github.com/Pourna2598/ecommerce-microservices/internal/clients"
	"github.com/Pourna2598/ecommerce-microservices/internal/config"
	"github.com/Pourna2598/ecommerce-microservices/internal/eventbus"
	"github.com/Pourna2598/ecommerce-microservices/internal/models"
	"github.com/Pourna2598/ecommerce-microservices/internal/repository"
)

const recentOrdersLimit = 5

// defaultProductImage fills in for items submitted without one.
const defaultProductImage = "https://placehold.co/600x400?text=Product+Image"

// unknownEmail is the per-row degradation value when the user service
// cannot resolve an email.
const unknownEmail = "unknown"

// Allowed fulfillment transitions. Terminal states have no entry.
var orderTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending:    {models.OrderStatusProcessing, models.OrderStatusCancelled},
	models.OrderStatusProcessing: {models.OrderStatusShipped, models.OrderStatusCancelled},
	models.OrderStatusShipped:    {models.OrderStatusDelivered},
}

func validTransition(from, to models.OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// OrderService handles order business logic.
type OrderService struct {
	repo          repository.OrderRepository
	cache         repository.OrderCache
	productClient clients.ProductClient
	userClient    clients.UserClient
	publisher     eventbus.Publisher
	pricing       config.PricingConfig
	logger        *zap.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	repo repository.OrderRepository,
	cache repository.OrderCache,
	productClient clients.ProductClient,
	userClient clients.UserClient,
	publisher eventbus.Publisher,
	pricing config.PricingConfig,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		repo:          repo,
		cache:         cache,
		productClient: productClient,
		userClient:    userClient,
		publisher:     publisher,
		pricing:       pricing,
		logger:        logger,
	}
}

// CreateOrder validates the request, reserves stock, and persists a new
// pending order. Prices are recomputed from the items; the publish is
// best-effort and never rolls the order back.
func (s *OrderService) CreateOrder(ctx context.Context, id *auth.Identity, req *models.CreateOrderRequest) (*models.Order, error) {
	if err := validateCreateOrder(req); err != nil {
		return nil, err
	}

	stockItems := make([]models.StockItem, 0, len(req.OrderItems))
	for _, item := range req.OrderItems {
		stockItems = append(stockItems, models.StockItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	if err := s.productClient.CheckStock(ctx, stockItems); err != nil {
		return nil, err
	}

	// The payment method is unknown until a payment completes; markOrderPaid
	// overwrites the placeholder with the real instrument.
	method := req.PaymentMethod
	if method == "" {
		method = string(models.PaymentMethodPending)
	}
	items := make([]models.OrderItem, len(req.OrderItems))
	copy(items, req.OrderItems)
	for i := range items {
		if items[i].Image == "" {
			items[i].Image = defaultProductImage
		}
	}

	totals := ComputeTotals(items, s.pricing)
	now := time.Now()
	order := &models.Order{
		ID:              uuid.New().String(),
		UserID:          id.UserID,
		OrderItems:      items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   method,
		ItemsPrice:      totals.ItemsPrice,
		TaxPrice:        totals.TaxPrice,
		ShippingPrice:   totals.ShippingPrice,
		TotalPrice:      totals.TotalPrice,
		Status:          models.OrderStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("user_id", order.UserID),
		zap.Float64("total", order.TotalPrice))

	email := id.Email
	if email == "" {
		email = s.lookupEmail(ctx, order.UserID)
	}
	if err := s.publisher.Publish(ctx, models.TopicOrderCreated, models.OrderCreatedEvent{
		OrderID:     order.ID,
		UserID:      order.UserID,
		UserEmail:   email,
		TotalAmount: order.TotalPrice,
		Status:      order.Status,
	}); err != nil {
		// Log but don't fail
		s.logger.Warn("failed to publish order created event",
			zap.String("order_id", order.ID), zap.Error(err))
	}

	return order, nil
}

// GetOrder fetches an order, cache first, and enforces ownership.
func (s *OrderService) GetOrder(ctx context.Context, id *auth.Identity, orderID string) (*models.Order, error) {
	if cached, err := s.cache.Get(ctx, orderID); err == nil && cached != nil {
		if !id.CanAccess(cached.UserID) {
			return nil, apperrors.NewForbiddenError("not authorized to view this order")
		}
		return cached, nil
	}

	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !id.CanAccess(order.UserID) {
		return nil, apperrors.NewForbiddenError("not authorized to view this order")
	}

	if err := s.cache.Set(ctx, order); err != nil {
		s.logger.Warn("failed to cache order", zap.String("order_id", orderID), zap.Error(err))
	}
	return order, nil
}

// MarkPaid records a successful payment on the order. A second call for the
// same order returns ConflictError; callers rely on that to detect
// duplicate captures.
func (s *OrderService) MarkPaid(ctx context.Context, id *auth.Identity, orderID string, result *models.PaymentResult, paymentMethod string) (*models.Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !id.CanAccess(order.UserID) {
		return nil, apperrors.NewForbiddenError("not authorized to update this order")
	}
	if order.IsPaid {
		return nil, apperrors.NewConflictError("order is already paid")
	}

	now := time.Now()
	order.IsPaid = true
	order.PaidAt = &now
	order.PaymentResult = result
	if paymentMethod != "" {
		order.PaymentMethod = paymentMethod
	}
	if order.Status == models.OrderStatusPending {
		order.Status = models.OrderStatusProcessing
	}

	if err := s.repo.Update(ctx, order); err != nil {
		return nil, err
	}
	s.invalidate(ctx, orderID)

	s.logger.Info("order marked paid", zap.String("order_id", orderID))
	s.publishUpdated(ctx, order)
	return order, nil
}

// UpdateStatus moves the order along the fulfillment path. Terminal states
// are immutable and only forward transitions are allowed.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) (*models.Order, error) {
	if !models.ValidOrderStatus(status) {
		return nil, apperrors.NewValidationError("status", "unknown order status")
	}

	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == status {
		return order, nil
	}
	if !validTransition(order.Status, status) {
		return nil, apperrors.NewConflictError(
			"cannot change order status from " + string(order.Status) + " to " + string(status))
	}

	order.Status = status
	if status == models.OrderStatusDelivered && !order.IsDelivered {
		now := time.Now()
		order.IsDelivered = true
		order.DeliveredAt = &now
	}

	if err := s.repo.Update(ctx, order); err != nil {
		return nil, err
	}
	s.invalidate(ctx, orderID)

	s.logger.Info("order status updated",
		zap.String("order_id", orderID), zap.String("status", string(status)))
	s.publishUpdated(ctx, order)
	return order, nil
}

// CancelOrder cancels an order that is still cancellable and records the
// reason.
func (s *OrderService) CancelOrder(ctx context.Context, id *auth.Identity, orderID, reason string) (*models.Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !id.CanAccess(order.UserID) {
		return nil, apperrors.NewForbiddenError("not authorized to cancel this order")
	}
	if !order.IsCancellable() {
		return nil, apperrors.NewConflictError("order can no longer be cancelled")
	}

	order.Status = models.OrderStatusCancelled
	order.CancellationReason = reason

	if err := s.repo.Update(ctx, order); err != nil {
		return nil, err
	}
	s.invalidate(ctx, orderID)

	s.logger.Info("order cancelled",
		zap.String("order_id", orderID), zap.String("reason", reason))
	if err := s.publisher.Publish(ctx, models.TopicOrderCancelled, models.OrderCancelledEvent{
		OrderID:            order.ID,
		UserID:             order.UserID,
		Status:             order.Status,
		CancellationReason: order.CancellationReason,
	}); err != nil {
		s.logger.Warn("failed to publish order cancelled event",
			zap.String("order_id", order.ID), zap.Error(err))
	}
	return order, nil
}

// ListOrders returns one page of orders matching the filter.
func (s *OrderService) ListOrders(ctx context.Context, filter models.OrderFilter) (*models.OrderPage, error) {
	if filter.Status != "" && !models.ValidOrderStatus(filter.Status) {
		return nil, apperrors.NewValidationError("status", "unknown order status")
	}
	if filter.Page < 1 {
		filter.Page = 1
	}

	orders, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &models.OrderPage{
		Orders: orders,
		Page:   filter.Page,
		Pages:  pageCount(total),
		Total:  total,
	}, nil
}

// MyOrders returns one page of the caller's own orders.
func (s *OrderService) MyOrders(ctx context.Context, id *auth.Identity, page int) (*models.OrderPage, error) {
	return s.ListOrders(ctx, models.OrderFilter{UserID: id.UserID, Page: page})
}

// Stats aggregates order counts, revenue, and the most recent orders with
// the owner's email attached. A user lookup failure degrades that row to
// "unknown" instead of failing the whole report.
func (s *OrderService) Stats(ctx context.Context) (*models.OrderStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, err
	}

	recent, err := s.repo.Recent(ctx, recentOrdersLimit)
	if err != nil {
		return nil, err
	}
	for _, order := range recent {
		stats.RecentOrders = append(stats.RecentOrders, models.RecentOrder{
			OrderID:    order.ID,
			TotalPrice: order.TotalPrice,
			Status:     order.Status,
			CreatedAt:  order.CreatedAt,
			UserID:     order.UserID,
			UserEmail:  s.lookupEmail(ctx, order.UserID),
		})
	}
	return stats, nil
}

// HandlePaymentRefunded reconciles a refund announced on the bus. Orders
// not yet delivered are cancelled; delivered orders keep their status and
// the refund is logged for manual follow-up. Redelivery is harmless: a
// cancelled order stays cancelled.
func (s *OrderService) HandlePaymentRefunded(ctx context.Context, event models.PaymentRefundedEvent) error {
	order, err := s.repo.GetByID(ctx, event.OrderID)
	if err != nil {
		return err
	}

	if order.Status == models.OrderStatusCancelled {
		return nil
	}
	if order.IsDelivered {
		s.logger.Warn("refund received for delivered order, leaving status unchanged",
			zap.String("order_id", order.ID),
			zap.String("refund_id", event.RefundID))
		return nil
	}

	order.Status = models.OrderStatusCancelled
	order.CancellationReason = "payment refunded"
	if err := s.repo.Update(ctx, order); err != nil {
		return err
	}
	s.invalidate(ctx, order.ID)

	s.logger.Info("order cancelled after refund",
		zap.String("order_id", order.ID), zap.String("refund_id", event.RefundID))
	if err := s.publisher.Publish(ctx, models.TopicOrderCancelled, models.OrderCancelledEvent{
		OrderID:            order.ID,
		UserID:             order.UserID,
		Status:             order.Status,
		CancellationReason: order.CancellationReason,
	}); err != nil {
		s.logger.Warn("failed to publish order cancelled event",
			zap.String("order_id", order.ID), zap.Error(err))
	}
	return nil
}

// HandlePaymentFailed records a failed payment attempt for an order. The
// order stays pending so the customer can retry.
func (s *OrderService) HandlePaymentFailed(ctx context.Context, event models.PaymentFailedEvent) error {
	s.logger.Info("payment failed for order",
		zap.String("order_id", event.OrderID),
		zap.String("reason", event.Reason))
	return nil
}

func (s *OrderService) publishUpdated(ctx context.Context, order *models.Order) {
	if err := s.publisher.Publish(ctx, models.TopicOrderUpdated, models.OrderUpdatedEvent{
		OrderID:     order.ID,
		UserID:      order.UserID,
		Status:      order.Status,
		IsDelivered: order.IsDelivered,
	}); err != nil {
		s.logger.Warn("failed to publish order updated event",
			zap.String("order_id", order.ID), zap.Error(err))
	}
}

func (s *OrderService) invalidate(ctx context.Context, orderID string) {
	if err := s.cache.Delete(ctx, orderID); err != nil {
		s.logger.Warn("failed to invalidate order cache",
			zap.String("order_id", orderID), zap.Error(err))
	}
}

func (s *OrderService) lookupEmail(ctx context.Context, userID string) string {
	email, err := s.userClient.GetUserEmail(ctx, userID)
	if err != nil || email == "" {
		if err != nil {
			s.logger.Warn("user email lookup failed",
				zap.String("user_id", userID), zap.Error(err))
		}
		return unknownEmail
	}
	return email
}

func pageCount(total int) int {
	pages := total / repository.PageSize
	if total%repository.PageSize != 0 {
		pages++
	}
	if pages == 0 {
		pages = 1
	}
	return pages
}
