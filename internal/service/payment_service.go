package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Pourna2598/ecommerce-microservices/internal/apperrors"
	"github.com/Pourna2598/ecommerce-microservices/internal/auth"
	"github.com/Pourna2598/ecommerce-microservices/internal/clients"
	"github.com/Pourna2598/ecommerce-microservices/internal/eventbus"
	"github.com/Pourna2598/ecommerce-microservices/internal/gateway"
	"github.com/Pourna2598/ecommerce-microservices/internal/models"
	"github.com/Pourna2598/ecommerce-microservices/internal/repository"
)

// PaymentService handles payment business logic.
type PaymentService struct {
	repo        repository.PaymentRepository
	orderClient clients.OrderClient
	processor   gateway.Processor
	publisher   eventbus.Publisher
	logger      *zap.Logger
}

// NewPaymentService creates a new payment service.
func NewPaymentService(
	repo repository.PaymentRepository,
	orderClient clients.OrderClient,
	processor gateway.Processor,
	publisher eventbus.Publisher,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		repo:        repo,
		orderClient: orderClient,
		processor:   processor,
		publisher:   publisher,
		logger:      logger,
	}
}

// ProcessPayment charges the caller for an order. Exactly one payment may
// exist per order; a duplicate attempt returns ConflictError whether it is
// caught by the lookup or by the store's unique constraint. After a
// successful capture the order service is told synchronously; that callback
// failing is logged and reconciled later, never unwound.
func (s *PaymentService) ProcessPayment(ctx context.Context, id *auth.Identity, req *models.ProcessPaymentRequest) (*models.Payment, error) {
	if err := validateProcessPayment(req); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(req.OrderID); err != nil {
		return nil, apperrors.NewValidationError("orderId", "order id must be a valid uuid")
	}

	order, err := s.orderClient.GetOrder(ctx, req.OrderID)
	if err != nil {
		s.publishFailed(ctx, req.OrderID, id.UserID, req.Amount, err.Error())
		return nil, err
	}
	if !id.CanAccess(order.UserID) {
		err := apperrors.NewForbiddenError("not authorized to pay for this order")
		s.publishFailed(ctx, req.OrderID, id.UserID, req.Amount, err.Error())
		return nil, err
	}

	if existing, err := s.repo.GetByOrderID(ctx, req.OrderID); err == nil && existing != nil {
		return nil, apperrors.NewConflictError("Payment already exists for this order")
	} else if err != nil && !apperrors.IsNotFound(err) {
		return nil, err
	}

	charge, err := s.processor.Charge(ctx, req.Amount, string(req.PaymentMethod))
	if err != nil {
		s.publishFailed(ctx, req.OrderID, order.UserID, req.Amount, err.Error())
		return nil, err
	}

	now := time.Now()
	payment := &models.Payment{
		ID:            uuid.New().String(),
		OrderID:       req.OrderID,
		UserID:        order.UserID,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.CardDetails != nil {
		payment.CardDetails = MaskCard(req.CardDetails)
	}

	if !charge.Success {
		payment.Status = models.PaymentStatusFailed
		payment.ErrorMessage = charge.Message
		if err := s.repo.Create(ctx, payment); err != nil {
			s.publishFailed(ctx, payment.OrderID, payment.UserID, payment.Amount, err.Error())
			return nil, err
		}

		s.logger.Info("payment declined",
			zap.String("order_id", req.OrderID),
			zap.String("reason", charge.Message))
		s.publishFailed(ctx, payment.OrderID, payment.UserID, payment.Amount, charge.Message)
		return nil, apperrors.NewValidationError("payment", "Payment processing failed: "+charge.Message)
	}

	payment.Status = models.PaymentStatusCompleted
	payment.TransactionID = charge.TransactionID
	if err := s.repo.Create(ctx, payment); err != nil {
		s.publishFailed(ctx, payment.OrderID, payment.UserID, payment.Amount, err.Error())
		return nil, err
	}

	s.logger.Info("payment captured",
		zap.String("payment_id", payment.ID),
		zap.String("order_id", payment.OrderID),
		zap.String("transaction_id", payment.TransactionID),
		zap.Float64("amount", payment.Amount))

	result := &models.PaymentResult{
		ID:         payment.ID,
		Status:     string(payment.Status),
		UpdateTime: now.Format(time.RFC3339),
		PayerEmail: id.Email,
	}
	if err := s.orderClient.MarkOrderPaid(ctx, payment.OrderID, result, payment.PaymentMethod); err != nil {
		// Log but don't fail
		s.logger.Error("failed to mark order paid, will reconcile via events",
			zap.String("order_id", payment.OrderID), zap.Error(err))
	}

	if err := s.publisher.Publish(ctx, models.TopicPaymentSuccessful, models.PaymentSuccessfulEvent{
		PaymentID:     payment.ID,
		OrderID:       payment.OrderID,
		UserID:        payment.UserID,
		Amount:        payment.Amount,
		Status:        payment.Status,
		TransactionID: payment.TransactionID,
	}); err != nil {
		s.logger.Warn("failed to publish payment successful event",
			zap.String("payment_id", payment.ID), zap.Error(err))
	}

	return payment, nil
}

// GetPayment fetches a payment by id, enforcing ownership.
func (s *PaymentService) GetPayment(ctx context.Context, id *auth.Identity, paymentID string) (*models.Payment, error) {
	payment, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !id.CanAccess(payment.UserID) {
		return nil, apperrors.NewForbiddenError("not authorized to view this payment")
	}
	return payment, nil
}

// GetPaymentByOrder fetches the payment for an order, enforcing ownership.
func (s *PaymentService) GetPaymentByOrder(ctx context.Context, id *auth.Identity, orderID string) (*models.Payment, error) {
	payment, err := s.repo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !id.CanAccess(payment.UserID) {
		return nil, apperrors.NewForbiddenError("not authorized to view this payment")
	}
	return payment, nil
}

// UpdateStatus sets a payment's status. Same-status calls succeed without a
// write. Moving to refunded goes through the processor and is only allowed
// from completed.
func (s *PaymentService) UpdateStatus(ctx context.Context, paymentID string, status models.PaymentStatus) (*models.Payment, error) {
	if !models.ValidPaymentStatus(status) {
		return nil, apperrors.NewValidationError("status", "unknown payment status")
	}

	payment, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status == status {
		return payment, nil
	}

	if status == models.PaymentStatusRefunded {
		if err := s.refund(ctx, payment); err != nil {
			return nil, err
		}
		return payment, nil
	}

	if payment.Status == models.PaymentStatusRefunded {
		return nil, apperrors.NewConflictError("refunded payments cannot change status")
	}

	payment.Status = status
	if err := s.repo.Update(ctx, payment); err != nil {
		return nil, err
	}
	s.logger.Info("payment status updated",
		zap.String("payment_id", paymentID), zap.String("status", string(status)))
	return payment, nil
}

// RefundPayment refunds a completed payment, enforcing ownership.
func (s *PaymentService) RefundPayment(ctx context.Context, id *auth.Identity, paymentID string) (*models.Payment, error) {
	payment, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !id.CanAccess(payment.UserID) {
		return nil, apperrors.NewForbiddenError("not authorized to refund this payment")
	}

	if err := s.refund(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// refund runs the processor refund and records it. Only a completed,
// not-yet-refunded payment qualifies.
func (s *PaymentService) refund(ctx context.Context, payment *models.Payment) error {
	if !payment.IsRefundable() {
		return apperrors.NewConflictError("payment is not refundable")
	}

	result, err := s.processor.Refund(ctx, payment.TransactionID, payment.Amount)
	if err != nil {
		return err
	}
	if !result.Success {
		return apperrors.NewValidationError("refund", "refund failed: "+result.Message)
	}

	now := time.Now()
	payment.Status = models.PaymentStatusRefunded
	payment.RefundID = result.RefundID
	payment.RefundedAt = &now
	if err := s.repo.Update(ctx, payment); err != nil {
		return err
	}

	s.logger.Info("payment refunded",
		zap.String("payment_id", payment.ID),
		zap.String("refund_id", payment.RefundID),
		zap.Float64("amount", payment.Amount))

	if err := s.publisher.Publish(ctx, models.TopicPaymentRefunded, models.PaymentRefundedEvent{
		PaymentID:     payment.ID,
		OrderID:       payment.OrderID,
		UserID:        payment.UserID,
		Amount:        payment.Amount,
		TransactionID: payment.TransactionID,
		RefundID:      payment.RefundID,
	}); err != nil {
		s.logger.Warn("failed to publish payment refunded event",
			zap.String("payment_id", payment.ID), zap.Error(err))
	}
	return nil
}

// History returns one page of the caller's own payments.
func (s *PaymentService) History(ctx context.Context, id *auth.Identity, page int) (*models.PaymentPage, error) {
	return s.List(ctx, models.PaymentFilter{UserID: id.UserID, Page: page})
}

// List returns one page of payments matching the filter.
func (s *PaymentService) List(ctx context.Context, filter models.PaymentFilter) (*models.PaymentPage, error) {
	if filter.Status != "" && !models.ValidPaymentStatus(filter.Status) {
		return nil, apperrors.NewValidationError("status", "unknown payment status")
	}
	if filter.Page < 1 {
		filter.Page = 1
	}

	payments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &models.PaymentPage{
		Payments: payments,
		Page:     filter.Page,
		Pages:    pageCount(total),
		Total:    total,
	}, nil
}

// Stats aggregates payment counts and amounts.
func (s *PaymentService) Stats(ctx context.Context) (*models.PaymentStats, error) {
	return s.repo.Stats(ctx)
}

// publishFailed emits payment.failed for every abandoned capture attempt
// past validation, not just gateway declines.
func (s *PaymentService) publishFailed(ctx context.Context, orderID, userID string, amount float64, reason string) {
	if err := s.publisher.Publish(ctx, models.TopicPaymentFailed, models.PaymentFailedEvent{
		OrderID: orderID,
		UserID:  userID,
		Amount:  amount,
		Reason:  reason,
	}); err != nil {
		s.logger.Warn("failed to publish payment failed event",
			zap.String("order_id", orderID), zap.Error(err))
	}
}
