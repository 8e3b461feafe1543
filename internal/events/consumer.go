// Package events wires bus subscriptions to service handlers.
package events

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/Pourna2598/ecommerce-microservices/internal/eventbus"
	"github.com/Pourna2598/ecommerce-microservices/internal/models"
	"github.com/Pourna2598/ecommerce-microservices/internal/service"
)

const paymentEventsQueue = "orders.payment-events"

// PaymentEventConsumer feeds payment events from the bus into the order
// service so refunds and failures reconcile order state.
type PaymentEventConsumer struct {
	orders *service.OrderService
	logger *zap.Logger
}

// NewPaymentEventConsumer creates a consumer bound to the order service.
func NewPaymentEventConsumer(orders *service.OrderService, logger *zap.Logger) *PaymentEventConsumer {
	return &PaymentEventConsumer{orders: orders, logger: logger}
}

// Start subscribes to the payment topics. The subscription survives broker
// reconnects; redelivered events are safe because the handlers are
// idempotent.
func (c *PaymentEventConsumer) Start(bus *eventbus.Bus) error {
	keys := []string{models.TopicPaymentRefunded, models.TopicPaymentFailed}
	return bus.Subscribe(paymentEventsQueue, keys, c.handle)
}

func (c *PaymentEventConsumer) handle(ctx context.Context, routingKey string, body []byte) error {
	switch routingKey {
	case models.TopicPaymentRefunded:
		var event models.PaymentRefundedEvent
		if err := json.Unmarshal(body, &event); err != nil {
			c.logger.Error("malformed payment refunded event", zap.Error(err))
			return nil
		}
		return c.orders.HandlePaymentRefunded(ctx, event)
	case models.TopicPaymentFailed:
		var event models.PaymentFailedEvent
		if err := json.Unmarshal(body, &event); err != nil {
			c.logger.Error("malformed payment failed event", zap.Error(err))
			return nil
		}
		return c.orders.HandlePaymentFailed(ctx, event)
	default:
		c.logger.Warn("unexpected routing key", zap.String("routing_key", routingKey))
		return nil
	}
}
