package events

import (
	"context"
	"encoding/json"
	"testing"

	"go.uber.org/zap"

	"github.com/Pourna2598/ecommerce-microservices/internal/auth"
	"github.com/Pourna2598/ecommerce-microservices/internal/clients"
	"github.com/Pourna2598/ecommerce-microservices/internal/config"
	"github.com/Pourna2598/ecommerce-microservices/internal/eventbus"
	"github.com/Pourna2598/ecommerce-microservices/internal/models"
	"github.com/Pourna2598/ecommerce-microservices/internal/repository"
	"github.com/Pourna2598/ecommerce-microservices/internal/service"
)

func newConsumerFixture(t *testing.T) (*PaymentEventConsumer, *repository.MemoryOrderRepository, string) {
	t.Helper()

	repo := repository.NewMemoryOrderRepository()
	orders := service.NewOrderService(
		repo,
		repository.NoopOrderCache{},
		&clients.MockProductClient{},
		&clients.MockUserClient{Email: "buyer@example.com"},
		eventbus.NewMockPublisher(),
		config.PricingConfig{TaxRate: 0.15, FlatShippingRate: 10, FreeShippingMin: 100},
		zap.NewNop(),
	)

	order, err := orders.CreateOrder(context.Background(),
		&auth.Identity{UserID: "u1", Email: "u1@example.com"},
		&models.CreateOrderRequest{
			OrderItems: []models.OrderItem{{ProductID: "p1", Name: "Widget", Price: 20, Quantity: 1}},
			ShippingAddress: models.ShippingAddress{
				Address: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US",
			},
			PaymentMethod: "Credit Card",
		})
	if err != nil {
		t.Fatal(err)
	}

	return NewPaymentEventConsumer(orders, zap.NewNop()), repo, order.ID
}

func TestConsumerHandlesRefundEvent(t *testing.T) {
	consumer, repo, orderID := newConsumerFixture(t)

	body, _ := json.Marshal(models.PaymentRefundedEvent{
		PaymentID: "pay-1", OrderID: orderID, UserID: "u1", RefundID: "ref-1",
	})
	if err := consumer.handle(context.Background(), models.TopicPaymentRefunded, body); err != nil {
		t.Fatalf("handle failed: %v", err)
	}

	order, err := repo.GetByID(context.Background(), orderID)
	if err != nil {
		t.Fatal(err)
	}
	if order.Status != models.OrderStatusCancelled {
		t.Errorf("Status = %q, want cancelled", order.Status)
	}
}

func TestConsumerHandlesFailedEvent(t *testing.T) {
	consumer, repo, orderID := newConsumerFixture(t)

	body, _ := json.Marshal(models.PaymentFailedEvent{
		OrderID: orderID, UserID: "u1", Amount: 33, Reason: "declined",
	})
	if err := consumer.handle(context.Background(), models.TopicPaymentFailed, body); err != nil {
		t.Fatalf("handle failed: %v", err)
	}

	// A failed payment leaves the order pending for another attempt.
	order, err := repo.GetByID(context.Background(), orderID)
	if err != nil {
		t.Fatal(err)
	}
	if order.Status != models.OrderStatusPending {
		t.Errorf("Status = %q, want pending", order.Status)
	}
}

func TestConsumerSkipsMalformedAndUnknown(t *testing.T) {
	consumer, _, _ := newConsumerFixture(t)

	// Malformed payloads are dropped, not redelivered forever.
	if err := consumer.handle(context.Background(), models.TopicPaymentRefunded, []byte("{not json")); err != nil {
		t.Errorf("malformed payload must not error: %v", err)
	}
	if err := consumer.handle(context.Background(), "order.created", []byte("{}")); err != nil {
		t.Errorf("unexpected key must not error: %v", err)
	}
}
