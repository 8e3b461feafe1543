package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/Pourna2598/ecommerce-microservices/internal/apperrors"
	"github.com/Pourna2598/ecommerce-microservices/internal/auth"
	"github.com/Pourna2598/ecommerce-microservices/internal/clients"
	"github.com/Pourna2598/ecommerce-microservices/internal/eventbus"
	"github.com/Pourna2598/ecommerce-microservices/internal/models"
	"github.com/Pourna2598/ecommerce-microservices/internal/repository"
)

type orderFixture struct {
	svc       *OrderService
	repo      *repository.MemoryOrderRepository
	publisher *eventbus.MockPublisher
	product   *clients.MockProductClient
	user      *clients.MockUserClient
}

func newOrderFixture() *orderFixture {
	repo := repository.NewMemoryOrderRepository()
	publisher := eventbus.NewMockPublisher()
	product := &clients.MockProductClient{}
	user := &clients.MockUserClient{Email: "buyer@example.com"}

	svc := NewOrderService(
		repo,
		repository.NoopOrderCache{},
		product,
		user,
		publisher,
		testPricing,
		zap.NewNop(),
	)
	return &orderFixture{svc: svc, repo: repo, publisher: publisher, product: product, user: user}
}

func userIdentity(userID string) *auth.Identity {
	return &auth.Identity{UserID: userID, Email: userID + "@example.com"}
}

func serviceIdentity() *auth.Identity {
	return &auth.Identity{Service: "payment-service"}
}

func validCreateRequest() *models.CreateOrderRequest {
	return &models.CreateOrderRequest{
		OrderItems: []models.OrderItem{
			{ProductID: "prod-1", Name: "Widget", Price: 20, Quantity: 2},
		},
		ShippingAddress: models.ShippingAddress{
			Address: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US",
		},
		PaymentMethod: "Credit Card",
	}
}

func TestCreateOrder(t *testing.T) {
	f := newOrderFixture()

	order, err := f.svc.CreateOrder(context.Background(), userIdentity("user-1"), validCreateRequest())
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	if order.Status != models.OrderStatusPending {
		t.Errorf("Status = %q, want pending", order.Status)
	}
	if order.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", order.UserID)
	}
	if order.ItemsPrice != 40 || order.TaxPrice != 6 || order.ShippingPrice != 10 || order.TotalPrice != 56 {
		t.Errorf("totals = %v/%v/%v/%v, want 40/6/10/56",
			order.ItemsPrice, order.TaxPrice, order.ShippingPrice, order.TotalPrice)
	}
	if order.IsPaid || order.IsDelivered {
		t.Error("new order must not be paid or delivered")
	}
	if !order.IsCancellable() {
		t.Error("new order must be cancellable")
	}

	events := f.publisher.ByKey(models.TopicOrderCreated)
	if len(events) != 1 {
		t.Fatalf("expected 1 order.created event, got %d", len(events))
	}
	var event models.OrderCreatedEvent
	if err := json.Unmarshal(events[0].Body, &event); err != nil {
		t.Fatalf("failed to parse event: %v", err)
	}
	if event.OrderID != order.ID || event.TotalAmount != 56 || event.UserEmail != "user-1@example.com" {
		t.Errorf("unexpected event payload: %+v", event)
	}

	if len(f.product.CheckStockCalls) != 1 {
		t.Fatalf("expected 1 stock check, got %d", len(f.product.CheckStockCalls))
	}
}

func TestCreateOrderDefaultsPaymentMethod(t *testing.T) {
	f := newOrderFixture()
	req := validCreateRequest()
	req.PaymentMethod = ""

	order, err := f.svc.CreateOrder(context.Background(), userIdentity("user-1"), req)
	if err != nil {
		t.Fatalf("CreateOrder must accept an omitted payment method: %v", err)
	}
	if order.PaymentMethod != string(models.PaymentMethodPending) {
		t.Errorf("PaymentMethod = %q, want %q", order.PaymentMethod, models.PaymentMethodPending)
	}
}

func TestCreateOrderDefaultsItemImage(t *testing.T) {
	f := newOrderFixture()
	req := validCreateRequest()
	req.OrderItems = []models.OrderItem{
		{ProductID: "prod-1", Name: "Widget", Price: 20, Quantity: 1},
		{ProductID: "prod-2", Name: "Gadget", Price: 5, Quantity: 1, Image: "https://cdn.example.com/gadget.png"},
	}

	order, err := f.svc.CreateOrder(context.Background(), userIdentity("user-1"), req)
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	if order.OrderItems[0].Image != defaultProductImage {
		t.Errorf("Image = %q, want placeholder", order.OrderItems[0].Image)
	}
	if order.OrderItems[1].Image != "https://cdn.example.com/gadget.png" {
		t.Errorf("supplied image must be kept, got %q", order.OrderItems[1].Image)
	}
}

func TestCreateOrderEmptyItems(t *testing.T) {
	f := newOrderFixture()

	req := validCreateRequest()
	req.OrderItems = nil

	_, err := f.svc.CreateOrder(context.Background(), userIdentity("user-1"), req)
	if !apperrors.IsValidation(err) {
		t.Errorf("expected ValidationError, got %v", err)
	}
	if len(f.publisher.Events) != 0 {
		t.Error("no events should be published for a rejected order")
	}
}

func TestCreateOrderOutOfStock(t *testing.T) {
	f := newOrderFixture()
	f.product.CheckStockErr = &apperrors.StockError{
		OutOfStockItems: []apperrors.OutOfStockItem{{ProductID: "prod-1", Requested: 2, Available: 0}},
	}

	_, err := f.svc.CreateOrder(context.Background(), userIdentity("user-1"), validCreateRequest())
	var stockErr *apperrors.StockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected StockError, got %v", err)
	}
	if len(f.publisher.Events) != 0 {
		t.Error("no events should be published when stock reservation fails")
	}
}

func TestCreateOrderPublishFailureTolerated(t *testing.T) {
	f := newOrderFixture()
	f.publisher.FailWith = eventbus.ErrNotConnected

	order, err := f.svc.CreateOrder(context.Background(), userIdentity("user-1"), validCreateRequest())
	if err != nil {
		t.Fatalf("CreateOrder must survive a publish failure, got %v", err)
	}
	if _, err := f.repo.GetByID(context.Background(), order.ID); err != nil {
		t.Errorf("order should be persisted despite publish failure: %v", err)
	}
}

func TestGetOrderOwnership(t *testing.T) {
	f := newOrderFixture()
	order, _ := f.svc.CreateOrder(context.Background(), userIdentity("user-1"), validCreateRequest())

	if _, err := f.svc.GetOrder(context.Background(), userIdentity("user-2"), order.ID); !apperrors.IsForbidden(err) {
		t.Errorf("expected ForbiddenError for other user, got %v", err)
	}
	if _, err := f.svc.GetOrder(context.Background(), serviceIdentity(), order.ID); err != nil {
		t.Errorf("service identity must bypass ownership: %v", err)
	}
	admin := &auth.Identity{UserID: "admin-1", IsAdmin: true}
	if _, err := f.svc.GetOrder(context.Background(), admin, order.ID); err != nil {
		t.Errorf("admin must bypass ownership: %v", err)
	}
	if _, err := f.svc.GetOrder(context.Background(), userIdentity("user-1"), "missing"); !apperrors.IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestMarkPaid(t *testing.T) {
	f := newOrderFixture()
	order, _ := f.svc.CreateOrder(context.Background(), userIdentity("user-1"), validCreateRequest())

	result := &models.PaymentResult{ID: "pay-1", Status: "completed"}
	paid, err := f.svc.MarkPaid(context.Background(), serviceIdentity(), order.ID, result, "Credit Card")
	if err != nil {
		t.Fatalf("MarkPaid failed: %v", err)
	}

	if !paid.IsPaid || paid.PaidAt == nil {
		t.Error("order must be paid with a timestamp")
	}
	if paid.Status != models.OrderStatusProcessing {
		t.Errorf("Status = %q, want processing", paid.Status)
	}
	if paid.PaymentResult == nil || paid.PaymentResult.ID != "pay-1" {
		t.Error("payment result must be recorded")
	}
	if paid.IsCancellable() {
		t.Error("paid order must not be cancellable")
	}

	if len(f.publisher.ByKey(models.TopicOrderUpdated)) != 1 {
		t.Error("expected one order.updated event")
	}
}

func TestMarkPaidIdempotencyGuard(t *testing.T) {
	f := newOrderFixture()
	order, _ := f.svc.CreateOrder(context.Background(), userIdentity("user-1"), validCreateRequest())

	result := &models.PaymentResult{ID: "pay-1", Status: "completed"}
	first, err := f.svc.MarkPaid(context.Background(), serviceIdentity(), order.ID, result, "")
	if err != nil {
		t.Fatalf("first MarkPaid failed: %v", err)
	}

	_, err = f.svc.MarkPaid(context.Background(), serviceIdentity(), order.ID,
		&models.PaymentResult{ID: "pay-2"}, "")
	if !apperrors.IsConflict(err) {
		t.Fatalf("second MarkPaid must be ConflictError, got %v", err)
	}

	// Duplicate delivery must not overwrite the original confirmation.
	current, _ := f.repo.GetByID(context.Background(), order.ID)
	if current.PaymentResult.ID != "pay-1" {
		t.Errorf("PaymentResult.ID = %q, want pay-1", current.PaymentResult.ID)
	}
	if !current.PaidAt.Equal(*first.PaidAt) {
		t.Error("paidAt must not change on duplicate delivery")
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	tests := []struct {
		name     string
		from     models.OrderStatus
		to       models.OrderStatus
		wantErr  bool
		conflict bool
	}{
		{"pending to processing", models.OrderStatusPending, models.OrderStatusProcessing, false, false},
		{"pending to cancelled", models.OrderStatusPending, models.OrderStatusCancelled, false, false},
		{"processing to shipped", models.OrderStatusProcessing, models.OrderStatusShipped, false, false},
		{"shipped to delivered", models.OrderStatusShipped, models.OrderStatusDelivered, false, false},
		{"pending to shipped skips processing", models.OrderStatusPending, models.OrderStatusShipped, true, true},
		{"delivered is terminal", models.OrderStatusDelivered, models.OrderStatusShipped, true, true},
		{"cancelled is terminal", models.OrderStatusCancelled, models.OrderStatusProcessing, true, true},
		{"shipped cannot cancel", models.OrderStatusShipped, models.OrderStatusCancelled, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderFixture()
			order, _ := f.svc.CreateOrder(context.Background(), userIdentity("user-1"), validCreateRequest())
			seeded, _ := f.repo.GetByID(context.Background(), order.ID)
			seeded.Status = tt.from
			if err := f.repo.Update(context.Background(), seeded); err != nil {
				t.Fatalf("seeding failed: %v", err)
			}

			_, err := f.svc.UpdateStatus(context.Background(), order.ID, tt.to)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				if tt.conflict && !apperrors.IsConflict(err) {
					t.Errorf("expected ConflictError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("UpdateStatus failed: %v", err)
			}
		})
	}
}

func TestUpdateStatusSameStatusIsNoop(t *testing.T) {
	f := newOrderFixture()
	order, _ := f.svc.CreateOrder(context.Background(), userIdentity("user-1"), validCreateRequest())
	f.publisher.Events = nil

	updated, err := f.svc.UpdateStatus(context.Background(), order.ID, models.OrderStatusPending)
	if err != nil {
		t.Fatalf("same-status update must succeed: %v", err)
	}
	if updated.Status != models.OrderStatusPending {
		t.Errorf("Status = %q, want pending", updated.Status)
	}
	if len(f.publisher.Events) != 0 {
		t.Error("no event expected for a no-op update")
	}
}

func TestUpdateStatusUnknownStatus(t *testing.T) {
	f := newOrderFixture()
	order, _ := f.svc.CreateOrder(context.Background(), userIdentity("user-1"), validCreateRequest())

	if _, err := f.svc.UpdateStatus(context.Background(), order.ID, "misplaced"); !apperrors.IsValidation(err) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestUpdateStatusDeliveredMonotonic(t *testing.T) {
	f := newOrderFixture()
	order, _ := f.svc.CreateOrder(context.Background(), userIdentity("user-1"), validCreateRequest())

	if _, err := f.svc.UpdateStatus(context.Background(), order.ID, models.OrderStatusProcessing); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.UpdateStatus(context.Background(), order.ID, models.OrderStatusShipped); err != nil {
		t.Fatal(err)
	}
	delivered, err := f.svc.UpdateStatus(context.Background(), order.ID, models.OrderStatusDelivered)
	if err != nil {
		t.Fatal(err)
	}
	if !delivered.IsDelivered || delivered.DeliveredAt == nil {
		t.Error("delivered order must carry the delivery timestamp")
	}
	if delivered.IsCancellable() {
		t.Error("delivered order must not be cancellable")
	}
}

func TestCancelOrder(t *testing.T) {
	f := newOrderFixture()
	order, _ := f.svc.CreateOrder(context.Background(), userIdentity("user-1"), validCreateRequest())

	cancelled, err := f.svc.CancelOrder(context.Background(), userIdentity("user-1"), order.ID, "changed my mind")
	if err != nil {
		t.Fatalf("CancelOrder failed: %v", err)
	}
	if cancelled.Status != models.OrderStatusCancelled {
		t.Errorf("Status = %q, want cancelled", cancelled.Status)
	}
	if cancelled.CancellationReason != "changed my mind" {
		t.Errorf("CancellationReason = %q", cancelled.CancellationReason)
	}

	events := f.publisher.ByKey(models.TopicOrderCancelled)
	if len(events) != 1 {
		t.Fatalf("expected 1 order.cancelled event, got %d", len(events))
	}

	// A second cancel hits the cancellability guard.
	if _, err := f.svc.CancelOrder(context.Background(), userIdentity("user-1"), order.ID, "again"); !apperrors.IsConflict(err) {
		t.Errorf("expected ConflictError on repeat cancel, got %v", err)
	}
}

func TestCancelPaidOrderRejected(t *testing.T) {
	f := newOrderFixture()
	order, _ := f.svc.CreateOrder(context.Background(), userIdentity("user-1"), validCreateRequest())
	if _, err := f.svc.MarkPaid(context.Background(), serviceIdentity(), order.ID,
		&models.PaymentResult{ID: "pay-1"}, ""); err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.CancelOrder(context.Background(), userIdentity("user-1"), order.ID, "too late"); !apperrors.IsConflict(err) {
		t.Errorf("expected ConflictError for paid order, got %v", err)
	}
}

func TestCancelOrderOwnership(t *testing.T) {
	f := newOrderFixture()
	order, _ := f.svc.CreateOrder(context.Background(), userIdentity("user-1"), validCreateRequest())

	if _, err := f.svc.CancelOrder(context.Background(), userIdentity("user-2"), order.ID, "not mine"); !apperrors.IsForbidden(err) {
		t.Errorf("expected ForbiddenError, got %v", err)
	}
}

func TestListOrdersPagination(t *testing.T) {
	f := newOrderFixture()
	for i := 0; i < 13; i++ {
		if _, err := f.svc.CreateOrder(context.Background(), userIdentity("user-1"), validCreateRequest()); err != nil {
			t.Fatal(err)
		}
	}

	page, err := f.svc.ListOrders(context.Background(), models.OrderFilter{Page: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Orders) != 10 {
		t.Errorf("page 1 size = %d, want 10", len(page.Orders))
	}
	if page.Total != 13 || page.Pages != 2 {
		t.Errorf("total/pages = %d/%d, want 13/2", page.Total, page.Pages)
	}

	page2, err := f.svc.ListOrders(context.Background(), models.OrderFilter{Page: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(page2.Orders) != 3 {
		t.Errorf("page 2 size = %d, want 3", len(page2.Orders))
	}

	// Page zero clamps to one.
	clamped, err := f.svc.ListOrders(context.Background(), models.OrderFilter{Page: 0})
	if err != nil {
		t.Fatal(err)
	}
	if clamped.Page != 1 {
		t.Errorf("clamped page = %d, want 1", clamped.Page)
	}
}

func TestMyOrdersFiltersByCaller(t *testing.T) {
	f := newOrderFixture()
	if _, err := f.svc.CreateOrder(context.Background(), userIdentity("user-1"), validCreateRequest()); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.CreateOrder(context.Background(), userIdentity("user-2"), validCreateRequest()); err != nil {
		t.Fatal(err)
	}

	page, err := f.svc.MyOrders(context.Background(), userIdentity("user-1"), 1)
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 {
		t.Errorf("Total = %d, want 1", page.Total)
	}
	for _, o := range page.Orders {
		if o.UserID != "user-1" {
			t.Errorf("foreign order %s in my orders", o.ID)
		}
	}
}

func TestStatsDegradesEmailToUnknown(t *testing.T) {
	f := newOrderFixture()
	f.user.Err = apperrors.NewUpstreamError("user-service", 503, "unavailable")
	if _, err := f.svc.CreateOrder(context.Background(), userIdentity("user-1"), validCreateRequest()); err != nil {
		t.Fatal(err)
	}

	stats, err := f.svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats must survive a user lookup failure: %v", err)
	}
	if stats.TotalOrders != 1 {
		t.Errorf("TotalOrders = %d, want 1", stats.TotalOrders)
	}
	if len(stats.RecentOrders) != 1 || stats.RecentOrders[0].UserEmail != "unknown" {
		t.Errorf("recent order email should degrade to unknown: %+v", stats.RecentOrders)
	}
}

func TestHandlePaymentRefunded(t *testing.T) {
	f := newOrderFixture()
	order, _ := f.svc.CreateOrder(context.Background(), userIdentity("user-1"), validCreateRequest())
	if _, err := f.svc.MarkPaid(context.Background(), serviceIdentity(), order.ID,
		&models.PaymentResult{ID: "pay-1"}, ""); err != nil {
		t.Fatal(err)
	}

	event := models.PaymentRefundedEvent{PaymentID: "pay-1", OrderID: order.ID, UserID: "user-1", RefundID: "ref-1"}
	if err := f.svc.HandlePaymentRefunded(context.Background(), event); err != nil {
		t.Fatalf("HandlePaymentRefunded failed: %v", err)
	}

	current, _ := f.repo.GetByID(context.Background(), order.ID)
	if current.Status != models.OrderStatusCancelled {
		t.Errorf("Status = %q, want cancelled", current.Status)
	}
	if current.CancellationReason != "payment refunded" {
		t.Errorf("CancellationReason = %q", current.CancellationReason)
	}

	// Redelivery is a no-op.
	if err := f.svc.HandlePaymentRefunded(context.Background(), event); err != nil {
		t.Fatalf("redelivered event must be harmless: %v", err)
	}
	if got := len(f.publisher.ByKey(models.TopicOrderCancelled)); got != 1 {
		t.Errorf("order.cancelled events = %d, want 1", got)
	}
}

func TestHandlePaymentRefundedDeliveredOrderUnchanged(t *testing.T) {
	f := newOrderFixture()
	order, _ := f.svc.CreateOrder(context.Background(), userIdentity("user-1"), validCreateRequest())
	for _, status := range []models.OrderStatus{
		models.OrderStatusProcessing, models.OrderStatusShipped, models.OrderStatusDelivered,
	} {
		if _, err := f.svc.UpdateStatus(context.Background(), order.ID, status); err != nil {
			t.Fatal(err)
		}
	}

	event := models.PaymentRefundedEvent{OrderID: order.ID, RefundID: "ref-1"}
	if err := f.svc.HandlePaymentRefunded(context.Background(), event); err != nil {
		t.Fatalf("HandlePaymentRefunded failed: %v", err)
	}

	current, _ := f.repo.GetByID(context.Background(), order.ID)
	if current.Status != models.OrderStatusDelivered {
		t.Errorf("delivered order must keep its status, got %q", current.Status)
	}
}
