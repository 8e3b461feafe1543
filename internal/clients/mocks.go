package clients

import (
	"context"

	"github.com/Pourna2598/ecommerce-microservices/internal/models"
)

// MockProductClient is a scriptable ProductClient for testing.
type MockProductClient struct {
	CheckStockErr   error
	CheckStockCalls [][]models.StockItem
}

func (m *MockProductClient) CheckStock(ctx context.Context, items []models.StockItem) error {
	m.CheckStockCalls = append(m.CheckStockCalls, items)
	return m.CheckStockErr
}

// MockUserClient is a scriptable UserClient for testing.
type MockUserClient struct {
	Email string
	Err   error
}

func (m *MockUserClient) GetUserEmail(ctx context.Context, userID string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return m.Email, nil
}

// MockOrderClient is a scriptable OrderClient for testing.
type MockOrderClient struct {
	Order           *models.Order
	GetErr          error
	MarkPaidErr     error
	StatusErr       error
	MarkPaidCalls   []string
	MarkPaidMethods []models.PaymentMethod
	StatusCalls     []models.OrderStatus
}

func (m *MockOrderClient) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return m.Order, nil
}

func (m *MockOrderClient) MarkOrderPaid(ctx context.Context, orderID string, result *models.PaymentResult, method models.PaymentMethod) error {
	m.MarkPaidCalls = append(m.MarkPaidCalls, orderID)
	m.MarkPaidMethods = append(m.MarkPaidMethods, method)
	return m.MarkPaidErr
}

func (m *MockOrderClient) UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) error {
	m.StatusCalls = append(m.StatusCalls, status)
	return m.StatusErr
}
