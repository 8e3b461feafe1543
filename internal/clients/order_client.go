package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/Pourna2598/ecommerce-microservices/internal/apperrors"
	"github.com/Pourna2598/ecommerce-microservices/internal/config"
	"github.com/Pourna2598/ecommerce-microservices/internal/models"
)

// OrderClient is the payment service's view of the order service. Marking
// an order paid through this client is the synchronous reconciliation step;
// events are advisory only.
type OrderClient interface {
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	MarkOrderPaid(ctx context.Context, orderID string, result *models.PaymentResult, method models.PaymentMethod) error
	UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) error
}

// HTTPOrderClient implements OrderClient over HTTP.
type HTTPOrderClient struct {
	baseURL       string
	httpClient    *http.Client
	serviceName   string
	serviceSecret string
	logger        *zap.Logger
}

// NewHTTPOrderClient creates a new HTTP-based order client.
func NewHTTPOrderClient(cfg config.ServiceConfig, serviceName, serviceSecret string, logger *zap.Logger) *HTTPOrderClient {
	return &HTTPOrderClient{
		baseURL:       cfg.BaseURL,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		serviceName:   serviceName,
		serviceSecret: serviceSecret,
		logger:        logger,
	}
}

// GetOrder fetches an order by id.
func (c *HTTPOrderClient) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	url := fmt.Sprintf("%s/api/orders/%s", c.baseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if err := setServiceHeaders(req, c.serviceName, c.serviceSecret); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("order lookup failed", zap.String("order_id", orderID), zap.Error(err))
		return nil, apperrors.NewUpstreamError("order-service", 0, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperrors.NewNotFoundError("order")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewUpstreamError("order-service", resp.StatusCode,
			fmt.Sprintf("order service returned status %d", resp.StatusCode))
	}

	var order models.Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, err
	}
	return &order, nil
}

// MarkOrderPaid records a successful payment on the order and the instrument
// it was made with. A 409 from the order service means the order was already
// paid and surfaces as ConflictError so the caller can detect duplicate
// captures.
func (c *HTTPOrderClient) MarkOrderPaid(ctx context.Context, orderID string, result *models.PaymentResult, method models.PaymentMethod) error {
	payload := struct {
		models.PaymentResult
		PaymentMethod string `json:"paymentMethod,omitempty"`
	}{PaymentResult: *result, PaymentMethod: string(method)}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/orders/%s/pay", c.baseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if err := setServiceHeaders(req, c.serviceName, c.serviceSecret); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("mark paid request failed", zap.String("order_id", orderID), zap.Error(err))
		return apperrors.NewUpstreamError("order-service", 0, err.Error())
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return apperrors.NewNotFoundError("order")
	case http.StatusConflict:
		return apperrors.NewConflictError("order is already paid")
	default:
		return apperrors.NewUpstreamError("order-service", resp.StatusCode,
			fmt.Sprintf("order service returned status %d", resp.StatusCode))
	}
}

// UpdateOrderStatus moves the order to a new fulfillment status.
func (c *HTTPOrderClient) UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) error {
	body, err := json.Marshal(map[string]models.OrderStatus{"status": status})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/orders/%s/status", c.baseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if err := setServiceHeaders(req, c.serviceName, c.serviceSecret); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewUpstreamError("order-service", 0, err.Error())
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return apperrors.NewNotFoundError("order")
	case http.StatusConflict:
		return apperrors.NewConflictError("order status transition rejected")
	default:
		return apperrors.NewUpstreamError("order-service", resp.StatusCode,
			fmt.Sprintf("order service returned status %d", resp.StatusCode))
	}
}
