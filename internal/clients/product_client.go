// Package clients holds the HTTP clients the two services use to talk to
// each other and to the product and user services. All calls carry a signed
// service token; none of them forward end-user credentials.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/Pourna2598/ecommerce-microservices/internal/apperrors"
	"github.com/Pourna2598/ecommerce-microservices/internal/auth"
	"github.com/Pourna2598/ecommerce-microservices/internal/config"
	"github.com/Pourna2598/ecommerce-microservices/internal/models"
)

// ProductClient reserves stock with the product service.
type ProductClient interface {
	CheckStock(ctx context.Context, items []models.StockItem) error
}

// HTTPProductClient implements ProductClient over HTTP.
type HTTPProductClient struct {
	baseURL       string
	httpClient    *http.Client
	serviceName   string
	serviceSecret string
	logger        *zap.Logger
}

// NewHTTPProductClient creates a new HTTP-based product client.
func NewHTTPProductClient(cfg config.ServiceConfig, serviceName, serviceSecret string, logger *zap.Logger) *HTTPProductClient {
	return &HTTPProductClient{
		baseURL:       cfg.BaseURL,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		serviceName:   serviceName,
		serviceSecret: serviceSecret,
		logger:        logger,
	}
}

type checkStockRequest struct {
	Items []models.StockItem `json:"items"`
}

type checkStockResponse struct {
	Message         string                     `json:"message"`
	OutOfStockItems []apperrors.OutOfStockItem `json:"outOfStockItems"`
}

// CheckStock asks the product service to reserve stock for the given items.
// A shortfall comes back as a StockError naming the items; transport and
// unexpected upstream failures come back as UpstreamError.
func (c *HTTPProductClient) CheckStock(ctx context.Context, items []models.StockItem) error {
	body, err := json.Marshal(checkStockRequest{Items: items})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/products/internal/check-stock", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if err := setServiceHeaders(req, c.serviceName, c.serviceSecret); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("stock check request failed", zap.Error(err))
		return apperrors.NewUpstreamError("product-service", 0, err.Error())
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusBadRequest:
		var result checkStockResponse
		if err := json.NewDecoder(resp.Body).Decode(&result); err == nil && len(result.OutOfStockItems) > 0 {
			return &apperrors.StockError{OutOfStockItems: result.OutOfStockItems}
		}
		return apperrors.NewUpstreamError("product-service", resp.StatusCode, "stock check rejected")
	default:
		c.logger.Error("stock check returned error", zap.Int("status_code", resp.StatusCode))
		return apperrors.NewUpstreamError("product-service", resp.StatusCode,
			fmt.Sprintf("product service returned status %d", resp.StatusCode))
	}
}

// setServiceHeaders mints a fresh service token and attaches it along with
// the JSON content type.
func setServiceHeaders(req *http.Request, serviceName, secret string) error {
	token, err := auth.NewServiceToken(serviceName, secret)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(auth.HeaderServiceToken, token)
	return nil
}
