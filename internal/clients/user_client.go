package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/Pourna2598/ecommerce-microservices/internal/apperrors"
	"github.com/Pourna2598/ecommerce-microservices/internal/config"
)

// UserClient looks up user profile data in the user service.
type UserClient interface {
	GetUserEmail(ctx context.Context, userID string) (string, error)
}

// HTTPUserClient implements UserClient over HTTP.
type HTTPUserClient struct {
	baseURL       string
	httpClient    *http.Client
	serviceName   string
	serviceSecret string
	logger        *zap.Logger
}

// NewHTTPUserClient creates a new HTTP-based user client.
func NewHTTPUserClient(cfg config.ServiceConfig, serviceName, serviceSecret string, logger *zap.Logger) *HTTPUserClient {
	return &HTTPUserClient{
		baseURL:       cfg.BaseURL,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		serviceName:   serviceName,
		serviceSecret: serviceSecret,
		logger:        logger,
	}
}

type userProfileResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// GetUserEmail fetches the email address for a user.
func (c *HTTPUserClient) GetUserEmail(ctx context.Context, userID string) (string, error) {
	url := fmt.Sprintf("%s/api/users/%s", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	if err := setServiceHeaders(req, c.serviceName, c.serviceSecret); err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("user lookup failed", zap.String("user_id", userID), zap.Error(err))
		return "", apperrors.NewUpstreamError("user-service", 0, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", apperrors.NewNotFoundError("user")
	}
	if resp.StatusCode != http.StatusOK {
		return "", apperrors.NewUpstreamError("user-service", resp.StatusCode,
			fmt.Sprintf("user service returned status %d", resp.StatusCode))
	}

	var profile userProfileResponse
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return "", err
	}
	return profile.Email, nil
}
