// Package handlers exposes the REST surface of the two services. Handlers
// bind and translate; all rules live in the service layer.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Pourna2598/ecommerce-microservices/internal/apperrors"
)

// handleError translates a service error into an HTTP response. Unknown
// errors become a generic 500; the detail stays in the logs, never in the
// body.
func handleError(c *gin.Context, logger *zap.Logger, err error) {
	var (
		validationErr *apperrors.ValidationError
		notFoundErr   *apperrors.NotFoundError
		forbiddenErr  *apperrors.ForbiddenError
		conflictErr   *apperrors.ConflictError
		stockErr      *apperrors.StockError
		upstreamErr   *apperrors.UpstreamError
	)

	switch {
	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, gin.H{
			"message":         "Some items are out of stock",
			"outOfStockItems": stockErr.OutOfStockItems,
		})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"message": validationErr.Error()})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{"message": notFoundErr.Error()})
	case errors.As(err, &forbiddenErr):
		c.JSON(http.StatusForbidden, gin.H{"message": forbiddenErr.Error()})
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, gin.H{"message": conflictErr.Error()})
	case errors.As(err, &upstreamErr):
		status := http.StatusInternalServerError
		if upstreamErr.StatusCode >= 400 && upstreamErr.StatusCode < 600 {
			status = upstreamErr.StatusCode
		}
		c.JSON(status, gin.H{"message": upstreamErr.Error()})
	default:
		logger.Error("unhandled error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
	}
}
