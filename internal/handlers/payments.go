package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Pourna2598/ecommerce-microservices/internal/auth"
	"github.com/Pourna2598/ecommerce-microservices/internal/models"
	"github.com/Pourna2598/ecommerce-microservices/internal/service"
)

// PaymentHandlers serves the payment service REST API.
type PaymentHandlers struct {
	payments *service.PaymentService
	logger   *zap.Logger
}

// NewPaymentHandlers creates handlers backed by the payment service.
func NewPaymentHandlers(payments *service.PaymentService, logger *zap.Logger) *PaymentHandlers {
	return &PaymentHandlers{payments: payments, logger: logger}
}

// ProcessPayment handles POST /api/payments/process
func (h *PaymentHandlers) ProcessPayment(c *gin.Context) {
	var req models.ProcessPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	payment, err := h.payments.ProcessPayment(c.Request.Context(), auth.FromContext(c), &req)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

// GetPayment handles GET /api/payments/:id
func (h *PaymentHandlers) GetPayment(c *gin.Context) {
	payment, err := h.payments.GetPayment(c.Request.Context(), auth.FromContext(c), c.Param("id"))
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, paymentResponse(payment))
}

// GetPaymentByOrder handles GET /api/payments/order/:orderId
func (h *PaymentHandlers) GetPaymentByOrder(c *gin.Context) {
	payment, err := h.payments.GetPaymentByOrder(c.Request.Context(), auth.FromContext(c), c.Param("orderId"))
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, paymentResponse(payment))
}

type updatePaymentStatusRequest struct {
	Status models.PaymentStatus `json:"status"`
}

// UpdatePaymentStatus handles PUT /api/payments/:id/status
func (h *PaymentHandlers) UpdatePaymentStatus(c *gin.Context) {
	var req updatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	payment, err := h.payments.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// RefundPayment handles POST /api/payments/:id/refund
func (h *PaymentHandlers) RefundPayment(c *gin.Context) {
	payment, err := h.payments.RefundPayment(c.Request.Context(), auth.FromContext(c), c.Param("id"))
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// PaymentHistory handles GET /api/payments/history
func (h *PaymentHandlers) PaymentHistory(c *gin.Context) {
	page, err := h.payments.History(c.Request.Context(), auth.FromContext(c), queryPage(c))
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ListPayments handles GET /api/payments
func (h *PaymentHandlers) ListPayments(c *gin.Context) {
	filter := models.PaymentFilter{
		Status: models.PaymentStatus(c.Query("status")),
		UserID: c.Query("userId"),
		Page:   queryPage(c),
	}

	page, err := h.payments.List(c.Request.Context(), filter)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// PaymentStats handles GET /api/payments/admin/stats
func (h *PaymentHandlers) PaymentStats(c *gin.Context) {
	stats, err := h.payments.Stats(c.Request.Context())
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// paymentView is the single-payment response shape with the derived
// refundability flag.
type paymentView struct {
	*models.Payment
	IsRefundable bool `json:"isRefundable"`
}

func paymentResponse(payment *models.Payment) paymentView {
	return paymentView{Payment: payment, IsRefundable: payment.IsRefundable()}
}
