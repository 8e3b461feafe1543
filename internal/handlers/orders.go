package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Pourna2598/ecommerce-microservices/internal/auth"
	"github.com/Pourna2598/ecommerce-microservices/internal/models"
	"github.com/Pourna2598/ecommerce-microservices/internal/service"
)

// OrderHandlers serves the order service REST API.
type OrderHandlers struct {
	orders *service.OrderService
	logger *zap.Logger
}

// NewOrderHandlers creates handlers backed by the order service.
func NewOrderHandlers(orders *service.OrderService, logger *zap.Logger) *OrderHandlers {
	return &OrderHandlers{orders: orders, logger: logger}
}

// CreateOrder handles POST /api/orders
func (h *OrderHandlers) CreateOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), auth.FromContext(c), &req)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// GetOrder handles GET /api/orders/:id
func (h *OrderHandlers) GetOrder(c *gin.Context) {
	order, err := h.orders.GetOrder(c.Request.Context(), auth.FromContext(c), c.Param("id"))
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, orderResponse(order))
}

type payOrderRequest struct {
	models.PaymentResult
	PaymentMethod string `json:"paymentMethod"`
}

// PayOrder handles PUT /api/orders/:id/pay
func (h *OrderHandlers) PayOrder(c *gin.Context) {
	var req payOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	order, err := h.orders.MarkPaid(c.Request.Context(), auth.FromContext(c), c.Param("id"),
		&req.PaymentResult, req.PaymentMethod)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type updateStatusRequest struct {
	Status models.OrderStatus `json:"status"`
}

// UpdateOrderStatus handles PUT /api/orders/:id/status
func (h *OrderHandlers) UpdateOrderStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

// CancelOrder handles PUT /api/orders/:id/cancel
func (h *OrderHandlers) CancelOrder(c *gin.Context) {
	var req cancelOrderRequest
	// Reason is optional; an empty body is fine.
	_ = c.ShouldBindJSON(&req)

	order, err := h.orders.CancelOrder(c.Request.Context(), auth.FromContext(c), c.Param("id"), req.Reason)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// ListOrders handles GET /api/orders
func (h *OrderHandlers) ListOrders(c *gin.Context) {
	filter := models.OrderFilter{
		Status: models.OrderStatus(c.Query("status")),
		UserID: c.Query("userId"),
		Page:   queryPage(c),
	}

	page, err := h.orders.ListOrders(c.Request.Context(), filter)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ListUserOrders handles GET /api/orders/user/:userId
func (h *OrderHandlers) ListUserOrders(c *gin.Context) {
	id := auth.FromContext(c)
	userID := c.Param("userId")
	if !id.CanAccess(userID) {
		c.JSON(http.StatusForbidden, gin.H{"message": "not authorized to view these orders"})
		return
	}

	page, err := h.orders.ListOrders(c.Request.Context(), models.OrderFilter{UserID: userID, Page: queryPage(c)})
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// MyOrders handles GET /api/orders/myorders
func (h *OrderHandlers) MyOrders(c *gin.Context) {
	page, err := h.orders.MyOrders(c.Request.Context(), auth.FromContext(c), queryPage(c))
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// OrderStats handles GET /api/orders/admin/stats
func (h *OrderHandlers) OrderStats(c *gin.Context) {
	stats, err := h.orders.Stats(c.Request.Context())
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// orderView is the single-order response shape: the order itself plus the
// derived cancellability flag. Kept flat so service callers can decode it
// as a plain order.
type orderView struct {
	*models.Order
	IsCancellable bool `json:"isCancellable"`
}

func orderResponse(order *models.Order) orderView {
	return orderView{Order: order, IsCancellable: order.IsCancellable()}
}

func queryPage(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
