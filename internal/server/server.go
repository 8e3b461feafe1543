// Package server assembles the gin engines and HTTP lifecycles for the two
// services.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Pourna2598/ecommerce-microservices/internal/auth"
	"github.com/Pourna2598/ecommerce-microservices/internal/config"
	"github.com/Pourna2598/ecommerce-microservices/internal/handlers"
)

// Server wraps one service's router and HTTP listener.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

func newServer(cfg config.ServerConfig, router *gin.Engine, logger *zap.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		logger: logger,
	}
}

// Run starts serving and blocks until the listener closes.
func (s *Server) Run() error {
	s.logger.Info("starting server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func newRouter(serviceName, serviceSecret string, m *metrics, reg *prometheus.Registry, logger *zap.Logger) (*gin.Engine, *gin.RouterGroup) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(m.middleware())

	router.GET("/health", handlers.Health(serviceName))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	api := router.Group("/api")
	api.Use(auth.Middleware(serviceSecret, logger))
	return router, api
}

// NewOrderServer builds the order service HTTP server with its full route
// table.
func NewOrderServer(cfg *config.Config, h *handlers.OrderHandlers, logger *zap.Logger) *Server {
	reg := prometheus.NewRegistry()
	m := newMetrics("order-service", reg)
	router, api := newRouter("order-service", cfg.ServiceSecret, m, reg, logger)

	orders := api.Group("/orders")
	{
		orders.POST("", h.CreateOrder)
		orders.GET("", auth.RequireAdmin(), h.ListOrders)
		orders.GET("/myorders", h.MyOrders)
		orders.GET("/admin/stats", auth.RequireAdmin(), h.OrderStats)
		orders.GET("/user/:userId", h.ListUserOrders)
		orders.GET("/:id", h.GetOrder)
		orders.PUT("/:id/pay", h.PayOrder)
		orders.PUT("/:id/status", auth.RequireAdmin(), h.UpdateOrderStatus)
		orders.PUT("/:id/cancel", h.CancelOrder)
	}

	return newServer(cfg.Orders, router, logger)
}

// NewPaymentServer builds the payment service HTTP server with its full
// route table.
func NewPaymentServer(cfg *config.Config, h *handlers.PaymentHandlers, logger *zap.Logger) *Server {
	reg := prometheus.NewRegistry()
	m := newMetrics("payment-service", reg)
	router, api := newRouter("payment-service", cfg.ServiceSecret, m, reg, logger)

	payments := api.Group("/payments")
	{
		payments.POST("/process", h.ProcessPayment)
		payments.GET("", auth.RequireAdmin(), h.ListPayments)
		payments.GET("/history", h.PaymentHistory)
		payments.GET("/admin/stats", auth.RequireAdmin(), h.PaymentStats)
		payments.GET("/order/:orderId", h.GetPaymentByOrder)
		payments.GET("/:id", h.GetPayment)
		payments.PUT("/:id/status", auth.RequireAdmin(), h.UpdatePaymentStatus)
		payments.POST("/:id/refund", h.RefundPayment)
	}

	return newServer(cfg.Payments, router, logger)
}
