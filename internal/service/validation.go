package service

import (
	"github.com/Pourna2598/ecommerce-microservices/internal/apperrors"
	"github.com/Pourna2598/ecommerce-microservices/internal/models"
)

// validateCreateOrder checks the shape of an order creation request before
// any collaborator is contacted.
func validateCreateOrder(req *models.CreateOrderRequest) error {
	if len(req.OrderItems) == 0 {
		return apperrors.NewValidationError("orderItems", "order must contain at least one item")
	}
	for _, item := range req.OrderItems {
		if item.ProductID == "" {
			return apperrors.NewValidationError("orderItems", "item is missing a product id")
		}
		if item.Quantity <= 0 {
			return apperrors.NewValidationError("orderItems", "item quantity must be positive")
		}
		if item.Price < 0 {
			return apperrors.NewValidationError("orderItems", "item price cannot be negative")
		}
	}

	addr := req.ShippingAddress
	if addr.Address == "" || addr.City == "" || addr.PostalCode == "" || addr.Country == "" {
		return apperrors.NewValidationError("shippingAddress", "shipping address is incomplete")
	}
	return nil
}

// validateProcessPayment checks the shape of a payment request.
func validateProcessPayment(req *models.ProcessPaymentRequest) error {
	if req.OrderID == "" {
		return apperrors.NewValidationError("orderId", "order id is required")
	}
	if req.Amount <= 0 {
		return apperrors.NewValidationError("amount", "amount must be positive")
	}
	if !models.ValidPaymentMethod(req.PaymentMethod) {
		return apperrors.NewValidationError("paymentMethod", "unknown payment method")
	}
	if req.PaymentMethod == models.PaymentMethodCreditCard || req.PaymentMethod == models.PaymentMethodDebitCard {
		if req.CardDetails == nil {
			return apperrors.NewValidationError("cardDetails", "card details are required for card payments")
		}
		if err := validateCard(req.CardDetails); err != nil {
			return err
		}
	}
	return nil
}
