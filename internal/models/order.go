package models

import "time"

// OrderStatus is the fulfillment state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// ValidOrderStatus reports whether s is a member of the order status enum.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderItem is a single line of an order.
type OrderItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"qty"`
	Image     string  `json:"image,omitempty"`
}

// ShippingAddress is the delivery destination for an order.
type ShippingAddress struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// PaymentResult is the opaque confirmation record pushed by the payment
// service when an order is paid.
type PaymentResult struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	UpdateTime string `json:"update_time"`
	PayerEmail string `json:"email_address"`
}

// Order is a customer's purchase record. Owned exclusively by the order
// service; the payment service only sees it through the inter-service client.
type Order struct {
	ID                 string          `json:"id"`
	UserID             string          `json:"user"`
	OrderItems         []OrderItem     `json:"orderItems"`
	ShippingAddress    ShippingAddress `json:"shippingAddress"`
	PaymentMethod      string          `json:"paymentMethod"`
	PaymentResult      *PaymentResult  `json:"paymentResult,omitempty"`
	ItemsPrice         float64         `json:"itemsPrice"`
	TaxPrice           float64         `json:"taxPrice"`
	ShippingPrice      float64         `json:"shippingPrice"`
	TotalPrice         float64         `json:"totalPrice"`
	IsPaid             bool            `json:"isPaid"`
	PaidAt             *time.Time      `json:"paidAt,omitempty"`
	IsDelivered        bool            `json:"isDelivered"`
	DeliveredAt        *time.Time      `json:"deliveredAt,omitempty"`
	Status             OrderStatus     `json:"status"`
	CancellationReason string          `json:"cancellationReason,omitempty"`
	Version            int64           `json:"-"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// IsCancellable reports whether the order may still be cancelled. Recomputed
// on read, never stored.
func (o *Order) IsCancellable() bool {
	if o.IsPaid || o.IsDelivered {
		return false
	}
	return o.Status == OrderStatusPending || o.Status == OrderStatusProcessing
}

// CreateOrderRequest is the inbound payload for order creation. Prices are
// recomputed server-side from the items; any client-supplied totals are
// ignored.
type CreateOrderRequest struct {
	OrderItems      []OrderItem     `json:"orderItems"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
}

// OrderFilter selects orders for listing.
type OrderFilter struct {
	UserID string
	Status OrderStatus
	Page   int
}

// OrderPage is one page of a listing plus pagination totals.
type OrderPage struct {
	Orders []*Order `json:"orders"`
	Page   int      `json:"page"`
	Pages  int      `json:"pages"`
	Total  int      `json:"total"`
}

// StatusCount is the number of orders or payments in one status.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// RecentOrder is a stats row enriched with the owner's email.
type RecentOrder struct {
	OrderID    string      `json:"orderId"`
	TotalPrice float64     `json:"totalPrice"`
	Status     OrderStatus `json:"status"`
	CreatedAt  time.Time   `json:"createdAt"`
	UserID     string      `json:"userId"`
	UserEmail  string      `json:"userEmail"`
}

// OrderStats is the aggregate view served to admins.
type OrderStats struct {
	TotalOrders       int           `json:"totalOrders"`
	TotalRevenue      float64       `json:"totalRevenue"`
	AverageOrderValue float64       `json:"averageOrderValue"`
	StatusStats       []StatusCount `json:"statusStats"`
	RecentOrders      []RecentOrder `json:"recentOrders"`
}

// StockItem is the product/quantity pair sent to the stock reservation check.
type StockItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}
