package models

// Event routing keys on the ecommerce_events topic exchange. Payloads are
// flat JSON records; consumers must tolerate additive field changes.
const (
	TopicOrderCreated      = "order.created"
	TopicOrderUpdated      = "order.updated"
	TopicOrderCancelled    = "order.cancelled"
	TopicPaymentSuccessful = "payment.successful"
	TopicPaymentFailed     = "payment.failed"
	TopicPaymentRefunded   = "payment.refunded"
)

// OrderCreatedEvent announces a newly created order.
type OrderCreatedEvent struct {
	OrderID     string      `json:"orderId"`
	UserID      string      `json:"userId"`
	UserEmail   string      `json:"userEmail"`
	TotalAmount float64     `json:"totalAmount"`
	Status      OrderStatus `json:"status"`
}

// OrderUpdatedEvent announces an order status change, including payment
// confirmation.
type OrderUpdatedEvent struct {
	OrderID     string      `json:"orderId"`
	UserID      string      `json:"userId"`
	Status      OrderStatus `json:"status"`
	IsDelivered bool        `json:"isDelivered"`
}

// OrderCancelledEvent announces an order cancellation.
type OrderCancelledEvent struct {
	OrderID            string      `json:"orderId"`
	UserID             string      `json:"userId"`
	Status             OrderStatus `json:"status"`
	CancellationReason string      `json:"cancellationReason,omitempty"`
}

// PaymentSuccessfulEvent announces a completed payment.
type PaymentSuccessfulEvent struct {
	PaymentID     string        `json:"paymentId"`
	OrderID       string        `json:"orderId"`
	UserID        string        `json:"userId"`
	Amount        float64       `json:"amount"`
	Status        PaymentStatus `json:"status"`
	TransactionID string        `json:"transactionId"`
}

// PaymentFailedEvent announces a failed payment attempt.
type PaymentFailedEvent struct {
	OrderID string  `json:"orderId"`
	UserID  string  `json:"userId"`
	Amount  float64 `json:"amount"`
	Reason  string  `json:"reason"`
}

// PaymentRefundedEvent announces a successful refund.
type PaymentRefundedEvent struct {
	PaymentID     string  `json:"paymentId"`
	OrderID       string  `json:"orderId"`
	UserID        string  `json:"userId"`
	Amount        float64 `json:"amount"`
	TransactionID string  `json:"transactionId"`
	RefundID      string  `json:"refundId"`
}
