package models

import "time"

// PaymentStatus is the state of one funds-capture attempt.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// ValidPaymentStatus reports whether s is a member of the payment status enum.
func ValidPaymentStatus(s PaymentStatus) bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// PaymentMethod is the funding instrument for a payment.
type PaymentMethod string

const (
	PaymentMethodCreditCard PaymentMethod = "Credit Card"
	PaymentMethodDebitCard  PaymentMethod = "Debit Card"
	PaymentMethodPending    PaymentMethod = "Pending"
)

// ValidPaymentMethod reports whether m is a member of the payment method enum.
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodDebitCard, PaymentMethodPending:
		return true
	}
	return false
}

// CardDetails is the masked subset of card data that may be persisted.
// Raw card numbers and CVVs never leave the request.
type CardDetails struct {
	LastFour   string `json:"lastFour"`
	CardType   string `json:"cardType"`
	ExpiryDate string `json:"expiryDate"`
}

// CardInput is the raw card data accepted on a payment request. It is used
// for the charge attempt and masking only, never stored.
type CardInput struct {
	CardNumber string `json:"cardNumber"`
	CVV        string `json:"cvv"`
	ExpDate    string `json:"expDate"`
}

// Payment records one funds-capture attempt against exactly one order.
// Owned exclusively by the payment service.
type Payment struct {
	ID            string        `json:"id"`
	OrderID       string        `json:"order"`
	UserID        string        `json:"user"`
	Amount        float64       `json:"amount"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	Status        PaymentStatus `json:"status"`
	TransactionID string        `json:"transactionId"`
	CardDetails   *CardDetails  `json:"cardDetails,omitempty"`
	RefundID      string        `json:"refundId,omitempty"`
	RefundedAt    *time.Time    `json:"refundedAt,omitempty"`
	ErrorMessage  string        `json:"errorMessage,omitempty"`
	Version       int64         `json:"-"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// IsRefundable reports whether the payment can still be refunded.
// Recomputed on read, never stored.
func (p *Payment) IsRefundable() bool {
	return p.Status == PaymentStatusCompleted && p.RefundID == ""
}

// ProcessPaymentRequest is the inbound payload for a payment attempt.
type ProcessPaymentRequest struct {
	OrderID       string        `json:"orderId"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	Amount        float64       `json:"amount"`
	CardDetails   *CardInput    `json:"cardDetails,omitempty"`
}

// PaymentFilter selects payments for listing.
type PaymentFilter struct {
	UserID string
	Status PaymentStatus
	Page   int
}

// PaymentPage is one page of a payment listing plus pagination totals.
type PaymentPage struct {
	Payments []*Payment `json:"payments"`
	Page     int        `json:"page"`
	Pages    int        `json:"pages"`
	Total    int        `json:"total"`
}

// PaymentStats is the aggregate view served to admins.
type PaymentStats struct {
	TotalPayments int           `json:"totalPayments"`
	TotalAmount   float64       `json:"totalAmount"`
	AverageAmount float64       `json:"averageAmount"`
	StatusStats   []StatusCount `json:"statusStats"`
}
