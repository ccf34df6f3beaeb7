package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus represents the status of a payment attempt
// Matches PostgreSQL ENUM: payment_status
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// PaymentMethod identifies how a booking was settled
type PaymentMethod string

const (
	PaymentMethodMobileMoney PaymentMethod = "mobile_money"
	PaymentMethodCash        PaymentMethod = "cash"
	PaymentMethodDemo        PaymentMethod = "demo"
)

// Payment is one attempt to settle a booking. TransactionID is the
// provider's unique identifier and doubles as the idempotency key: a
// booking has at most one payment with status success, and replaying a
// webhook with a known transaction id is a no-op.
type Payment struct {
	ID            string          `json:"id" db:"id"`
	BookingID     string          `json:"booking_id" db:"booking_id"`
	TransactionID string          `json:"transaction_id" db:"transaction_id"`
	Status        PaymentStatus   `json:"status" db:"status"`
	Method        PaymentMethod   `json:"method" db:"method"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	SettledAt     *time.Time      `json:"settled_at,omitempty" db:"settled_at"`
}

// InitiatePaymentRequest starts a synchronous (demo) settlement for a
// pending booking the caller already owns.
type InitiatePaymentRequest struct {
	BookingID string `json:"booking_id" binding:"required"`
	Method    string `json:"method"`
}

// PaymentWebhookPayload is the asynchronous provider callback. Signature is
// an HMAC-SHA256 over "transactionId|outTradeNo|status|amount|timestamp"
// with the shared webhook secret; Timestamp is unix seconds and must fall
// inside the configured freshness window.
type PaymentWebhookPayload struct {
	TransactionID string `json:"transactionId" binding:"required"`
	OutTradeNo    string `json:"outTradeNo" binding:"required"`
	Status        string `json:"status" binding:"required"`
	Amount        string `json:"amount" binding:"required"`
	Timestamp     int64  `json:"timestamp" binding:"required"`
	Signature     string `json:"signature" binding:"required"`
}

// WebhookStatusSuccess and WebhookStatusFailed are the provider's terminal
// callback states.
const (
	WebhookStatusSuccess = "SUCCESS"
	WebhookStatusFailed  = "FAILED"
)
