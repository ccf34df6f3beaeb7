package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuditAction identifies the kind of event an audit row records.
type AuditAction string

const (
	AuditActionBookingCreated   AuditAction = "booking_created"
	AuditActionBookingUpdated   AuditAction = "booking_updated"
	AuditActionCounterSale      AuditAction = "counter_sale"
	AuditActionReplacementSale  AuditAction = "replacement_sale"
	AuditActionPaymentSucceeded AuditAction = "payment_succeeded"
	AuditActionPaymentFailed    AuditAction = "payment_failed"
	AuditActionWebhookReplayed  AuditAction = "webhook_replayed"
	AuditActionAmountMismatch   AuditAction = "amount_mismatch"
	AuditActionAutoHalt         AuditAction = "auto_halt"
	AuditActionManualHalt       AuditAction = "manual_halt"
	AuditActionBookingResumed   AuditAction = "booking_resumed"
	AuditActionTripDeparted     AuditAction = "trip_departed"
	AuditActionNoShowMarked     AuditAction = "no_show_marked"
	AuditActionPassengerBoarded AuditAction = "passenger_boarded"
	AuditActionManifestReady    AuditAction = "manifest_ready"
)

// AuditDetails is the typed payload attached to an audit entry. Each action
// has its own payload struct; the repository serializes it to JSONB at the
// persistence boundary so the core stays type-checked.
type AuditDetails interface {
	Action() AuditAction
}

// AuditLog is one append-only audit row. Writes are best-effort: a failed
// audit insert is logged and never rolls back the transaction it describes.
type AuditLog struct {
	ID         string      `json:"id" db:"id"`
	ActorID    *string     `json:"actor_id,omitempty" db:"actor_id"`
	Action     AuditAction `json:"action" db:"action"`
	EntityType string      `json:"entity_type" db:"entity_type"`
	EntityID   string      `json:"entity_id" db:"entity_id"`
	Details    []byte      `json:"details" db:"details"`
	IPAddress  string      `json:"ip_address" db:"ip_address"`
	UserAgent  string      `json:"user_agent" db:"user_agent"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
}

// BookingAuditDetails describes booking creation, update, and sale events.
type BookingAuditDetails struct {
	BookingID   string          `json:"booking_id"`
	TripID      string          `json:"trip_id"`
	SeatCount   int             `json:"seat_count"`
	SeatNumbers []int           `json:"seat_numbers"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Kind        AuditAction     `json:"-"`
}

// Action implements AuditDetails.
func (d BookingAuditDetails) Action() AuditAction { return d.Kind }

// SettlementAuditDetails describes payment success/failure/replay events.
type SettlementAuditDetails struct {
	BookingID     string          `json:"booking_id"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        PaymentMethod   `json:"method"`
	SeatsReleased int             `json:"seats_released,omitempty"`
	TicketsIssued int             `json:"tickets_issued,omitempty"`
	Kind          AuditAction     `json:"-"`
}

// Action implements AuditDetails.
func (d SettlementAuditDetails) Action() AuditAction { return d.Kind }

// HaltAuditDetails describes auto-halt, manual halt, and resume events.
type HaltAuditDetails struct {
	TripID         string      `json:"trip_id"`
	AvailableSlots int         `json:"available_slots"`
	Threshold      int         `json:"threshold,omitempty"`
	Kind           AuditAction `json:"-"`
}

// Action implements AuditDetails.
func (d HaltAuditDetails) Action() AuditAction { return d.Kind }

// BoardingAuditDetails describes departure, boarding, and no-show events.
type BoardingAuditDetails struct {
	TripID       string      `json:"trip_id"`
	PassengerIDs []string    `json:"passenger_ids,omitempty"`
	Marked       int         `json:"marked,omitempty"`
	Skipped      int         `json:"skipped,omitempty"`
	Kind         AuditAction `json:"-"`
}

// Action implements AuditDetails.
func (d BoardingAuditDetails) Action() AuditAction { return d.Kind }
