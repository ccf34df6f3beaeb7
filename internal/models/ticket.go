package models

import "time"

// Ticket is the proof of purchase issued per passenger once payment
// succeeds. ShortCode is unique across the whole system, not just per
// trip. Immutable once issued except for the boarding-gate fields.
type Ticket struct {
	ID          string     `json:"id" db:"id"`
	BookingID   string     `json:"booking_id" db:"booking_id"`
	PassengerID string     `json:"passenger_id" db:"passenger_id"`
	ShortCode   string     `json:"short_code" db:"short_code"`
	QRCode      string     `json:"qr_code" db:"qr_code"`
	IsUsed      bool       `json:"is_used" db:"is_used"`
	UsedAt      *time.Time `json:"used_at,omitempty" db:"used_at"`
	IssuedAt    time.Time  `json:"issued_at" db:"issued_at"`
}

// TicketVerification is the gate-facing view of a ticket lookup.
type TicketVerification struct {
	Valid         bool           `json:"valid"`
	ShortCode     string         `json:"short_code"`
	PassengerName string         `json:"passenger_name"`
	SeatNumber    int            `json:"seat_number"`
	TripID        string         `json:"trip_id"`
	IsUsed        bool           `json:"is_used"`
	UsedAt        *time.Time     `json:"used_at,omitempty"`
	Boarding      BoardingStatus `json:"boarding_status"`
}
