package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BookingStatus represents the status of a booking
// Matches PostgreSQL ENUM: booking_status
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusPaid      BookingStatus = "paid"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// BoardingStatus represents a passenger's state after departure
// Matches PostgreSQL ENUM: boarding_status
type BoardingStatus string

const (
	BoardingStatusPending BoardingStatus = "pending"
	BoardingStatusBoarded BoardingStatus = "boarded"
	BoardingStatusNoShow  BoardingStatus = "no_show"
)

// Booking is one purchase intent covering 1-10 seats on one trip for one
// user. At most one non-cancelled pending booking may exist per
// (user, trip) pair at any instant; that lookup and the write enforcing it
// always share one transaction. Bookings are financial records and are
// never hard-deleted.
type Booking struct {
	ID     string        `json:"id" db:"id"`
	UserID string        `json:"user_id" db:"user_id"`
	TripID string        `json:"trip_id" db:"trip_id"`
	Status BookingStatus `json:"status" db:"status"`

	SeatCount     int             `json:"seat_count" db:"seat_count"`
	TotalAmount   decimal.Decimal `json:"total_amount" db:"total_amount"`
	Commission    decimal.Decimal `json:"commission" db:"commission"`
	CommissionVAT decimal.Decimal `json:"commission_vat" db:"commission_vat"`

	// IsQuickTicket marks a counter sale recorded by staff.
	IsQuickTicket bool `json:"is_quick_ticket" db:"is_quick_ticket"`
	// IsReplacement marks a post-departure sale consuming a released seat.
	IsReplacement       bool    `json:"is_replacement" db:"is_replacement"`
	ReplacedPassengerID *string `json:"replaced_passenger_id,omitempty" db:"replaced_passenger_id"`

	CreatedByStaffID *string `json:"created_by_staff_id,omitempty" db:"created_by_staff_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	Passengers []Passenger `json:"passengers,omitempty" db:"-"`
}

// Passenger is one seat occupant within a booking. Seat numbers held by
// passengers of non-cancelled bookings are pairwise distinct per trip.
type Passenger struct {
	ID        string `json:"id" db:"id"`
	BookingID string `json:"booking_id" db:"booking_id"`
	TripID    string `json:"trip_id" db:"trip_id"`

	FullName   string  `json:"full_name" db:"full_name"`
	Phone      *string `json:"phone,omitempty" db:"phone"`
	SeatNumber int     `json:"seat_number" db:"seat_number"`

	Boarding  BoardingStatus `json:"boarding_status" db:"boarding_status"`
	BoardedAt *time.Time     `json:"boarded_at,omitempty" db:"boarded_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// PassengerInput is the caller-supplied passenger data on a booking request.
// SeatNumber 0 means "auto-assign first unoccupied ascending".
type PassengerInput struct {
	FullName   string  `json:"full_name" binding:"required"`
	Phone      *string `json:"phone,omitempty"`
	SeatNumber int     `json:"seat_number,omitempty"`
}

// CreateBookingRequest is the online self-service booking payload.
type CreateBookingRequest struct {
	TripID     string           `json:"trip_id" binding:"required"`
	Passengers []PassengerInput `json:"passengers" binding:"required"`
}

// Validate checks passenger data before any transaction is opened.
func (r *CreateBookingRequest) Validate(maxSeats int) error {
	return validatePassengers(r.Passengers, maxSeats)
}

func validatePassengers(passengers []PassengerInput, maxSeats int) error {
	if len(passengers) == 0 {
		return fmt.Errorf("%w: at least one passenger is required", ErrValidation)
	}
	if len(passengers) > maxSeats {
		return fmt.Errorf("%w: a booking may cover at most %d seats", ErrValidation, maxSeats)
	}
	seen := make(map[int]bool)
	for i, p := range passengers {
		if p.FullName == "" {
			return fmt.Errorf("%w: passenger %d: full name is required", ErrValidation, i+1)
		}
		if p.SeatNumber < 0 {
			return fmt.Errorf("%w: passenger %d: seat number cannot be negative", ErrValidation, i+1)
		}
		if p.SeatNumber > 0 {
			if seen[p.SeatNumber] {
				return fmt.Errorf("%w: seat %d requested more than once", ErrValidation, p.SeatNumber)
			}
			seen[p.SeatNumber] = true
		}
	}
	return nil
}

// CounterSaleRequest is the staff walk-in sale payload. Seats may be chosen
// explicitly or auto-assigned; the sale is recorded paid immediately.
type CounterSaleRequest struct {
	Passengers    []PassengerInput `json:"passengers" binding:"required"`
	PaymentMethod string           `json:"payment_method"`
	CashierPIN    string           `json:"cashier_pin" binding:"required"`
}

// Validate checks the counter sale payload.
func (r *CounterSaleRequest) Validate(maxSeats int) error {
	return validatePassengers(r.Passengers, maxSeats)
}

// ReplacementSaleRequest sells seats freed by no-shows after departure.
type ReplacementSaleRequest struct {
	Passengers          []PassengerInput `json:"passengers" binding:"required"`
	ReplacedPassengerID string           `json:"replaced_passenger_id" binding:"required"`
	CashierPIN          string           `json:"cashier_pin" binding:"required"`
}

// Validate checks the replacement sale payload.
func (r *ReplacementSaleRequest) Validate(maxSeats int) error {
	return validatePassengers(r.Passengers, maxSeats)
}

// MarkNoShowsRequest flags passengers who did not board a departed trip.
type MarkNoShowsRequest struct {
	PassengerIDs []string `json:"passenger_ids" binding:"required"`
}

// NoShowOutcome reports the per-passenger result of a bulk no-show call so
// the caller can report "N marked, M skipped".
type NoShowOutcome struct {
	PassengerID string `json:"passenger_id"`
	Marked      bool   `json:"marked"`
	Reason      string `json:"reason,omitempty"`
}

// BookingPricing is the server-side recomputation of a booking's monetary
// fields from the trip price. Client-submitted amounts are never trusted.
type BookingPricing struct {
	TicketAmount  decimal.Decimal `json:"ticket_amount"`
	Commission    decimal.Decimal `json:"commission"`
	CommissionVAT decimal.Decimal `json:"commission_vat"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}
