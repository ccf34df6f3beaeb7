package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TripStatus represents the lifecycle state of a trip
// Matches PostgreSQL ENUM: trip_status
type TripStatus string

const (
	TripStatusScheduled TripStatus = "scheduled"
	TripStatusBoarding  TripStatus = "boarding"
	TripStatusDeparted  TripStatus = "departed"
	TripStatusCompleted TripStatus = "completed"
	TripStatusCancelled TripStatus = "cancelled"
)

// Trip is one scheduled departure and its seat ledger. The counters are
// authoritative for capacity; occupancy (which seat numbers are held) is
// derived from passengers of non-cancelled bookings. AvailableSlots never
// goes below zero or above TotalSlots.
type Trip struct {
	ID                string     `json:"id" db:"id"`
	CompanyID         string     `json:"company_id" db:"company_id"`
	RouteName         string     `json:"route_name" db:"route_name"`
	Status            TripStatus `json:"status" db:"status"`
	DepartureDatetime time.Time  `json:"departure_datetime" db:"departure_datetime"`

	PricePerSeat   decimal.Decimal `json:"price_per_seat" db:"price_per_seat"`
	TotalSlots     int             `json:"total_slots" db:"total_slots"`
	AvailableSlots int             `json:"available_slots" db:"available_slots"`

	// BookingHalted suspends online sales only; counter sales proceed.
	BookingHalted bool `json:"booking_halted" db:"booking_halted"`
	// HaltOverride exempts this trip from the auto-halt trigger.
	HaltOverride bool `json:"halt_override" db:"halt_override"`
	// ResumeSuppressed holds off re-halting after an admin resume until
	// available slots climb back above the threshold.
	ResumeSuppressed bool `json:"resume_suppressed" db:"resume_suppressed"`

	NoShowCount      int  `json:"no_show_count" db:"no_show_count"`
	ReleasedSeats    int  `json:"released_seats" db:"released_seats"`
	ReplacementsSold int  `json:"replacements_sold" db:"replacements_sold"`
	ManifestReady    bool `json:"manifest_ready" db:"manifest_ready"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// JustHalted is set in-memory when this write triggered the auto-halt,
	// so callers can emit audit and alert side effects after commit.
	JustHalted bool `json:"-" db:"-"`
}

// IsBookable reports whether new bookings may target this trip at all.
// Halting is a separate, softer gate checked after this one.
func (t *Trip) IsBookable() bool {
	return t.Status == TripStatusScheduled || t.Status == TripStatusBoarding
}

// Company carries the operator-level flags that affect the booking flow.
type Company struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	// BookingHaltBypass exempts every trip of this company from auto-halt.
	BookingHaltBypass bool      `json:"booking_halt_bypass" db:"booking_halt_bypass"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

// TripManifestEntry is one row of the staff-facing passenger manifest.
type TripManifestEntry struct {
	PassengerID   string         `json:"passenger_id" db:"passenger_id"`
	PassengerName string         `json:"passenger_name" db:"passenger_name"`
	SeatNumber    int            `json:"seat_number" db:"seat_number"`
	BookingID     string         `json:"booking_id" db:"booking_id"`
	BookingStatus BookingStatus  `json:"booking_status" db:"booking_status"`
	Boarding      BoardingStatus `json:"boarding_status" db:"boarding_status"`
	IsQuickTicket bool           `json:"is_quick_ticket" db:"is_quick_ticket"`
	IsReplacement bool           `json:"is_replacement" db:"is_replacement"`
}
