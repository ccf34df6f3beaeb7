package models

import "errors"

// Capacity errors: the requested seats cannot be satisfied by the ledger.
var (
	ErrInsufficientSeats         = errors.New("not enough available seats on this trip")
	ErrSeatAlreadyTaken          = errors.New("seat is already taken")
	ErrInsufficientReleasedSeats = errors.New("not enough released seats for replacement sale")
)

// Policy errors: the operation is valid in shape but disallowed right now.
var (
	ErrBookingHalted   = errors.New("online booking is halted for this trip")
	ErrTripNotBookable = errors.New("trip is not open for booking")
	ErrTripNotDeparted = errors.New("trip has not departed")
	ErrAmountMismatch  = errors.New("payment amount does not match booking total")
)

// ErrPaymentAlreadyProcessed marks an idempotent replay. Callers treat it
// as success and return the previously settled state unchanged.
var ErrPaymentAlreadyProcessed = errors.New("payment already processed")

// Webhook authenticity errors.
var (
	ErrInvalidWebhookSignature = errors.New("webhook signature verification failed")
	ErrStaleWebhook            = errors.New("webhook timestamp outside freshness window")
)

// ErrValidation wraps request payload rejections so the transport layer
// can map them to a 400.
var ErrValidation = errors.New("validation failed")

// Lookup errors.
var (
	ErrTripNotFound      = errors.New("trip not found")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrPassengerNotFound = errors.New("passenger not found")
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrTicketAlreadyUsed = errors.New("ticket has already been used")
	ErrStaffNotFound     = errors.New("staff user not found")
)

// ErrInvalidPIN rejects a counter sale whose cashier PIN fails the hash
// check.
var ErrInvalidPIN = errors.New("invalid cashier PIN")
