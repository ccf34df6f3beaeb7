package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/swiftbus/booking-backend/internal/models"
)

// ManualSaleRepository handles counter (walk-in) and replacement sales.
// Both are staff-initiated, immediately-paid transactions: seat
// reservation, booking, payment record, and tickets commit atomically.
type ManualSaleRepository struct {
	db            *sqlx.DB
	tripRepo      *TripRepository
	logger        *logrus.Logger
	txTimeout     time.Duration
	verifyBaseURL string
}

// NewManualSaleRepository creates a new ManualSaleRepository
func NewManualSaleRepository(db *sqlx.DB, tripRepo *TripRepository, logger *logrus.Logger, txTimeout time.Duration, verifyBaseURL string) *ManualSaleRepository {
	return &ManualSaleRepository{
		db:            db,
		tripRepo:      tripRepo,
		logger:        logger,
		txTimeout:     txTimeout,
		verifyBaseURL: verifyBaseURL,
	}
}

// CounterSaleResult is what a completed counter sale produced.
type CounterSaleResult struct {
	Booking       *models.Booking `json:"booking"`
	Tickets       []models.Ticket `json:"tickets"`
	ManifestReady bool            `json:"manifest_ready"`
}

// CreateCounterSale records a walk-in sale. Unlike online bookings there
// is no pending-booking dedup (each sale is independent), the sale is paid
// in the same transaction that reserves seats, and a halted trip still
// accepts it. Seat auto-assignment happens inside the transaction, after
// the trip row lock, never from a pre-computed availability snapshot.
func (r *ManualSaleRepository) CreateCounterSale(
	ctx context.Context,
	tripID, staffID string,
	passengers []models.PassengerInput,
	method models.PaymentMethod,
	pricing PricingFunc,
) (*CounterSaleResult, error) {
	var result CounterSaleResult

	err := withTxTimeout(ctx, r.db, r.txTimeout, func(ctx context.Context, tx *sqlx.Tx) error {
		trip, err := r.tripRepo.lockTrip(ctx, tx, tripID)
		if err != nil {
			return err
		}
		if !trip.IsBookable() {
			return models.ErrTripNotBookable
		}

		occupied, err := r.tripRepo.occupiedSeats(ctx, tx, tripID)
		if err != nil {
			return err
		}
		seats, err := assignSeats(trip.TotalSlots, occupied, passengers)
		if err != nil {
			return err
		}

		// Auto-halt is evaluated inside reserveSeats; it affects online
		// booking only, not this path.
		if err := r.tripRepo.reserveSeats(ctx, tx, trip, len(passengers)); err != nil {
			return err
		}

		p := pricing(len(passengers))
		booking := &models.Booking{
			ID:               uuid.New().String(),
			UserID:           staffID,
			TripID:           trip.ID,
			Status:           models.BookingStatusPaid,
			SeatCount:        len(passengers),
			TotalAmount:      p.TotalAmount,
			Commission:       p.Commission,
			CommissionVAT:    p.CommissionVAT,
			IsQuickTicket:    true,
			CreatedByStaffID: &staffID,
		}
		if err := insertPaidBooking(ctx, tx, booking); err != nil {
			return err
		}

		booking.Passengers, err = insertPassengers(ctx, tx, booking.ID, trip.ID, passengers, seats)
		if err != nil {
			return err
		}

		if err := insertCashPayment(ctx, tx, booking, method); err != nil {
			return err
		}

		tickets, err := issueTickets(ctx, tx, booking.ID, booking.Passengers, r.verifyBaseURL)
		if err != nil {
			return err
		}

		manifestReady := false
		if trip.AvailableSlots == 0 {
			manifestReady, err = r.tripRepo.markManifestReady(ctx, tx, trip)
			if err != nil {
				return err
			}
		}

		result = CounterSaleResult{Booking: booking, Tickets: tickets, ManifestReady: manifestReady}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateReplacementSale sells seats freed by no-shows after departure. It
// consumes the released pool and never touches available slots: the seat
// was already sold and counted. Replacement passengers take the physical
// seats surrendered by no-shows.
func (r *ManualSaleRepository) CreateReplacementSale(
	ctx context.Context,
	tripID, staffID, replacedPassengerID string,
	passengers []models.PassengerInput,
	pricing PricingFunc,
) (*CounterSaleResult, error) {
	var result CounterSaleResult

	err := withTxTimeout(ctx, r.db, r.txTimeout, func(ctx context.Context, tx *sqlx.Tx) error {
		trip, err := r.tripRepo.lockTrip(ctx, tx, tripID)
		if err != nil {
			return err
		}
		if trip.Status != models.TripStatusDeparted {
			return models.ErrTripNotDeparted
		}
		if trip.ReleasedSeats < len(passengers) {
			return models.ErrInsufficientReleasedSeats
		}

		if err := r.verifyReplacedPassenger(ctx, tx, tripID, replacedPassengerID); err != nil {
			return err
		}

		freed, err := r.freedSeats(ctx, tx, tripID)
		if err != nil {
			return err
		}
		seats, err := assignFromFreed(freed, passengers)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE trips
			SET released_seats = released_seats - $1,
			    replacements_sold = replacements_sold + $1,
			    updated_at = NOW()
			WHERE id = $2`, len(passengers), tripID); err != nil {
			return fmt.Errorf("failed to consume released seats: %w", err)
		}

		p := pricing(len(passengers))
		booking := &models.Booking{
			ID:                  uuid.New().String(),
			UserID:              staffID,
			TripID:              trip.ID,
			Status:              models.BookingStatusPaid,
			SeatCount:           len(passengers),
			TotalAmount:         p.TotalAmount,
			Commission:          p.Commission,
			CommissionVAT:       p.CommissionVAT,
			IsQuickTicket:       true,
			IsReplacement:       true,
			ReplacedPassengerID: &replacedPassengerID,
			CreatedByStaffID:    &staffID,
		}
		if err := insertPaidBooking(ctx, tx, booking); err != nil {
			return err
		}

		booking.Passengers, err = insertPassengers(ctx, tx, booking.ID, trip.ID, passengers, seats)
		if err != nil {
			return err
		}

		if err := insertCashPayment(ctx, tx, booking, models.PaymentMethodCash); err != nil {
			return err
		}

		tickets, err := issueTickets(ctx, tx, booking.ID, booking.Passengers, r.verifyBaseURL)
		if err != nil {
			return err
		}

		result = CounterSaleResult{Booking: booking, Tickets: tickets}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *ManualSaleRepository) verifyReplacedPassenger(ctx context.Context, tx *sqlx.Tx, tripID, passengerID string) error {
	var boarding models.BoardingStatus
	err := tx.GetContext(ctx, &boarding, `
		SELECT p.boarding_status
		FROM passengers p
		JOIN bookings b ON b.id = p.booking_id
		WHERE p.id = $1 AND p.trip_id = $2 AND b.status != 'cancelled'`,
		passengerID, tripID)
	if err != nil {
		return fmt.Errorf("replaced passenger %s: %w", passengerID, models.ErrPassengerNotFound)
	}
	if boarding != models.BoardingStatusNoShow {
		return fmt.Errorf("passenger %s is not a no-show", passengerID)
	}
	return nil
}

// freedSeats returns seat numbers surrendered by no-shows and not yet
// re-sold to a replacement passenger.
func (r *ManualSaleRepository) freedSeats(ctx context.Context, tx *sqlx.Tx, tripID string) (map[int]bool, error) {
	var noShowSeats []int
	err := tx.SelectContext(ctx, &noShowSeats, `
		SELECT p.seat_number
		FROM passengers p
		JOIN bookings b ON b.id = p.booking_id
		WHERE p.trip_id = $1 AND b.status != 'cancelled' AND p.boarding_status = 'no_show'`,
		tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to load no-show seats: %w", err)
	}

	var resoldSeats []int
	err = tx.SelectContext(ctx, &resoldSeats, `
		SELECT p.seat_number
		FROM passengers p
		JOIN bookings b ON b.id = p.booking_id
		WHERE p.trip_id = $1 AND b.status != 'cancelled' AND b.is_replacement = TRUE`,
		tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to load resold seats: %w", err)
	}

	freed := make(map[int]bool, len(noShowSeats))
	for _, s := range noShowSeats {
		freed[s] = true
	}
	for _, s := range resoldSeats {
		delete(freed, s)
	}
	return freed, nil
}

// assignFromFreed resolves replacement seats against the freed pool:
// explicit picks must name a freed seat, auto picks take the lowest freed
// number.
func assignFromFreed(freed map[int]bool, passengers []models.PassengerInput) ([]int, error) {
	assigned := make([]int, len(passengers))

	for i, p := range passengers {
		if p.SeatNumber == 0 {
			continue
		}
		if !freed[p.SeatNumber] {
			return nil, fmt.Errorf("seat %d: %w", p.SeatNumber, models.ErrSeatAlreadyTaken)
		}
		delete(freed, p.SeatNumber)
		assigned[i] = p.SeatNumber
	}

	for i, p := range passengers {
		if p.SeatNumber != 0 {
			continue
		}
		lowest := 0
		for s := range freed {
			if lowest == 0 || s < lowest {
				lowest = s
			}
		}
		if lowest == 0 {
			return nil, models.ErrInsufficientReleasedSeats
		}
		delete(freed, lowest)
		assigned[i] = lowest
	}
	return assigned, nil
}

func insertPaidBooking(ctx context.Context, tx *sqlx.Tx, booking *models.Booking) error {
	query := `
		INSERT INTO bookings (
			id, user_id, trip_id, status, seat_count,
			total_amount, commission, commission_vat,
			is_quick_ticket, is_replacement, replaced_passenger_id, created_by_staff_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`
	err := tx.QueryRowxContext(ctx, query,
		booking.ID, booking.UserID, booking.TripID, booking.Status, booking.SeatCount,
		booking.TotalAmount, booking.Commission, booking.CommissionVAT,
		booking.IsQuickTicket, booking.IsReplacement, booking.ReplacedPassengerID, booking.CreatedByStaffID,
	).Scan(&booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create counter booking: %w", err)
	}
	return nil
}

func insertCashPayment(ctx context.Context, tx *sqlx.Tx, booking *models.Booking, method models.PaymentMethod) error {
	if method == "" {
		method = models.PaymentMethodCash
	}
	now := time.Now()
	transactionID := fmt.Sprintf("CTR-%s", uuid.New().String())
	_, err := tx.ExecContext(ctx, `
		INSERT INTO payments (id, booking_id, transaction_id, status, method, amount, settled_at)
		VALUES ($1, $2, $3, 'success', $4, $5, $6)`,
		uuid.New().String(), booking.ID, transactionID, method, booking.TotalAmount, now)
	if err != nil {
		return fmt.Errorf("failed to record counter payment: %w", err)
	}
	return nil
}
