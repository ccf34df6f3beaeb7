package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/swiftbus/booking-backend/internal/models"
)

// BookingRepository handles online booking database operations
type BookingRepository struct {
	db        *sqlx.DB
	tripRepo  *TripRepository
	logger    *logrus.Logger
	txTimeout time.Duration
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB, tripRepo *TripRepository, logger *logrus.Logger, txTimeout time.Duration) *BookingRepository {
	return &BookingRepository{
		db:        db,
		tripRepo:  tripRepo,
		logger:    logger,
		txTimeout: txTimeout,
	}
}

const bookingColumns = `
	id, user_id, trip_id, status, seat_count,
	total_amount, commission, commission_vat,
	is_quick_ticket, is_replacement, replaced_passenger_id,
	created_by_staff_id, created_at, updated_at`

// PricingFunc recomputes a booking's monetary fields for a seat count.
// It must be pure: the repository may call it again inside the
// transaction after the final seat count is known.
type PricingFunc func(seatCount int) models.BookingPricing

// CreateOrUpdatePending creates a customer's draft booking for a trip, or
// updates the existing pending one. The pending-booking lookup, the seat
// reservation, and the writes all share one transaction behind the trip
// row lock; two concurrent requests can therefore never both observe "no
// pending booking" and both insert one. The returned trip snapshot
// reflects the ledger after the write, including a freshly triggered halt.
func (r *BookingRepository) CreateOrUpdatePending(
	ctx context.Context,
	userID, tripID string,
	passengers []models.PassengerInput,
	pricing PricingFunc,
) (*models.Booking, *models.Trip, error) {
	var (
		booking *models.Booking
		trip    *models.Trip
	)

	err := withTxTimeout(ctx, r.db, r.txTimeout, func(ctx context.Context, tx *sqlx.Tx) error {
		var err error
		trip, err = r.tripRepo.lockTrip(ctx, tx, tripID)
		if err != nil {
			return err
		}
		if !trip.IsBookable() {
			return models.ErrTripNotBookable
		}

		existing, err := r.pendingForUserTrip(ctx, tx, userID, tripID)
		if err != nil {
			return err
		}
		if existing == nil && trip.BookingHalted {
			// A halted trip rejects new online bookings; updating an
			// already-held draft is still allowed.
			return models.ErrBookingHalted
		}

		occupied, err := r.tripRepo.occupiedSeats(ctx, tx, tripID)
		if err != nil {
			return err
		}

		if existing == nil {
			booking, err = r.createPending(ctx, tx, trip, userID, passengers, occupied, pricing)
			return err
		}
		booking, err = r.updatePending(ctx, tx, trip, existing, passengers, occupied, pricing)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return booking, trip, nil
}

// pendingForUserTrip looks up the caller's non-cancelled pending booking
// inside the transaction. This is the system's most important concurrency
// contract: the lookup never happens outside the transaction that acts on
// its result.
func (r *BookingRepository) pendingForUserTrip(ctx context.Context, tx *sqlx.Tx, userID, tripID string) (*models.Booking, error) {
	var booking models.Booking
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE user_id = $1 AND trip_id = $2 AND status = 'pending'
		FOR UPDATE`
	err := tx.GetContext(ctx, &booking, query, userID, tripID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up pending booking: %w", err)
	}
	return &booking, nil
}

func (r *BookingRepository) createPending(
	ctx context.Context,
	tx *sqlx.Tx,
	trip *models.Trip,
	userID string,
	passengers []models.PassengerInput,
	occupied map[int]bool,
	pricing PricingFunc,
) (*models.Booking, error) {
	seats, err := assignSeats(trip.TotalSlots, occupied, passengers)
	if err != nil {
		return nil, err
	}
	if err := r.tripRepo.reserveSeats(ctx, tx, trip, len(passengers)); err != nil {
		return nil, err
	}

	p := pricing(len(passengers))
	booking := &models.Booking{
		ID:            uuid.New().String(),
		UserID:        userID,
		TripID:        trip.ID,
		Status:        models.BookingStatusPending,
		SeatCount:     len(passengers),
		TotalAmount:   p.TotalAmount,
		Commission:    p.Commission,
		CommissionVAT: p.CommissionVAT,
	}

	query := `
		INSERT INTO bookings (
			id, user_id, trip_id, status, seat_count,
			total_amount, commission, commission_vat,
			is_quick_ticket, is_replacement
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, FALSE)
		RETURNING created_at, updated_at`
	err = tx.QueryRowxContext(ctx, query,
		booking.ID, booking.UserID, booking.TripID, booking.Status, booking.SeatCount,
		booking.TotalAmount, booking.Commission, booking.CommissionVAT,
	).Scan(&booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	booking.Passengers, err = insertPassengers(ctx, tx, booking.ID, trip.ID, passengers, seats)
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// updatePending replaces the draft's passenger list wholesale. The ledger
// is delta-adjusted in the same transaction when the passenger count
// changed; the draft's own seats are freed for reassignment first.
func (r *BookingRepository) updatePending(
	ctx context.Context,
	tx *sqlx.Tx,
	trip *models.Trip,
	existing *models.Booking,
	passengers []models.PassengerInput,
	occupied map[int]bool,
	pricing PricingFunc,
) (*models.Booking, error) {
	var oldSeats []int
	err := tx.SelectContext(ctx, &oldSeats,
		`SELECT seat_number FROM passengers WHERE booking_id = $1`, existing.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load draft passengers: %w", err)
	}
	for _, s := range oldSeats {
		delete(occupied, s)
	}

	seats, err := assignSeats(trip.TotalSlots, occupied, passengers)
	if err != nil {
		return nil, err
	}

	delta := len(passengers) - len(oldSeats)
	if delta > 0 {
		if err := r.tripRepo.reserveSeats(ctx, tx, trip, delta); err != nil {
			return nil, err
		}
	} else if delta < 0 {
		if err := r.tripRepo.releaseSeats(ctx, tx, trip, -delta); err != nil {
			return nil, err
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM passengers WHERE booking_id = $1`, existing.ID); err != nil {
		return nil, fmt.Errorf("failed to clear draft passengers: %w", err)
	}

	p := pricing(len(passengers))
	existing.SeatCount = len(passengers)
	existing.TotalAmount = p.TotalAmount
	existing.Commission = p.Commission
	existing.CommissionVAT = p.CommissionVAT

	query := `
		UPDATE bookings
		SET seat_count = $1, total_amount = $2, commission = $3, commission_vat = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at`
	err = tx.QueryRowxContext(ctx, query,
		existing.SeatCount, existing.TotalAmount, existing.Commission, existing.CommissionVAT,
		existing.ID,
	).Scan(&existing.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}

	existing.Passengers, err = insertPassengers(ctx, tx, existing.ID, trip.ID, passengers, seats)
	if err != nil {
		return nil, err
	}
	return existing, nil
}

func insertPassengers(ctx context.Context, tx *sqlx.Tx, bookingID, tripID string, inputs []models.PassengerInput, seats []int) ([]models.Passenger, error) {
	created := make([]models.Passenger, 0, len(inputs))
	query := `
		INSERT INTO passengers (id, booking_id, trip_id, full_name, phone, seat_number, boarding_status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		RETURNING created_at`
	for i, in := range inputs {
		p := models.Passenger{
			ID:         uuid.New().String(),
			BookingID:  bookingID,
			TripID:     tripID,
			FullName:   in.FullName,
			Phone:      in.Phone,
			SeatNumber: seats[i],
			Boarding:   models.BoardingStatusPending,
		}
		err := tx.QueryRowxContext(ctx, query,
			p.ID, p.BookingID, p.TripID, p.FullName, p.Phone, p.SeatNumber,
		).Scan(&p.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to create passenger: %w", err)
		}
		created = append(created, p)
	}
	return created, nil
}

// GetByID fetches a booking with its passengers.
func (r *BookingRepository) GetByID(ctx context.Context, bookingID string) (*models.Booking, error) {
	var booking models.Booking
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	if err := r.db.GetContext(ctx, &booking, query, bookingID); err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	err := r.db.SelectContext(ctx, &booking.Passengers,
		`SELECT id, booking_id, trip_id, full_name, phone, seat_number, boarding_status, boarded_at, created_at
		 FROM passengers WHERE booking_id = $1 ORDER BY seat_number`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load passengers: %w", err)
	}
	return &booking, nil
}

// ListByUser returns a user's bookings, newest first.
func (r *BookingRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Booking, error) {
	bookings := []models.Booking{}
	query := `SELECT ` + bookingColumns + `
		FROM bookings WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	if err := r.db.SelectContext(ctx, &bookings, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}
