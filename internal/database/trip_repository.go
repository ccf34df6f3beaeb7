package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/swiftbus/booking-backend/internal/models"
)

// TripRepository owns the seat ledger: the per-trip counters and the
// derived occupied-seat set. Ledger mutations (lockTrip, reserveSeats,
// releaseSeats) take a transaction so the decrement and its business cause
// commit atomically; callers never pre-check availability outside the
// transaction.
type TripRepository struct {
	db            *sqlx.DB
	logger        *logrus.Logger
	haltThreshold int
	txTimeout     time.Duration
}

// NewTripRepository creates a new TripRepository
func NewTripRepository(db *sqlx.DB, logger *logrus.Logger, haltThreshold int, txTimeout time.Duration) *TripRepository {
	return &TripRepository{
		db:            db,
		logger:        logger,
		haltThreshold: haltThreshold,
		txTimeout:     txTimeout,
	}
}

const tripColumns = `
	id, company_id, route_name, status, departure_datetime, price_per_seat,
	total_slots, available_slots,
	booking_halted, halt_override, resume_suppressed,
	no_show_count, released_seats, replacements_sold, manifest_ready,
	created_at, updated_at`

// GetByID fetches a trip without locking it. Use lockTrip inside a
// transaction before mutating the ledger.
func (r *TripRepository) GetByID(ctx context.Context, tripID string) (*models.Trip, error) {
	var trip models.Trip
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`
	if err := r.db.GetContext(ctx, &trip, query, tripID); err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrTripNotFound
		}
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return &trip, nil
}

// lockTrip fetches the trip row FOR UPDATE. Every ledger-touching
// transaction starts here; the row lock serializes concurrent writers per
// trip so check-then-act sequences cannot interleave.
func (r *TripRepository) lockTrip(ctx context.Context, tx *sqlx.Tx, tripID string) (*models.Trip, error) {
	var trip models.Trip
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &trip, query, tripID); err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrTripNotFound
		}
		return nil, fmt.Errorf("failed to lock trip: %w", err)
	}
	return &trip, nil
}

// occupiedSeats returns the live set of seat numbers held by passengers of
// non-cancelled bookings, read inside the caller's transaction.
func (r *TripRepository) occupiedSeats(ctx context.Context, tx *sqlx.Tx, tripID string) (map[int]bool, error) {
	var seats []int
	query := `
		SELECT p.seat_number
		FROM passengers p
		JOIN bookings b ON b.id = p.booking_id
		WHERE p.trip_id = $1 AND b.status != 'cancelled'`
	if err := tx.SelectContext(ctx, &seats, query, tripID); err != nil {
		return nil, fmt.Errorf("failed to load occupied seats: %w", err)
	}
	occupied := make(map[int]bool, len(seats))
	for _, s := range seats {
		occupied[s] = true
	}
	return occupied, nil
}

// assignSeats resolves the seat number for every passenger input against
// the occupancy set. Explicit requests fail with ErrSeatAlreadyTaken if the
// seat is occupied or requested twice; zero-valued requests get the first
// unoccupied number ascending. Assignment is a function of occupancy at
// commit time only.
func assignSeats(totalSlots int, occupied map[int]bool, passengers []models.PassengerInput) ([]int, error) {
	taken := make(map[int]bool, len(occupied))
	for s := range occupied {
		taken[s] = true
	}

	assigned := make([]int, len(passengers))

	// Explicit picks first so auto-assignment skips them.
	for i, p := range passengers {
		if p.SeatNumber == 0 {
			continue
		}
		if p.SeatNumber > totalSlots {
			return nil, fmt.Errorf("seat %d does not exist on this trip", p.SeatNumber)
		}
		if taken[p.SeatNumber] {
			return nil, fmt.Errorf("seat %d: %w", p.SeatNumber, models.ErrSeatAlreadyTaken)
		}
		taken[p.SeatNumber] = true
		assigned[i] = p.SeatNumber
	}

	next := 1
	for i, p := range passengers {
		if p.SeatNumber != 0 {
			continue
		}
		for next <= totalSlots && taken[next] {
			next++
		}
		if next > totalSlots {
			return nil, models.ErrInsufficientSeats
		}
		taken[next] = true
		assigned[i] = next
	}

	return assigned, nil
}

// reserveSeats decrements the available-slot counter for a locked trip and
// evaluates the auto-halt trigger, all inside the caller's transaction.
// The availability check happens here, after the row lock, never before
// the transaction opened.
func (r *TripRepository) reserveSeats(ctx context.Context, tx *sqlx.Tx, trip *models.Trip, count int) error {
	if trip.AvailableSlots < count {
		return models.ErrInsufficientSeats
	}

	// Suppression from an admin resume holds only while slots sit at or
	// below the threshold. Observing the locked trip above it re-arms
	// auto-halt before this decrement is applied.
	clearSuppression := trip.ResumeSuppressed && trip.AvailableSlots > r.haltThreshold
	if clearSuppression {
		trip.ResumeSuppressed = false
	}

	trip.AvailableSlots -= count

	_, err := tx.ExecContext(ctx,
		`UPDATE trips SET available_slots = $1, resume_suppressed = resume_suppressed AND NOT $2, updated_at = NOW() WHERE id = $3`,
		trip.AvailableSlots, clearSuppression, trip.ID)
	if err != nil {
		return fmt.Errorf("failed to decrement available slots: %w", err)
	}

	return r.evaluateAutoHalt(ctx, tx, trip)
}

// releaseSeats returns seats to the ledger, capped at total capacity. A
// capped release means release was attempted beyond capacity, which points
// at a latent bug upstream, so it is logged loudly rather than silently
// tolerated.
func (r *TripRepository) releaseSeats(ctx context.Context, tx *sqlx.Tx, trip *models.Trip, count int) error {
	restored := trip.AvailableSlots + count
	if restored > trip.TotalSlots {
		r.logger.WithFields(logrus.Fields{
			"trip_id":         trip.ID,
			"available_slots": trip.AvailableSlots,
			"total_slots":     trip.TotalSlots,
			"release_count":   count,
		}).Error("Seat release would exceed trip capacity; capping at total slots")
		restored = trip.TotalSlots
	}
	trip.AvailableSlots = restored

	// An admin resume suppresses re-halting only until slots climb back
	// above the threshold.
	clearSuppression := trip.ResumeSuppressed && restored > r.haltThreshold
	if clearSuppression {
		trip.ResumeSuppressed = false
	}

	_, err := tx.ExecContext(ctx,
		`UPDATE trips SET available_slots = $1, resume_suppressed = resume_suppressed AND NOT $2, updated_at = NOW() WHERE id = $3`,
		restored, clearSuppression, trip.ID)
	if err != nil {
		return fmt.Errorf("failed to release seats: %w", err)
	}
	return nil
}

// evaluateAutoHalt runs inside the same transaction as every seat
// decrement. Once available slots fall to the threshold, online booking is
// halted unless the trip or its company carries a bypass flag, or an admin
// resume is still being honoured.
func (r *TripRepository) evaluateAutoHalt(ctx context.Context, tx *sqlx.Tx, trip *models.Trip) error {
	if trip.AvailableSlots > r.haltThreshold || trip.BookingHalted || trip.HaltOverride || trip.ResumeSuppressed {
		return nil
	}

	var companyBypass bool
	err := tx.GetContext(ctx, &companyBypass,
		`SELECT booking_halt_bypass FROM companies WHERE id = $1`, trip.CompanyID)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to check company halt bypass: %w", err)
	}
	if companyBypass {
		return nil
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE trips SET booking_halted = TRUE, updated_at = NOW() WHERE id = $1`, trip.ID)
	if err != nil {
		return fmt.Errorf("failed to auto-halt trip: %w", err)
	}
	trip.BookingHalted = true
	trip.JustHalted = true

	r.logger.WithFields(logrus.Fields{
		"trip_id":         trip.ID,
		"available_slots": trip.AvailableSlots,
		"threshold":       r.haltThreshold,
	}).Info("Auto-halt triggered: online booking suspended")
	return nil
}

// markManifestReady sets the manifest flag once, when a trip sells out.
// The flag is checked before setting so repeated zero-availability sales
// do not rewrite it.
func (r *TripRepository) markManifestReady(ctx context.Context, tx *sqlx.Tx, trip *models.Trip) (bool, error) {
	if trip.ManifestReady {
		return false, nil
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE trips SET manifest_ready = TRUE, updated_at = NOW() WHERE id = $1 AND manifest_ready = FALSE`,
		trip.ID)
	if err != nil {
		return false, fmt.Errorf("failed to mark manifest ready: %w", err)
	}
	rows, _ := res.RowsAffected()
	trip.ManifestReady = true
	return rows > 0, nil
}

// HaltBooking manually suspends online booking for a trip.
func (r *TripRepository) HaltBooking(ctx context.Context, tripID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE trips SET booking_halted = TRUE, updated_at = NOW() WHERE id = $1`, tripID)
	if err != nil {
		return fmt.Errorf("failed to halt booking: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return models.ErrTripNotFound
	}
	return nil
}

// ResumeBooking lifts a halt and suppresses the auto-halt trigger until
// available slots rise above the threshold again.
func (r *TripRepository) ResumeBooking(ctx context.Context, tripID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE trips SET booking_halted = FALSE, resume_suppressed = TRUE, updated_at = NOW() WHERE id = $1`, tripID)
	if err != nil {
		return fmt.Errorf("failed to resume booking: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return models.ErrTripNotFound
	}
	return nil
}

// DepartTrip transitions a trip to departed, gating the boarding workflow.
func (r *TripRepository) DepartTrip(ctx context.Context, tripID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE trips SET status = 'departed', updated_at = NOW()
		 WHERE id = $1 AND status IN ('scheduled', 'boarding')`, tripID)
	if err != nil {
		return fmt.Errorf("failed to depart trip: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		// Either no such trip or it already departed/completed/cancelled.
		if _, getErr := r.GetByID(ctx, tripID); getErr != nil {
			return getErr
		}
		return models.ErrTripNotBookable
	}
	return nil
}

// Manifest returns the staff-facing passenger list for a trip, excluding
// cancelled bookings.
func (r *TripRepository) Manifest(ctx context.Context, tripID string) ([]models.TripManifestEntry, error) {
	entries := []models.TripManifestEntry{}
	query := `
		SELECT p.id AS passenger_id, p.full_name AS passenger_name, p.seat_number,
		       b.id AS booking_id, b.status AS booking_status, p.boarding_status,
		       b.is_quick_ticket, b.is_replacement
		FROM passengers p
		JOIN bookings b ON b.id = p.booking_id
		WHERE p.trip_id = $1 AND b.status != 'cancelled'
		ORDER BY p.seat_number`
	if err := r.db.SelectContext(ctx, &entries, query, tripID); err != nil {
		return nil, fmt.Errorf("failed to load trip manifest: %w", err)
	}
	return entries, nil
}
