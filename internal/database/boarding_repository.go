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

// BoardingRepository handles the post-departure workflow: marking
// passengers boarded at the gate and flagging no-shows into the released
// pool.
type BoardingRepository struct {
	db        *sqlx.DB
	tripRepo  *TripRepository
	logger    *logrus.Logger
	txTimeout time.Duration
}

// NewBoardingRepository creates a new BoardingRepository
func NewBoardingRepository(db *sqlx.DB, tripRepo *TripRepository, logger *logrus.Logger, txTimeout time.Duration) *BoardingRepository {
	return &BoardingRepository{
		db:        db,
		tripRepo:  tripRepo,
		logger:    logger,
		txTimeout: txTimeout,
	}
}

// BoardPassenger marks a ticket used and its passenger boarded. Boarded is
// terminal; a used ticket cannot board again.
func (r *BoardingRepository) BoardPassenger(ctx context.Context, shortCode string) (*models.TicketVerification, error) {
	var verification *models.TicketVerification

	err := withTxTimeout(ctx, r.db, r.txTimeout, func(ctx context.Context, tx *sqlx.Tx) error {
		var row struct {
			TicketID      string     `db:"ticket_id"`
			PassengerID   string     `db:"passenger_id"`
			TripID        string     `db:"trip_id"`
			IsUsed        bool       `db:"is_used"`
			UsedAt        *time.Time `db:"used_at"`
			FullName      string     `db:"full_name"`
			SeatNumber    int        `db:"seat_number"`
			TripStatus    string     `db:"trip_status"`
			BookingStatus string     `db:"booking_status"`
		}
		query := `
			SELECT t.id AS ticket_id, p.id AS passenger_id, p.trip_id,
			       t.is_used, t.used_at, p.full_name, p.seat_number,
			       tr.status AS trip_status, b.status AS booking_status
			FROM tickets t
			JOIN passengers p ON p.id = t.passenger_id
			JOIN bookings b ON b.id = t.booking_id
			JOIN trips tr ON tr.id = p.trip_id
			WHERE t.short_code = $1
			FOR UPDATE OF t, p`
		err := tx.GetContext(ctx, &row, query, shortCode)
		if err == sql.ErrNoRows {
			return models.ErrTicketNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to look up ticket: %w", err)
		}

		if models.TripStatus(row.TripStatus) != models.TripStatusDeparted {
			return models.ErrTripNotDeparted
		}
		if models.BookingStatus(row.BookingStatus) == models.BookingStatusCancelled {
			return models.ErrTicketNotFound
		}
		if row.IsUsed {
			return models.ErrTicketAlreadyUsed
		}

		now := time.Now()
		if _, err := tx.ExecContext(ctx,
			`UPDATE tickets SET is_used = TRUE, used_at = $1 WHERE id = $2`,
			now, row.TicketID); err != nil {
			return fmt.Errorf("failed to mark ticket used: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE passengers SET boarding_status = 'boarded', boarded_at = $1 WHERE id = $2`,
			now, row.PassengerID); err != nil {
			return fmt.Errorf("failed to mark passenger boarded: %w", err)
		}

		verification = &models.TicketVerification{
			Valid:         true,
			ShortCode:     shortCode,
			PassengerName: row.FullName,
			SeatNumber:    row.SeatNumber,
			TripID:        row.TripID,
			IsUsed:        true,
			UsedAt:        &now,
			Boarding:      models.BoardingStatusBoarded,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return verification, nil
}

// MarkNoShows flags the given passengers as no-shows and moves their seats
// into the trip's released pool, all in one transaction. Passengers
// already boarded or already flagged are skipped, not errored on; the
// per-passenger outcome list lets the caller report "N marked, M skipped".
// No-show is terminal and not reversible.
func (r *BoardingRepository) MarkNoShows(ctx context.Context, tripID string, passengerIDs []string) ([]models.NoShowOutcome, error) {
	outcomes := make([]models.NoShowOutcome, 0, len(passengerIDs))

	err := withTxTimeout(ctx, r.db, r.txTimeout, func(ctx context.Context, tx *sqlx.Tx) error {
		trip, err := r.tripRepo.lockTrip(ctx, tx, tripID)
		if err != nil {
			return err
		}
		if trip.Status != models.TripStatusDeparted {
			return models.ErrTripNotDeparted
		}

		marked := 0
		for _, passengerID := range passengerIDs {
			outcome := models.NoShowOutcome{PassengerID: passengerID}

			var row struct {
				Boarding   models.BoardingStatus `db:"boarding_status"`
				TicketUsed sql.NullBool          `db:"ticket_used"`
			}
			err := tx.GetContext(ctx, &row, `
				SELECT p.boarding_status, t.is_used AS ticket_used
				FROM passengers p
				JOIN bookings b ON b.id = p.booking_id
				LEFT JOIN tickets t ON t.passenger_id = p.id
				WHERE p.id = $1 AND p.trip_id = $2 AND b.status != 'cancelled'
				FOR UPDATE OF p`, passengerID, tripID)
			if err == sql.ErrNoRows {
				outcome.Reason = "passenger not found on this trip"
				outcomes = append(outcomes, outcome)
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to load passenger %s: %w", passengerID, err)
			}

			switch {
			case row.Boarding == models.BoardingStatusBoarded || (row.TicketUsed.Valid && row.TicketUsed.Bool):
				outcome.Reason = "already boarded"
			case row.Boarding == models.BoardingStatusNoShow:
				outcome.Reason = "already marked no-show"
			default:
				if _, err := tx.ExecContext(ctx,
					`UPDATE passengers SET boarding_status = 'no_show' WHERE id = $1`,
					passengerID); err != nil {
					return fmt.Errorf("failed to mark passenger %s no-show: %w", passengerID, err)
				}
				outcome.Marked = true
				marked++
			}
			outcomes = append(outcomes, outcome)
		}

		if marked > 0 {
			if _, err := tx.ExecContext(ctx, `
				UPDATE trips
				SET no_show_count = no_show_count + $1,
				    released_seats = released_seats + $1,
				    updated_at = NOW()
				WHERE id = $2`, marked, tripID); err != nil {
				return fmt.Errorf("failed to update no-show counters: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcomes, nil
}
