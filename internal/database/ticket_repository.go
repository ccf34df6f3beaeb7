package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/swiftbus/booking-backend/internal/models"
	"github.com/swiftbus/booking-backend/pkg/ticketcode"
)

// TicketRepository handles ticket lookup and boarding-gate operations.
// Issuance itself happens inside settlement and sale transactions via
// issueTickets.
type TicketRepository struct {
	db *sqlx.DB
}

// NewTicketRepository creates a new TicketRepository
func NewTicketRepository(db *sqlx.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// issueTickets creates one ticket per passenger inside the caller's
// transaction. Short codes are re-checked for uniqueness against the whole
// tickets table: generate, check, retry.
func issueTickets(ctx context.Context, tx *sqlx.Tx, bookingID string, passengers []models.Passenger, verifyBaseURL string) ([]models.Ticket, error) {
	tickets := make([]models.Ticket, 0, len(passengers))
	for _, p := range passengers {
		code, err := uniqueShortCode(ctx, tx)
		if err != nil {
			return nil, err
		}
		ticket := models.Ticket{
			ID:          uuid.New().String(),
			BookingID:   bookingID,
			PassengerID: p.ID,
			ShortCode:   code,
			QRCode:      ticketcode.QRPayload(verifyBaseURL, code),
		}
		query := `
			INSERT INTO tickets (id, booking_id, passenger_id, short_code, qr_code, is_used)
			VALUES ($1, $2, $3, $4, $5, FALSE)
			RETURNING issued_at`
		err = tx.QueryRowxContext(ctx, query,
			ticket.ID, ticket.BookingID, ticket.PassengerID, ticket.ShortCode, ticket.QRCode,
		).Scan(&ticket.IssuedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to issue ticket: %w", err)
		}
		tickets = append(tickets, ticket)
	}
	return tickets, nil
}

func uniqueShortCode(ctx context.Context, tx *sqlx.Tx) (string, error) {
	for attempts := 0; attempts < 10; attempts++ {
		code, err := ticketcode.NewShortCode()
		if err != nil {
			return "", err
		}
		var count int
		if err := tx.GetContext(ctx, &count,
			`SELECT COUNT(*) FROM tickets WHERE short_code = $1`, code); err != nil {
			return "", fmt.Errorf("failed to check short code uniqueness: %w", err)
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique short code after 10 attempts")
}

// GetByShortCode returns the gate-facing verification view of a ticket.
func (r *TicketRepository) GetByShortCode(ctx context.Context, code string) (*models.TicketVerification, error) {
	var v struct {
		ShortCode     string                `db:"short_code"`
		IsUsed        bool                  `db:"is_used"`
		UsedAt        *time.Time            `db:"used_at"`
		PassengerName string                `db:"full_name"`
		SeatNumber    int                   `db:"seat_number"`
		TripID        string                `db:"trip_id"`
		Boarding      models.BoardingStatus `db:"boarding_status"`
	}
	query := `
		SELECT t.short_code, t.is_used, t.used_at,
		       p.full_name, p.seat_number, p.trip_id, p.boarding_status
		FROM tickets t
		JOIN passengers p ON p.id = t.passenger_id
		WHERE t.short_code = $1`
	if err := r.db.GetContext(ctx, &v, query, code); err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to look up ticket: %w", err)
	}
	return &models.TicketVerification{
		Valid:         true,
		ShortCode:     v.ShortCode,
		PassengerName: v.PassengerName,
		SeatNumber:    v.SeatNumber,
		TripID:        v.TripID,
		IsUsed:        v.IsUsed,
		UsedAt:        v.UsedAt,
		Boarding:      v.Boarding,
	}, nil
}

// ListByBooking returns the tickets issued for a booking.
func (r *TicketRepository) ListByBooking(ctx context.Context, bookingID string) ([]models.Ticket, error) {
	tickets := []models.Ticket{}
	query := `
		SELECT id, booking_id, passenger_id, short_code, qr_code, is_used, used_at, issued_at
		FROM tickets WHERE booking_id = $1 ORDER BY issued_at`
	if err := r.db.SelectContext(ctx, &tickets, query, bookingID); err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, nil
}
