package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/swiftbus/booking-backend/internal/models"
)

// PaymentRepository owns the settlement transactions: the single atomic
// step that turns a pending booking into a paid one (tickets issued,
// commissions recorded) or a cancelled one (seats released). A crash
// between "mark paid" and "issue tickets" is not observable because both
// happen in one transaction or not at all.
type PaymentRepository struct {
	db            *sqlx.DB
	tripRepo      *TripRepository
	logger        *logrus.Logger
	txTimeout     time.Duration
	verifyBaseURL string
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(db *sqlx.DB, tripRepo *TripRepository, logger *logrus.Logger, txTimeout time.Duration, verifyBaseURL string) *PaymentRepository {
	return &PaymentRepository{
		db:            db,
		tripRepo:      tripRepo,
		logger:        logger,
		txTimeout:     txTimeout,
		verifyBaseURL: verifyBaseURL,
	}
}

const paymentColumns = `id, booking_id, transaction_id, status, method, amount, created_at, settled_at`

// GetByTransactionID looks up a payment by the provider's transaction
// identifier, the idempotency key for webhook processing. Returns nil when
// the transaction has never been seen.
func (r *PaymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	var payment models.Payment
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE transaction_id = $1`
	err := r.db.GetContext(ctx, &payment, query, transactionID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &payment, nil
}

// SettlementResult is what a successful settlement produced.
type SettlementResult struct {
	Payment models.Payment  `json:"payment"`
	Tickets []models.Ticket `json:"tickets"`
}

// SettleSuccess records a successful payment and issues tickets in one
// transaction. The transaction-id uniqueness is re-checked inside the
// transaction so a concurrent replay of the same webhook cannot settle
// twice; the loser surfaces ErrPaymentAlreadyProcessed and is reported as
// a no-op success upstream.
func (r *PaymentRepository) SettleSuccess(
	ctx context.Context,
	bookingID, transactionID string,
	method models.PaymentMethod,
	amount decimal.Decimal,
	allocations []models.CommissionAllocation,
) (*SettlementResult, error) {
	var result SettlementResult

	err := withTxTimeout(ctx, r.db, r.txTimeout, func(ctx context.Context, tx *sqlx.Tx) error {
		booking, err := lockBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}

		var existing int
		if err := tx.GetContext(ctx, &existing,
			`SELECT COUNT(*) FROM payments WHERE transaction_id = $1 AND status = 'success'`,
			transactionID); err != nil {
			return fmt.Errorf("failed to check payment idempotency: %w", err)
		}
		if existing > 0 || booking.Status == models.BookingStatusPaid {
			return models.ErrPaymentAlreadyProcessed
		}
		if booking.Status != models.BookingStatusPending {
			return fmt.Errorf("booking %s is %s, cannot settle", booking.ID, booking.Status)
		}

		now := time.Now()
		payment := models.Payment{
			ID:            uuid.New().String(),
			BookingID:     booking.ID,
			TransactionID: transactionID,
			Status:        models.PaymentStatusSuccess,
			Method:        method,
			Amount:        amount,
			SettledAt:     &now,
		}
		err = tx.QueryRowxContext(ctx, `
			INSERT INTO payments (id, booking_id, transaction_id, status, method, amount, settled_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at`,
			payment.ID, payment.BookingID, payment.TransactionID, payment.Status,
			payment.Method, payment.Amount, payment.SettledAt,
		).Scan(&payment.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE bookings SET status = 'paid', updated_at = NOW() WHERE id = $1`,
			booking.ID); err != nil {
			return fmt.Errorf("failed to mark booking paid: %w", err)
		}

		var passengers []models.Passenger
		err = tx.SelectContext(ctx, &passengers,
			`SELECT id, booking_id, trip_id, full_name, phone, seat_number, boarding_status, boarded_at, created_at
			 FROM passengers WHERE booking_id = $1 ORDER BY seat_number`, booking.ID)
		if err != nil {
			return fmt.Errorf("failed to load passengers: %w", err)
		}

		tickets, err := issueTickets(ctx, tx, booking.ID, passengers, r.verifyBaseURL)
		if err != nil {
			return err
		}

		if err := insertCommissions(ctx, tx, booking.ID, allocations); err != nil {
			return err
		}

		result = SettlementResult{Payment: payment, Tickets: tickets}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// SettleFailure records a failed payment, cancels the booking, and returns
// its seats to the ledger, all in one transaction. The compensating seat
// release is never a separate best-effort step.
func (r *PaymentRepository) SettleFailure(
	ctx context.Context,
	bookingID, transactionID string,
	method models.PaymentMethod,
	amount decimal.Decimal,
) (*models.Payment, error) {
	var payment models.Payment

	err := withTxTimeout(ctx, r.db, r.txTimeout, func(ctx context.Context, tx *sqlx.Tx) error {
		// Lock order is trip first, then booking, matching the booking
		// creation path.
		var tripID string
		err := tx.GetContext(ctx, &tripID, `SELECT trip_id FROM bookings WHERE id = $1`, bookingID)
		if err == sql.ErrNoRows {
			return models.ErrBookingNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to resolve booking trip: %w", err)
		}

		trip, err := r.tripRepo.lockTrip(ctx, tx, tripID)
		if err != nil {
			return err
		}

		booking, err := lockBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if booking.Status == models.BookingStatusCancelled {
			return models.ErrPaymentAlreadyProcessed
		}
		if booking.Status != models.BookingStatusPending {
			return fmt.Errorf("booking %s is %s, cannot cancel", booking.ID, booking.Status)
		}

		now := time.Now()
		payment = models.Payment{
			ID:            uuid.New().String(),
			BookingID:     booking.ID,
			TransactionID: transactionID,
			Status:        models.PaymentStatusFailed,
			Method:        method,
			Amount:        amount,
			SettledAt:     &now,
		}
		err = tx.QueryRowxContext(ctx, `
			INSERT INTO payments (id, booking_id, transaction_id, status, method, amount, settled_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at`,
			payment.ID, payment.BookingID, payment.TransactionID, payment.Status,
			payment.Method, payment.Amount, payment.SettledAt,
		).Scan(&payment.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE bookings SET status = 'cancelled', updated_at = NOW() WHERE id = $1`,
			booking.ID); err != nil {
			return fmt.Errorf("failed to cancel booking: %w", err)
		}

		if err := r.tripRepo.releaseSeats(ctx, tx, trip, booking.SeatCount); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"booking_id":     bookingID,
		"transaction_id": transactionID,
	}).Info("Payment failed; booking cancelled and seats released")
	return &payment, nil
}

func lockBooking(ctx context.Context, tx *sqlx.Tx, bookingID string) (*models.Booking, error) {
	var booking models.Booking
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`
	err := tx.GetContext(ctx, &booking, query, bookingID)
	if err == sql.ErrNoRows {
		return nil, models.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock booking: %w", err)
	}
	return &booking, nil
}
