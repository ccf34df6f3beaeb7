package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swiftbus/booking-backend/internal/models"
)

func newTestPaymentRepo(t *testing.T) (sqlmock.Sqlmock, *PaymentRepository) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	logger := logrus.New()
	tripRepo := NewTripRepository(sqlxDB, logger, 10, 15*time.Second)
	repo := NewPaymentRepository(sqlxDB, tripRepo, logger, 15*time.Second, "https://tickets.swiftbus.app/verify")
	return mock, repo
}

var bookingRowColumns = []string{
	"id", "user_id", "trip_id", "status", "seat_count",
	"total_amount", "commission", "commission_vat",
	"is_quick_ticket", "is_replacement", "replaced_passenger_id",
	"created_by_staff_id", "created_at", "updated_at",
}

func pendingBookingRow(seatCount int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(bookingRowColumns).AddRow(
		"booking-1", "user-1", "trip-1", "pending", seatCount,
		"528.75", "25.00", "3.75",
		false, false, nil,
		nil, now, now,
	)
}

func TestSettleSuccess(t *testing.T) {
	amount := decimal.RequireFromString("528.75")

	t.Run("Settles Pending Booking", func(t *testing.T) {
		mock, repo := newTestPaymentRepo(t)
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM bookings WHERE id = \$1 FOR UPDATE`).
			WithArgs("booking-1").
			WillReturnRows(pendingBookingRow(1))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM payments WHERE transaction_id`).
			WithArgs("TXN-123").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`INSERT INTO payments`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
		mock.ExpectExec(`UPDATE bookings SET status = 'paid'`).
			WithArgs("booking-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`FROM passengers WHERE booking_id = \$1`).
			WithArgs("booking-1").
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "booking_id", "trip_id", "full_name", "phone", "seat_number", "boarding_status", "boarded_at", "created_at",
			}).AddRow("passenger-1", "booking-1", "trip-1", "Abebe Kebede", nil, 3, "pending", nil, now))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM tickets WHERE short_code`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`INSERT INTO tickets`).
			WillReturnRows(sqlmock.NewRows([]string{"issued_at"}).AddRow(now))
		mock.ExpectExec(`INSERT INTO sales_commissions`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		allocations := []models.CommissionAllocation{{
			BeneficiaryID: "sales-1",
			Role:          models.CommissionRoleSalesPerson,
			Amount:        decimal.RequireFromString("1.25"),
		}}
		result, err := repo.SettleSuccess(context.Background(), "booking-1", "TXN-123", models.PaymentMethodMobileMoney, amount, allocations)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusSuccess, result.Payment.Status)
		assert.Equal(t, "TXN-123", result.Payment.TransactionID)
		require.Len(t, result.Tickets, 1)
		assert.Equal(t, "passenger-1", result.Tickets[0].PassengerID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Replayed Transaction Is No-Op", func(t *testing.T) {
		mock, repo := newTestPaymentRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM bookings WHERE id = \$1 FOR UPDATE`).
			WithArgs("booking-1").
			WillReturnRows(pendingBookingRow(1))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM payments WHERE transaction_id`).
			WithArgs("TXN-123").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectRollback()

		_, err := repo.SettleSuccess(context.Background(), "booking-1", "TXN-123", models.PaymentMethodMobileMoney, amount, nil)
		assert.ErrorIs(t, err, models.ErrPaymentAlreadyProcessed)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already Paid Booking Is No-Op", func(t *testing.T) {
		mock, repo := newTestPaymentRepo(t)
		now := time.Now()

		paid := sqlmock.NewRows(bookingRowColumns).AddRow(
			"booking-1", "user-1", "trip-1", "paid", 1,
			"528.75", "25.00", "3.75",
			false, false, nil,
			nil, now, now,
		)
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM bookings WHERE id = \$1 FOR UPDATE`).
			WithArgs("booking-1").
			WillReturnRows(paid)
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM payments WHERE transaction_id`).
			WithArgs("TXN-456").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectRollback()

		_, err := repo.SettleSuccess(context.Background(), "booking-1", "TXN-456", models.PaymentMethodMobileMoney, amount, nil)
		assert.ErrorIs(t, err, models.ErrPaymentAlreadyProcessed)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown Booking", func(t *testing.T) {
		mock, repo := newTestPaymentRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM bookings WHERE id = \$1 FOR UPDATE`).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, err := repo.SettleSuccess(context.Background(), "missing", "TXN-789", models.PaymentMethodMobileMoney, amount, nil)
		assert.ErrorIs(t, err, models.ErrBookingNotFound)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSettleFailure(t *testing.T) {
	amount := decimal.RequireFromString("528.75")

	t.Run("Cancels Booking And Releases Seats", func(t *testing.T) {
		mock, repo := newTestPaymentRepo(t)
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT trip_id FROM bookings WHERE id = \$1`).
			WithArgs("booking-1").
			WillReturnRows(sqlmock.NewRows([]string{"trip_id"}).AddRow("trip-1"))
		mock.ExpectQuery(`FROM trips WHERE id = \$1 FOR UPDATE`).
			WithArgs("trip-1").
			WillReturnRows(tripRow(8, true))
		mock.ExpectQuery(`FROM bookings WHERE id = \$1 FOR UPDATE`).
			WithArgs("booking-1").
			WillReturnRows(pendingBookingRow(2))
		mock.ExpectQuery(`INSERT INTO payments`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
		mock.ExpectExec(`UPDATE bookings SET status = 'cancelled'`).
			WithArgs("booking-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE trips SET available_slots = \$1, resume_suppressed`).
			WithArgs(10, false, "trip-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		payment, err := repo.SettleFailure(context.Background(), "booking-1", "TXN-123", models.PaymentMethodMobileMoney, amount)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusFailed, payment.Status)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Cancelled Booking Is No-Op", func(t *testing.T) {
		mock, repo := newTestPaymentRepo(t)
		now := time.Now()

		cancelled := sqlmock.NewRows(bookingRowColumns).AddRow(
			"booking-1", "user-1", "trip-1", "cancelled", 2,
			"528.75", "25.00", "3.75",
			false, false, nil,
			nil, now, now,
		)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT trip_id FROM bookings WHERE id = \$1`).
			WithArgs("booking-1").
			WillReturnRows(sqlmock.NewRows([]string{"trip_id"}).AddRow("trip-1"))
		mock.ExpectQuery(`FROM trips WHERE id = \$1 FOR UPDATE`).
			WithArgs("trip-1").
			WillReturnRows(tripRow(10, false))
		mock.ExpectQuery(`FROM bookings WHERE id = \$1 FOR UPDATE`).
			WithArgs("booking-1").
			WillReturnRows(cancelled)
		mock.ExpectRollback()

		_, err := repo.SettleFailure(context.Background(), "booking-1", "TXN-123", models.PaymentMethodMobileMoney, amount)
		assert.ErrorIs(t, err, models.ErrPaymentAlreadyProcessed)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
