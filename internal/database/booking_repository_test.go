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

func newTestRepos(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, *TripRepository, *BookingRepository) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	logger := logrus.New()
	tripRepo := NewTripRepository(sqlxDB, logger, 10, 15*time.Second)
	bookingRepo := NewBookingRepository(sqlxDB, tripRepo, logger, 15*time.Second)
	return sqlxDB, mock, tripRepo, bookingRepo
}

var tripRowColumns = []string{
	"id", "company_id", "route_name", "status", "departure_datetime", "price_per_seat",
	"total_slots", "available_slots",
	"booking_halted", "halt_override", "resume_suppressed",
	"no_show_count", "released_seats", "replacements_sold", "manifest_ready",
	"created_at", "updated_at",
}

func tripRow(available int, halted bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(tripRowColumns).AddRow(
		"trip-1", "company-1", "Addis Ababa - Bahir Dar", "scheduled", now.Add(24*time.Hour), "250.00",
		49, available,
		halted, false, false,
		0, 0, 0, false,
		now, now,
	)
}

func flatPricing(seatCount int) models.BookingPricing {
	amount := decimal.NewFromInt(int64(seatCount * 250))
	return models.BookingPricing{
		TicketAmount: amount,
		TotalAmount:  amount,
	}
}

func TestCreateOrUpdatePending(t *testing.T) {
	passengers := []models.PassengerInput{
		{FullName: "Abebe Kebede", SeatNumber: 3},
		{FullName: "Sara Tesfaye"},
	}

	t.Run("Creates New Draft", func(t *testing.T) {
		_, mock, _, repo := newTestRepos(t)
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM trips WHERE id = \$1 FOR UPDATE`).
			WithArgs("trip-1").
			WillReturnRows(tripRow(49, false))
		mock.ExpectQuery(`FROM bookings\s+WHERE user_id = \$1 AND trip_id = \$2 AND status = 'pending'`).
			WithArgs("user-1", "trip-1").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(`SELECT p\.seat_number`).
			WithArgs("trip-1").
			WillReturnRows(sqlmock.NewRows([]string{"seat_number"}))
		mock.ExpectExec(`UPDATE trips SET available_slots`).
			WithArgs(47, false, "trip-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectQuery(`INSERT INTO passengers`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
		mock.ExpectQuery(`INSERT INTO passengers`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
		mock.ExpectCommit()

		booking, trip, err := repo.CreateOrUpdatePending(context.Background(), "user-1", "trip-1", passengers, flatPricing)
		require.NoError(t, err)
		require.NotNil(t, booking)
		assert.Equal(t, models.BookingStatusPending, booking.Status)
		assert.Equal(t, 2, booking.SeatCount)
		require.Len(t, booking.Passengers, 2)
		assert.Equal(t, 3, booking.Passengers[0].SeatNumber)
		assert.Equal(t, 1, booking.Passengers[1].SeatNumber)
		assert.Equal(t, 47, trip.AvailableSlots)
		assert.False(t, trip.JustHalted)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Halted Trip Rejects New Draft", func(t *testing.T) {
		_, mock, _, repo := newTestRepos(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM trips WHERE id = \$1 FOR UPDATE`).
			WithArgs("trip-1").
			WillReturnRows(tripRow(8, true))
		mock.ExpectQuery(`FROM bookings\s+WHERE user_id = \$1 AND trip_id = \$2 AND status = 'pending'`).
			WithArgs("user-1", "trip-1").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, _, err := repo.CreateOrUpdatePending(context.Background(), "user-1", "trip-1", passengers, flatPricing)
		assert.ErrorIs(t, err, models.ErrBookingHalted)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Insufficient Seats Rolls Back", func(t *testing.T) {
		_, mock, _, repo := newTestRepos(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM trips WHERE id = \$1 FOR UPDATE`).
			WithArgs("trip-1").
			WillReturnRows(tripRow(1, false))
		mock.ExpectQuery(`FROM bookings\s+WHERE user_id = \$1 AND trip_id = \$2 AND status = 'pending'`).
			WithArgs("user-1", "trip-1").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(`SELECT p\.seat_number`).
			WithArgs("trip-1").
			WillReturnRows(sqlmock.NewRows([]string{"seat_number"}))
		mock.ExpectRollback()

		_, _, err := repo.CreateOrUpdatePending(context.Background(), "user-1", "trip-1", passengers, flatPricing)
		assert.ErrorIs(t, err, models.ErrInsufficientSeats)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Departed Trip Not Bookable", func(t *testing.T) {
		_, mock, _, repo := newTestRepos(t)
		now := time.Now()

		departed := sqlmock.NewRows(tripRowColumns).AddRow(
			"trip-1", "company-1", "Addis Ababa - Bahir Dar", "departed", now, "250.00",
			49, 12,
			false, false, false,
			0, 0, 0, false,
			now, now,
		)
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM trips WHERE id = \$1 FOR UPDATE`).
			WithArgs("trip-1").
			WillReturnRows(departed)
		mock.ExpectRollback()

		_, _, err := repo.CreateOrUpdatePending(context.Background(), "user-1", "trip-1", passengers, flatPricing)
		assert.ErrorIs(t, err, models.ErrTripNotBookable)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Auto Halt Triggers On Threshold", func(t *testing.T) {
		_, mock, _, repo := newTestRepos(t)
		now := time.Now()

		// Reserving 2 of 12 leaves exactly the threshold of 10.
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM trips WHERE id = \$1 FOR UPDATE`).
			WithArgs("trip-1").
			WillReturnRows(tripRow(12, false))
		mock.ExpectQuery(`FROM bookings\s+WHERE user_id = \$1 AND trip_id = \$2 AND status = 'pending'`).
			WithArgs("user-1", "trip-1").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(`SELECT p\.seat_number`).
			WithArgs("trip-1").
			WillReturnRows(sqlmock.NewRows([]string{"seat_number"}))
		mock.ExpectExec(`UPDATE trips SET available_slots`).
			WithArgs(10, false, "trip-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT booking_halt_bypass FROM companies`).
			WithArgs("company-1").
			WillReturnRows(sqlmock.NewRows([]string{"booking_halt_bypass"}).AddRow(false))
		mock.ExpectExec(`UPDATE trips SET booking_halted = TRUE`).
			WithArgs("trip-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectQuery(`INSERT INTO passengers`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
		mock.ExpectQuery(`INSERT INTO passengers`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
		mock.ExpectCommit()

		booking, trip, err := repo.CreateOrUpdatePending(context.Background(), "user-1", "trip-1", passengers, flatPricing)
		require.NoError(t, err)
		assert.NotNil(t, booking)
		assert.True(t, trip.BookingHalted)
		assert.True(t, trip.JustHalted)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Company Bypass Skips Auto Halt", func(t *testing.T) {
		_, mock, _, repo := newTestRepos(t)
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM trips WHERE id = \$1 FOR UPDATE`).
			WithArgs("trip-1").
			WillReturnRows(tripRow(12, false))
		mock.ExpectQuery(`FROM bookings\s+WHERE user_id = \$1 AND trip_id = \$2 AND status = 'pending'`).
			WithArgs("user-1", "trip-1").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(`SELECT p\.seat_number`).
			WithArgs("trip-1").
			WillReturnRows(sqlmock.NewRows([]string{"seat_number"}))
		mock.ExpectExec(`UPDATE trips SET available_slots`).
			WithArgs(10, false, "trip-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT booking_halt_bypass FROM companies`).
			WithArgs("company-1").
			WillReturnRows(sqlmock.NewRows([]string{"booking_halt_bypass"}).AddRow(true))
		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectQuery(`INSERT INTO passengers`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
		mock.ExpectQuery(`INSERT INTO passengers`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
		mock.ExpectCommit()

		_, trip, err := repo.CreateOrUpdatePending(context.Background(), "user-1", "trip-1", passengers, flatPricing)
		require.NoError(t, err)
		assert.False(t, trip.BookingHalted)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Suppressed Trip Above Threshold Re-Arms Auto Halt", func(t *testing.T) {
		_, mock, _, repo := newTestRepos(t)
		now := time.Now()

		// Resumed by an admin while 12 seats were free. Observing the
		// trip above the threshold clears the suppression, so this
		// reservation down to 10 halts again.
		suppressed := sqlmock.NewRows(tripRowColumns).AddRow(
			"trip-1", "company-1", "Addis Ababa - Bahir Dar", "scheduled", now.Add(24*time.Hour), "250.00",
			49, 12,
			false, false, true,
			0, 0, 0, false,
			now, now,
		)
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM trips WHERE id = \$1 FOR UPDATE`).
			WithArgs("trip-1").
			WillReturnRows(suppressed)
		mock.ExpectQuery(`FROM bookings\s+WHERE user_id = \$1 AND trip_id = \$2 AND status = 'pending'`).
			WithArgs("user-1", "trip-1").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(`SELECT p\.seat_number`).
			WithArgs("trip-1").
			WillReturnRows(sqlmock.NewRows([]string{"seat_number"}))
		mock.ExpectExec(`UPDATE trips SET available_slots`).
			WithArgs(10, true, "trip-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT booking_halt_bypass FROM companies`).
			WithArgs("company-1").
			WillReturnRows(sqlmock.NewRows([]string{"booking_halt_bypass"}).AddRow(false))
		mock.ExpectExec(`UPDATE trips SET booking_halted = TRUE`).
			WithArgs("trip-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectQuery(`INSERT INTO passengers`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
		mock.ExpectQuery(`INSERT INTO passengers`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
		mock.ExpectCommit()

		_, trip, err := repo.CreateOrUpdatePending(context.Background(), "user-1", "trip-1", passengers, flatPricing)
		require.NoError(t, err)
		assert.False(t, trip.ResumeSuppressed)
		assert.True(t, trip.BookingHalted)
		assert.True(t, trip.JustHalted)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Suppression Holds At Threshold", func(t *testing.T) {
		_, mock, _, repo := newTestRepos(t)
		now := time.Now()

		// Resumed at exactly the threshold: slots never rose above it, so
		// the suppression stays and the trip is not re-halted.
		suppressed := sqlmock.NewRows(tripRowColumns).AddRow(
			"trip-1", "company-1", "Addis Ababa - Bahir Dar", "scheduled", now.Add(24*time.Hour), "250.00",
			49, 10,
			false, false, true,
			0, 0, 0, false,
			now, now,
		)
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM trips WHERE id = \$1 FOR UPDATE`).
			WithArgs("trip-1").
			WillReturnRows(suppressed)
		mock.ExpectQuery(`FROM bookings\s+WHERE user_id = \$1 AND trip_id = \$2 AND status = 'pending'`).
			WithArgs("user-1", "trip-1").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(`SELECT p\.seat_number`).
			WithArgs("trip-1").
			WillReturnRows(sqlmock.NewRows([]string{"seat_number"}))
		mock.ExpectExec(`UPDATE trips SET available_slots`).
			WithArgs(8, false, "trip-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectQuery(`INSERT INTO passengers`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
		mock.ExpectQuery(`INSERT INTO passengers`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
		mock.ExpectCommit()

		_, trip, err := repo.CreateOrUpdatePending(context.Background(), "user-1", "trip-1", passengers, flatPricing)
		require.NoError(t, err)
		assert.True(t, trip.ResumeSuppressed)
		assert.False(t, trip.BookingHalted)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Updates Existing Draft", func(t *testing.T) {
		_, mock, _, repo := newTestRepos(t)
		now := time.Now()

		bookingRowColumns := []string{
			"id", "user_id", "trip_id", "status", "seat_count",
			"total_amount", "commission", "commission_vat",
			"is_quick_ticket", "is_replacement", "replaced_passenger_id",
			"created_by_staff_id", "created_at", "updated_at",
		}

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM trips WHERE id = \$1 FOR UPDATE`).
			WithArgs("trip-1").
			WillReturnRows(tripRow(47, false))
		mock.ExpectQuery(`FROM bookings\s+WHERE user_id = \$1 AND trip_id = \$2 AND status = 'pending'`).
			WithArgs("user-1", "trip-1").
			WillReturnRows(sqlmock.NewRows(bookingRowColumns).AddRow(
				"booking-1", "user-1", "trip-1", "pending", 2,
				"500.00", "0.00", "0.00",
				false, false, nil,
				nil, now, now,
			))
		mock.ExpectQuery(`SELECT p\.seat_number`).
			WithArgs("trip-1").
			WillReturnRows(sqlmock.NewRows([]string{"seat_number"}).AddRow(3).AddRow(1))
		mock.ExpectQuery(`SELECT seat_number FROM passengers WHERE booking_id = \$1`).
			WithArgs("booking-1").
			WillReturnRows(sqlmock.NewRows([]string{"seat_number"}).AddRow(3).AddRow(1))
		// Draft shrinks from two seats to one; the extra seat returns to
		// the ledger.
		mock.ExpectExec(`UPDATE trips SET available_slots = \$1, resume_suppressed`).
			WithArgs(48, false, "trip-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM passengers WHERE booking_id = \$1`).
			WithArgs("booking-1").
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectQuery(`UPDATE bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))
		mock.ExpectQuery(`INSERT INTO passengers`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
		mock.ExpectCommit()

		single := []models.PassengerInput{{FullName: "Abebe Kebede", SeatNumber: 3}}
		booking, _, err := repo.CreateOrUpdatePending(context.Background(), "user-1", "trip-1", single, flatPricing)
		require.NoError(t, err)
		assert.Equal(t, "booking-1", booking.ID)
		assert.Equal(t, 1, booking.SeatCount)
		require.Len(t, booking.Passengers, 1)
		assert.Equal(t, 3, booking.Passengers[0].SeatNumber)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
