package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swiftbus/booking-backend/internal/models"
)

func newTestBoardingRepo(t *testing.T) (sqlmock.Sqlmock, *BoardingRepository) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	logger := logrus.New()
	tripRepo := NewTripRepository(sqlxDB, logger, 10, 15*time.Second)
	return mock, NewBoardingRepository(sqlxDB, tripRepo, logger, 15*time.Second)
}

func departedTripRow() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(tripRowColumns).AddRow(
		"trip-1", "company-1", "Addis Ababa - Bahir Dar", "departed", now, "250.00",
		49, 0,
		true, false, false,
		0, 0, 0, true,
		now, now,
	)
}

func TestBoardPassenger(t *testing.T) {
	ticketColumns := []string{
		"ticket_id", "passenger_id", "trip_id", "is_used", "used_at",
		"full_name", "seat_number", "trip_status", "booking_status",
	}

	t.Run("Boards Valid Ticket", func(t *testing.T) {
		mock, repo := newTestBoardingRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM tickets t`).
			WithArgs("TK-7XK2M9QD").
			WillReturnRows(sqlmock.NewRows(ticketColumns).AddRow(
				"ticket-1", "passenger-1", "trip-1", false, nil,
				"Abebe Kebede", 3, "departed", "paid",
			))
		mock.ExpectExec(`UPDATE tickets SET is_used = TRUE`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE passengers SET boarding_status = 'boarded'`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		verification, err := repo.BoardPassenger(context.Background(), "TK-7XK2M9QD")
		require.NoError(t, err)
		assert.True(t, verification.Valid)
		assert.Equal(t, "Abebe Kebede", verification.PassengerName)
		assert.Equal(t, models.BoardingStatusBoarded, verification.Boarding)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Used Ticket Rejected", func(t *testing.T) {
		mock, repo := newTestBoardingRepo(t)
		usedAt := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM tickets t`).
			WithArgs("TK-7XK2M9QD").
			WillReturnRows(sqlmock.NewRows(ticketColumns).AddRow(
				"ticket-1", "passenger-1", "trip-1", true, usedAt,
				"Abebe Kebede", 3, "departed", "paid",
			))
		mock.ExpectRollback()

		_, err := repo.BoardPassenger(context.Background(), "TK-7XK2M9QD")
		assert.ErrorIs(t, err, models.ErrTicketAlreadyUsed)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Trip Not Departed", func(t *testing.T) {
		mock, repo := newTestBoardingRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM tickets t`).
			WithArgs("TK-7XK2M9QD").
			WillReturnRows(sqlmock.NewRows(ticketColumns).AddRow(
				"ticket-1", "passenger-1", "trip-1", false, nil,
				"Abebe Kebede", 3, "scheduled", "paid",
			))
		mock.ExpectRollback()

		_, err := repo.BoardPassenger(context.Background(), "TK-7XK2M9QD")
		assert.ErrorIs(t, err, models.ErrTripNotDeparted)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown Code", func(t *testing.T) {
		mock, repo := newTestBoardingRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM tickets t`).
			WithArgs("TK-NOPE").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, err := repo.BoardPassenger(context.Background(), "TK-NOPE")
		assert.ErrorIs(t, err, models.ErrTicketNotFound)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMarkNoShows(t *testing.T) {
	passengerColumns := []string{"boarding_status", "ticket_used"}

	t.Run("Mixed Outcomes", func(t *testing.T) {
		mock, repo := newTestBoardingRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM trips WHERE id = \$1 FOR UPDATE`).
			WithArgs("trip-1").
			WillReturnRows(departedTripRow())
		// First passenger is still pending and gets marked.
		mock.ExpectQuery(`SELECT p\.boarding_status`).
			WithArgs("passenger-1", "trip-1").
			WillReturnRows(sqlmock.NewRows(passengerColumns).AddRow("pending", false))
		mock.ExpectExec(`UPDATE passengers SET boarding_status = 'no_show'`).
			WithArgs("passenger-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		// Second already boarded, skipped.
		mock.ExpectQuery(`SELECT p\.boarding_status`).
			WithArgs("passenger-2", "trip-1").
			WillReturnRows(sqlmock.NewRows(passengerColumns).AddRow("boarded", true))
		// Third unknown on this trip.
		mock.ExpectQuery(`SELECT p\.boarding_status`).
			WithArgs("passenger-3", "trip-1").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectExec(`UPDATE trips`).
			WithArgs(1, "trip-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		outcomes, err := repo.MarkNoShows(context.Background(), "trip-1", []string{"passenger-1", "passenger-2", "passenger-3"})
		require.NoError(t, err)
		require.Len(t, outcomes, 3)

		assert.True(t, outcomes[0].Marked)
		assert.False(t, outcomes[1].Marked)
		assert.Equal(t, "already boarded", outcomes[1].Reason)
		assert.False(t, outcomes[2].Marked)
		assert.Equal(t, "passenger not found on this trip", outcomes[2].Reason)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Trip Not Departed", func(t *testing.T) {
		mock, repo := newTestBoardingRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM trips WHERE id = \$1 FOR UPDATE`).
			WithArgs("trip-1").
			WillReturnRows(tripRow(12, false))
		mock.ExpectRollback()

		_, err := repo.MarkNoShows(context.Background(), "trip-1", []string{"passenger-1"})
		assert.ErrorIs(t, err, models.ErrTripNotDeparted)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already Marked Is Skipped", func(t *testing.T) {
		mock, repo := newTestBoardingRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM trips WHERE id = \$1 FOR UPDATE`).
			WithArgs("trip-1").
			WillReturnRows(departedTripRow())
		mock.ExpectQuery(`SELECT p\.boarding_status`).
			WithArgs("passenger-1", "trip-1").
			WillReturnRows(sqlmock.NewRows(passengerColumns).AddRow("no_show", false))
		mock.ExpectCommit()

		outcomes, err := repo.MarkNoShows(context.Background(), "trip-1", []string{"passenger-1"})
		require.NoError(t, err)
		require.Len(t, outcomes, 1)
		assert.False(t, outcomes[0].Marked)
		assert.Equal(t, "already marked no-show", outcomes[0].Reason)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
