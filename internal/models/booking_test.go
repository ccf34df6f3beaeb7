package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateBookingRequestValidate(t *testing.T) {
	const maxSeats = 10

	t.Run("Valid", func(t *testing.T) {
		req := CreateBookingRequest{
			TripID: "trip-1",
			Passengers: []PassengerInput{
				{FullName: "Abebe Kebede", SeatNumber: 4},
				{FullName: "Sara Tesfaye"},
			},
		}
		assert.NoError(t, req.Validate(maxSeats))
	})

	t.Run("No Passengers", func(t *testing.T) {
		req := CreateBookingRequest{TripID: "trip-1"}

		err := req.Validate(maxSeats)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("Too Many Passengers", func(t *testing.T) {
		passengers := make([]PassengerInput, 11)
		for i := range passengers {
			passengers[i] = PassengerInput{FullName: "Passenger"}
		}
		req := CreateBookingRequest{TripID: "trip-1", Passengers: passengers}

		err := req.Validate(maxSeats)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("Missing Name", func(t *testing.T) {
		req := CreateBookingRequest{
			TripID:     "trip-1",
			Passengers: []PassengerInput{{SeatNumber: 2}},
		}

		err := req.Validate(maxSeats)
		assert.ErrorIs(t, err, ErrValidation)
		assert.Contains(t, err.Error(), "full name")
	})

	t.Run("Negative Seat", func(t *testing.T) {
		req := CreateBookingRequest{
			TripID:     "trip-1",
			Passengers: []PassengerInput{{FullName: "Abebe", SeatNumber: -1}},
		}

		err := req.Validate(maxSeats)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("Duplicate Seat Request", func(t *testing.T) {
		req := CreateBookingRequest{
			TripID: "trip-1",
			Passengers: []PassengerInput{
				{FullName: "Abebe", SeatNumber: 7},
				{FullName: "Sara", SeatNumber: 7},
			},
		}

		err := req.Validate(maxSeats)
		assert.ErrorIs(t, err, ErrValidation)
		assert.Contains(t, err.Error(), "more than once")
	})

	t.Run("Auto Assign Duplicates Allowed", func(t *testing.T) {
		// Seat 0 means auto-assign; several of them are fine.
		req := CreateBookingRequest{
			TripID: "trip-1",
			Passengers: []PassengerInput{
				{FullName: "Abebe"},
				{FullName: "Sara"},
				{FullName: "Mulu"},
			},
		}
		assert.NoError(t, req.Validate(maxSeats))
	})
}

func TestTripIsBookable(t *testing.T) {
	cases := []struct {
		status   TripStatus
		bookable bool
	}{
		{TripStatusScheduled, true},
		{TripStatusBoarding, true},
		{TripStatusDeparted, false},
		{TripStatusCompleted, false},
		{TripStatusCancelled, false},
	}

	for _, tc := range cases {
		trip := &Trip{Status: tc.status}
		assert.Equal(t, tc.bookable, trip.IsBookable(), "status %s", tc.status)
	}
}
