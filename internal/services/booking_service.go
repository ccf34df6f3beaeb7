package services

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/swiftbus/booking-backend/internal/config"
	"github.com/swiftbus/booking-backend/internal/database"
	"github.com/swiftbus/booking-backend/internal/models"
)

// BookingService drives the online self-service booking flow. Validation
// happens here; seat assignment, the ledger decrement, and the
// pending-booking dedup all happen in the repository behind the trip row
// lock.
type BookingService struct {
	bookingRepo    *database.BookingRepository
	tripRepo       *database.TripRepository
	ticketRepo     *database.TicketRepository
	commissionRepo *database.CommissionRepository
	auditSvc       *AuditService
	notifier       *NotificationService
	cfg            config.BookingConfig
	logger         *logrus.Logger
}

// NewBookingService creates a new BookingService
func NewBookingService(
	bookingRepo *database.BookingRepository,
	tripRepo *database.TripRepository,
	ticketRepo *database.TicketRepository,
	commissionRepo *database.CommissionRepository,
	auditSvc *AuditService,
	notifier *NotificationService,
	cfg config.BookingConfig,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		bookingRepo:    bookingRepo,
		tripRepo:       tripRepo,
		ticketRepo:     ticketRepo,
		commissionRepo: commissionRepo,
		auditSvc:       auditSvc,
		notifier:       notifier,
		cfg:            cfg,
		logger:         logger,
	}
}

// CreateOrUpdateBooking creates the caller's draft booking on a trip, or
// replaces their existing draft wholesale. Amounts are recomputed
// server-side from the trip price; anything the client sends about money
// is ignored.
func (s *BookingService) CreateOrUpdateBooking(ctx context.Context, userID string, req *models.CreateBookingRequest, meta RequestMeta) (*models.Booking, error) {
	if err := req.Validate(s.cfg.MaxSeatsPerBooking); err != nil {
		return nil, err
	}

	trip, err := s.tripRepo.GetByID(ctx, req.TripID)
	if err != nil {
		return nil, err
	}

	pricing := database.PricingFunc(PricingFor(trip.PricePerSeat, CalculateCommission))
	booking, tripAfter, err := s.bookingRepo.CreateOrUpdatePending(ctx, userID, req.TripID, req.Passengers, pricing)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"trip_id":    booking.TripID,
		"user_id":    userID,
		"seat_count": booking.SeatCount,
	}).Info("Booking draft saved")

	action := models.AuditActionBookingCreated
	if !booking.CreatedAt.Equal(booking.UpdatedAt) {
		action = models.AuditActionBookingUpdated
	}
	s.auditSvc.Record(ctx, "booking", booking.ID, models.BookingAuditDetails{
		BookingID:   booking.ID,
		TripID:      booking.TripID,
		SeatCount:   booking.SeatCount,
		SeatNumbers: seatNumbers(booking.Passengers),
		TotalAmount: booking.TotalAmount,
		Kind:        action,
	}, meta)

	if tripAfter.JustHalted {
		s.auditSvc.Record(ctx, "trip", tripAfter.ID, models.HaltAuditDetails{
			TripID:         tripAfter.ID,
			AvailableSlots: tripAfter.AvailableSlots,
			Threshold:      s.cfg.AutoHaltThreshold,
			Kind:           models.AuditActionAutoHalt,
		}, meta)
		s.notifier.RecordLowSeatTask(ctx, tripAfter.ID, tripAfter.AvailableSlots)
	}

	return booking, nil
}

// BookingDetail is a booking with everything its settlement produced.
// Tickets and commissions exist only once the booking is paid.
type BookingDetail struct {
	Booking     *models.Booking          `json:"booking"`
	Tickets     []models.Ticket          `json:"tickets"`
	Commissions []models.SalesCommission `json:"commissions"`
}

// GetBooking returns a booking the caller owns, with its tickets and
// commission allocations once settled.
func (s *BookingService) GetBooking(ctx context.Context, userID, bookingID string) (*BookingDetail, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, models.ErrBookingNotFound
	}

	detail := &BookingDetail{
		Booking:     booking,
		Tickets:     []models.Ticket{},
		Commissions: []models.SalesCommission{},
	}
	if booking.Status != models.BookingStatusPaid {
		return detail, nil
	}

	if detail.Tickets, err = s.ticketRepo.ListByBooking(ctx, bookingID); err != nil {
		return nil, err
	}
	if detail.Commissions, err = s.commissionRepo.ListByBooking(ctx, bookingID); err != nil {
		return nil, err
	}
	return detail, nil
}

// ListBookings returns the caller's bookings, newest first.
func (s *BookingService) ListBookings(ctx context.Context, userID string, limit, offset int) ([]models.Booking, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.bookingRepo.ListByUser(ctx, userID, limit, offset)
}

func seatNumbers(passengers []models.Passenger) []int {
	seats := make([]int, 0, len(passengers))
	for _, p := range passengers {
		seats = append(seats, p.SeatNumber)
	}
	return seats
}
