package services

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/swiftbus/booking-backend/internal/config"
	"github.com/swiftbus/booking-backend/internal/database"
	"github.com/swiftbus/booking-backend/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// CounterSaleService handles staff-initiated sales: walk-in counter sales
// on open trips and replacement sales on departed ones. Every sale
// re-verifies the cashier's PIN against its bcrypt hash.
type CounterSaleService struct {
	saleRepo  *database.ManualSaleRepository
	tripRepo  *database.TripRepository
	staffRepo *database.StaffRepository
	auditSvc  *AuditService
	notifier  *NotificationService
	cfg       config.BookingConfig
	logger    *logrus.Logger
}

// NewCounterSaleService creates a new CounterSaleService
func NewCounterSaleService(
	saleRepo *database.ManualSaleRepository,
	tripRepo *database.TripRepository,
	staffRepo *database.StaffRepository,
	auditSvc *AuditService,
	notifier *NotificationService,
	cfg config.BookingConfig,
	logger *logrus.Logger,
) *CounterSaleService {
	return &CounterSaleService{
		saleRepo:  saleRepo,
		tripRepo:  tripRepo,
		staffRepo: staffRepo,
		auditSvc:  auditSvc,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger,
	}
}

// CreateCounterSale records a walk-in sale for a trip. Counter sales carry
// zero commission and proceed even when online booking is halted.
func (s *CounterSaleService) CreateCounterSale(ctx context.Context, staffID, tripID string, req *models.CounterSaleRequest, meta RequestMeta) (*database.CounterSaleResult, error) {
	if err := req.Validate(s.cfg.MaxSeatsPerBooking); err != nil {
		return nil, err
	}
	if err := s.verifyPIN(ctx, staffID, req.CashierPIN); err != nil {
		return nil, err
	}

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	pricing := database.PricingFunc(PricingFor(trip.PricePerSeat, ZeroCommission))
	result, err := s.saleRepo.CreateCounterSale(ctx, tripID, staffID, req.Passengers, models.PaymentMethod(req.PaymentMethod), pricing)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": result.Booking.ID,
		"trip_id":    tripID,
		"staff_id":   staffID,
		"seat_count": result.Booking.SeatCount,
	}).Info("Counter sale recorded")

	s.auditSvc.Record(ctx, "booking", result.Booking.ID, models.BookingAuditDetails{
		BookingID:   result.Booking.ID,
		TripID:      tripID,
		SeatCount:   result.Booking.SeatCount,
		SeatNumbers: seatNumbers(result.Booking.Passengers),
		TotalAmount: result.Booking.TotalAmount,
		Kind:        models.AuditActionCounterSale,
	}, meta)

	if result.ManifestReady {
		s.auditSvc.Record(ctx, "trip", tripID, models.BoardingAuditDetails{
			TripID: tripID,
			Kind:   models.AuditActionManifestReady,
		}, meta)
	}
	s.notifier.NotifyTicketsIssued(result.Booking, result.Tickets)

	return result, nil
}

// CreateReplacementSale sells seats freed by no-shows on a departed trip.
// The sale consumes the released pool, never the main ledger.
func (s *CounterSaleService) CreateReplacementSale(ctx context.Context, staffID, tripID string, req *models.ReplacementSaleRequest, meta RequestMeta) (*database.CounterSaleResult, error) {
	if err := req.Validate(s.cfg.MaxSeatsPerBooking); err != nil {
		return nil, err
	}
	if err := s.verifyPIN(ctx, staffID, req.CashierPIN); err != nil {
		return nil, err
	}

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	pricing := database.PricingFunc(PricingFor(trip.PricePerSeat, ZeroCommission))
	result, err := s.saleRepo.CreateReplacementSale(ctx, tripID, staffID, req.ReplacedPassengerID, req.Passengers, pricing)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": result.Booking.ID,
		"trip_id":    tripID,
		"staff_id":   staffID,
		"replaced":   req.ReplacedPassengerID,
	}).Info("Replacement sale recorded")

	s.auditSvc.Record(ctx, "booking", result.Booking.ID, models.BookingAuditDetails{
		BookingID:   result.Booking.ID,
		TripID:      tripID,
		SeatCount:   result.Booking.SeatCount,
		SeatNumbers: seatNumbers(result.Booking.Passengers),
		TotalAmount: result.Booking.TotalAmount,
		Kind:        models.AuditActionReplacementSale,
	}, meta)
	s.notifier.NotifyTicketsIssued(result.Booking, result.Tickets)

	return result, nil
}

func (s *CounterSaleService) verifyPIN(ctx context.Context, staffID, pin string) error {
	staff, err := s.staffRepo.GetByID(ctx, staffID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(staff.PINHash), []byte(pin)); err != nil {
		return models.ErrInvalidPIN
	}
	return nil
}
