package services

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/swiftbus/booking-backend/internal/database"
	"github.com/swiftbus/booking-backend/internal/models"
)

// TripService exposes the admin and staff trip operations: manual halt
// and resume of online booking, departure, and the passenger manifest.
type TripService struct {
	tripRepo *database.TripRepository
	auditSvc *AuditService
	logger   *logrus.Logger
}

// NewTripService creates a new TripService
func NewTripService(tripRepo *database.TripRepository, auditSvc *AuditService, logger *logrus.Logger) *TripService {
	return &TripService{tripRepo: tripRepo, auditSvc: auditSvc, logger: logger}
}

// GetTrip returns a trip by id.
func (s *TripService) GetTrip(ctx context.Context, tripID string) (*models.Trip, error) {
	return s.tripRepo.GetByID(ctx, tripID)
}

// HaltBooking manually suspends online booking for a trip. Counter sales
// are unaffected.
func (s *TripService) HaltBooking(ctx context.Context, tripID string, meta RequestMeta) error {
	if err := s.tripRepo.HaltBooking(ctx, tripID); err != nil {
		return err
	}
	s.logger.WithField("trip_id", tripID).Info("Online booking halted by admin")
	s.auditSvc.Record(ctx, "trip", tripID, models.HaltAuditDetails{
		TripID: tripID,
		Kind:   models.AuditActionManualHalt,
	}, meta)
	return nil
}

// ResumeBooking lifts a halt. The auto-halt trigger stays suppressed
// until available slots climb back above the threshold, so an admin
// decision is not immediately undone by the next sale.
func (s *TripService) ResumeBooking(ctx context.Context, tripID string, meta RequestMeta) error {
	if err := s.tripRepo.ResumeBooking(ctx, tripID); err != nil {
		return err
	}
	s.logger.WithField("trip_id", tripID).Info("Online booking resumed by admin")
	s.auditSvc.Record(ctx, "trip", tripID, models.HaltAuditDetails{
		TripID: tripID,
		Kind:   models.AuditActionBookingResumed,
	}, meta)
	return nil
}

// DepartTrip transitions a trip to departed, opening the boarding and
// replacement workflows.
func (s *TripService) DepartTrip(ctx context.Context, tripID string, meta RequestMeta) error {
	if err := s.tripRepo.DepartTrip(ctx, tripID); err != nil {
		return err
	}
	s.logger.WithField("trip_id", tripID).Info("Trip departed")
	s.auditSvc.Record(ctx, "trip", tripID, models.BoardingAuditDetails{
		TripID: tripID,
		Kind:   models.AuditActionTripDeparted,
	}, meta)
	return nil
}

// Manifest returns the staff-facing passenger list for a trip.
func (s *TripService) Manifest(ctx context.Context, tripID string) ([]models.TripManifestEntry, error) {
	if _, err := s.tripRepo.GetByID(ctx, tripID); err != nil {
		return nil, err
	}
	return s.tripRepo.Manifest(ctx, tripID)
}
